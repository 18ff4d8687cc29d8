package types

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var identityPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Identity is the canonical string used to match a Jira user with a Zammad user.
// With the default mapping it is an email address.
type Identity string

// Validate checks the identity has the local@domain.tld shape.
func (x Identity) Validate() error {
	if x == "" {
		return goerr.New("identity is empty")
	}
	if !identityPattern.MatchString(string(x)) {
		return goerr.New("identity is not a valid address", goerr.V("identity", string(x)))
	}
	return nil
}

// Equal compares two identities case-insensitively.
func (x Identity) Equal(y Identity) bool {
	return strings.EqualFold(string(x), string(y))
}

// Lower returns the lowercase form used as cache key.
func (x Identity) Lower() Identity {
	return Identity(strings.ToLower(string(x)))
}

func (x Identity) String() string {
	return string(x)
}
