package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrInvalidIdentity means a source user could not be mapped to a usable identity
	ErrInvalidIdentity = goerr.New("invalid identity")

	// ErrVisibilityTimeout means a created record did not become searchable in time
	ErrVisibilityTimeout = goerr.New("record did not become visible")

	// ErrDamageExists means a damage ledger is left from a previous run
	ErrDamageExists = goerr.New("damage ledger already exists")
)

// Context keys for error values
const (
	IdentityKey     = "identity"
	UserIDKey       = "user_id"
	IssueKey        = "issue"
	TicketIDKey     = "ticket_id"
	FieldKey        = "field"
	AttachmentIDKey = "attachment_id"
	CommentIDKey    = "comment_id"
	LocationKey     = "location"
)
