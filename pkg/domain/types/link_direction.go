package types

import "fmt"

// LinkDirection names one side of a Jira issue link.
type LinkDirection string

const (
	LinkDirectionOutward LinkDirection = "outwardIssue"
	LinkDirectionInward  LinkDirection = "inwardIssue"
)

// AllLinkDirections returns all valid link directions
func AllLinkDirections() []LinkDirection {
	return []LinkDirection{
		LinkDirectionOutward,
		LinkDirectionInward,
	}
}

// IsValid checks if the link direction is valid
func (d LinkDirection) IsValid() bool {
	switch d {
	case LinkDirectionOutward, LinkDirectionInward:
		return true
	default:
		return false
	}
}

func (d LinkDirection) String() string {
	return string(d)
}

// ParseLinkDirection parses a string into a LinkDirection
func ParseLinkDirection(s string) (LinkDirection, error) {
	d := LinkDirection(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid link direction: %s", s)
	}
	return d, nil
}
