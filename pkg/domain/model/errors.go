package model

import "github.com/m-mizutani/goerr/v2"

// Errors shared by service clients and use cases.
var (
	// ErrRecordNotFound means zero or ambiguous matches where exactly one record was expected.
	ErrRecordNotFound = goerr.New("record not found")
	// ErrAlreadyExists means the destination rejected a create as a duplicate.
	ErrAlreadyExists = goerr.New("record already exists")
	// ErrInvalidRecord means a single record in an otherwise valid response could not be decoded.
	ErrInvalidRecord = goerr.New("invalid record")
	// ErrUpstreamFailure covers any other failure reported by Jira or Zammad.
	ErrUpstreamFailure = goerr.New("upstream failure")
)

// Context keys for error values
const (
	StatusCodeKey = "status_code"
	URLKey        = "url"
	BodyKey       = "body"
)
