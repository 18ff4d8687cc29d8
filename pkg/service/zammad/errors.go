package zammad

import (
	"errors"
	"fmt"
	"strings"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

// alreadyExistsBody is the exact payload Zammad answers with for a duplicate object.
const alreadyExistsBody = `{"error":"This object already exists.","error_human":"This object already exists."}`

// APIError is a non-2xx answer from Zammad.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zammad %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is classifies the answer into the shared error taxonomy.
func (e *APIError) Is(target error) bool {
	switch target {
	case model.ErrAlreadyExists:
		return e.AlreadyExists()
	case model.ErrUpstreamFailure:
		return !e.AlreadyExists()
	case model.ErrRecordNotFound:
		return e.StatusCode == 404
	}
	return false
}

// AlreadyExists reports whether Zammad rejected the request as a duplicate.
func (e *APIError) AlreadyExists() bool {
	return strings.TrimSpace(e.Body) == alreadyExistsBody
}

// transient reports whether the failure says something about Zammad's health.
func (e *APIError) transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// transportError is a request that never got an HTTP answer.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "zammad request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }
func (e *transportError) Is(target error) bool {
	return target == model.ErrUpstreamFailure
}

// countsAsFailure decides what trips the circuit breaker.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.transient()
	}
	var tErr *transportError
	if errors.As(err, &tErr) {
		return !isCanceled(tErr.err)
	}
	return false
}
