package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"
)

// Poll bounds the wait for records to appear in search results.
type Poll struct {
	Attempts int
	Interval time.Duration
}

// DefaultPoll waits up to 30 seconds.
var DefaultPoll = Poll{Attempts: 30, Interval: time.Second}

var errNotVisible = errors.New("not visible yet")

// wait calls check until it reports true. Errors from check stop the wait
// immediately; running out of attempts yields ErrVisibilityTimeout.
func (p Poll) wait(ctx context.Context, check func() (bool, error)) error {
	attempts := max(p.Attempts, 1)

	op := func() error {
		ok, err := check()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotVisible
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, errNotVisible) {
			return goerr.Wrap(ErrVisibilityTimeout, "gave up waiting",
				goerr.V("attempts", attempts), goerr.V("interval", p.Interval.String()))
		}
		return err
	}
	return nil
}
