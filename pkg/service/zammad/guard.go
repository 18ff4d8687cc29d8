package zammad

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultFailureThreshold is the number of consecutive server-side failures that open the breaker
	DefaultFailureThreshold = 5
	// DefaultOpenTimeout is how long the breaker stays open before probing again
	DefaultOpenTimeout = 30 * time.Second
)

// guard paces requests and stops hammering a Zammad that keeps failing.
type guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
}

func newGuard(rps float64, threshold uint32, openTimeout time.Duration) *guard {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	settings := gobreaker.Settings{
		Name:        "zammad",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Default().Warn("Zammad circuit breaker changed state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &guard{
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// run waits for the rate limiter and executes fn through the circuit breaker.
func (g *guard) run(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return goerr.Wrap(err, "rate limiter wait aborted")
	}

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return goerr.Wrap(model.ErrUpstreamFailure, "Zammad circuit breaker is open",
			goerr.V("state", g.breaker.State().String()))
	}
	return err
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
