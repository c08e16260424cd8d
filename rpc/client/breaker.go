package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/fbook/rpc/common"
	"github.com/sony/gobreaker/v2"
)

// newBreaker creates the circuit breaker guarding the transport, nil if disabled.
//
// Only transport failures count: application errors are decoded after the breaker
// returned and never reach it, and a cancelled context is the caller's decision,
// not a sign of an unhealthy server.
func newBreaker(cfg common.ClientConfig) *gobreaker.CircuitBreaker[[]byte] {
	if !cfg.Breaker.Enabled {
		return nil
	}

	maxFailures := cfg.Breaker.MaxFailures
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Endpoint(),
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			Logger.Warningf("Circuit breaker for %s changed from %s to %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// isBreakerRejection reports whether err was produced by the breaker instead of the transport
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
