package notify

import (
	"context"
	"time"

	"github.com/hamidoujand/usersadmin/pkg/logger"
	"github.com/sony/gobreaker"
)

// newBreaker guards a remote publisher so an unreachable broker costs one
// fast failure per event instead of a network timeout.
func newBreaker(name string, log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
