// Package resilience wraps calls to external collaborators in a circuit breaker.
package resilience

import (
	"github.com/abgdnv/cartwish/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreaker builds a breaker that trips on consecutive failures or on the configured error rate.
// isFailure decides which errors count against the collaborator's health: a "not found" answer is a
// healthy response and must not open the circuit.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, isFailure func(error) bool) *gobreaker.CircuitBreaker[T] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isFailure(err)
		},
	}
	return gobreaker.NewCircuitBreaker[T](st)
}
