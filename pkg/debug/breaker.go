package debug

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/logging"
)

var (
	errViewerBehind = errors.New("viewer send buffer full")
	errViewerGone   = errors.New("viewer disconnected")
)

// newViewerBreaker trips after cfg.BreakerMaxFailures frames in a row could
// not be queued for a viewer. While open the viewer is skipped; after the
// cooldown a single frame probes whether it caught up.
func newViewerBreaker(name string, cfg config.DebugConfig, logger *logging.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.BreakerCooldownMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "viewer circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// offer queues frame for v through its breaker without blocking.
func (v *viewer) offer(frame []byte) error {
	_, err := v.breaker.Execute(func() (interface{}, error) {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed {
			return nil, errViewerGone
		}
		select {
		case v.send <- frame:
			return nil, nil
		default:
			return nil, errViewerBehind
		}
	})
	if err != nil {
		return fmt.Errorf("viewer %s: %w", v.name, err)
	}
	return nil
}
