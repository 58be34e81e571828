package pocketbase

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerClient fails fast once the document store keeps failing at the
// transport level or with 5xx responses. Open-state errors surface as
// network errors to the caller.
type BreakerClient struct {
	next HTTPClient
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

func NewBreakerClient(next HTTPClient, maxFailures uint32, openTimeout time.Duration, logger *zap.Logger) *BreakerClient {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "pocketbase",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerClient{next: next, cb: cb}
}

func (b *BreakerClient) Do(req *http.Request) (*http.Response, error) {
	var passed *http.Response
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.next.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// Counted as a failure but still handed back for error mapping.
			passed = resp
			return nil, fmt.Errorf("pocketbase status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if passed != nil {
		return passed, nil
	}
	return resp, err
}

func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}
