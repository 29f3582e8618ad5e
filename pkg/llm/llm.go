// Package llm models the hosted language model as an injected
// capability with a single fallible operation: given system and user
// instructions, return text. Callers decide at startup which
// implementation (if any) is available; call sites that depend on it
// must treat any error as "capability unavailable" and fall back.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/movielake/movielake/pkg/resilience"
)

// ErrUnavailable means the capability cannot serve requests at all
// (no credential, no endpoint). Transport and response errors surface
// as their own errors; both classes trigger the same fallbacks.
var ErrUnavailable = errors.New("llm: capability unavailable")

// Request is one completion request.
type Request struct {
	System      string
	User        string
	Model       string // overrides the client default when set
	MaxTokens   int
	Temperature float64
}

// Client is the external LLM capability.
type Client interface {
	// Complete returns the model's text response. Calls carry the
	// client's configured timeout and are never retried.
	Complete(ctx context.Context, req Request) (string, error)
}

// DefaultTimeout bounds outbound completion calls.
const DefaultTimeout = 60 * time.Second

// newHTTPClient builds the shared instrumented HTTP client.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// guard bundles the rate limiter and circuit breaker shared by the
// HTTP-backed clients.
type guard struct {
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

func newGuard() guard {
	return guard{
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		breaker: resilience.NewBreaker(resilience.Config{}),
	}
}

func (g guard) do(ctx context.Context, f func(context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return g.breaker.Do(ctx, f)
}
