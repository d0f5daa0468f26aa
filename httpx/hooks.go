package httpx

import (
	"context"
	"net/http"
	"time"
)

// RateLimiter throttles outgoing attempts. Wait blocks until a token is
// available or ctx is done. *golang.org/x/time/rate.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// BeforeHook runs before every attempt. Returning an error aborts the request.
type BeforeHook func(req *http.Request, attempt int) error

// AfterHook runs after every attempt, including failed ones. For streaming
// requests dur covers the time to response headers only.
type AfterHook func(req *http.Request, resp *http.Response, err error, dur time.Duration, attempt int)

type Middleware func(next http.RoundTripper) http.RoundTripper

func chain(rt http.RoundTripper, mws []Middleware) http.RoundTripper {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			rt = mws[i](rt)
		}
	}
	return rt
}
