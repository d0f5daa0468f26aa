// Package httpx is the HTTP transport used by the genai client.
//
// It owns everything below the wire protocol:
//   - a tuned, reusable *http.Transport
//   - request construction against an optional base URL with default headers
//   - retries with exponential backoff, jitter and Retry-After (idempotent methods by default)
//   - client-side rate limiting (any RateLimiter, e.g. *rate.Limiter)
//   - an *Error carrying status, headers, request id and a bounded copy of the body
//   - long-lived streaming responses whose deadline is released when the body is closed
//   - before/after hooks and RoundTripper middleware for logging, metrics and tracing
package httpx
