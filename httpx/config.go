package httpx

import (
	"net/http"
	"time"
)

// Config configures a Client. Start from DefaultConfig().
type Config struct {
	// BaseURL is optional. Relative request paths are resolved against it.
	BaseURL string

	// Timeout bounds a whole unary request, retries included. The earlier of
	// this and the request context deadline wins. Streaming requests ignore it:
	// a stream lives as long as its caller's context and its body.
	Timeout time.Duration

	// Transport is the underlying RoundTripper. Nil means DefaultTransport().
	Transport http.RoundTripper

	// DefaultHeaders are copied into every request; request headers win.
	DefaultHeaders http.Header

	// UserAgent is set when the request carries none.
	UserAgent string

	Retry RetryConfig

	// RateLimit installs a token bucket when RPS > 0.
	RateLimit RateLimitConfig

	// MaxErrorBodyBytes caps how much of a non-2xx body is kept in Error.RawBody.
	// Zero means DefaultMaxErrorBodyBytes; negative keeps nothing.
	MaxErrorBodyBytes int64

	RequestID RequestIDConfig
}

type RateLimitConfig struct {
	// RPS is the sustained number of attempts per second.
	RPS float64
	// Burst defaults to 1 when RPS is set.
	Burst int
}

const DefaultMaxErrorBodyBytes int64 = 64 << 10 // 64KiB

func DefaultConfig() Config {
	return Config{
		Timeout:           2 * time.Minute,
		Transport:         DefaultTransport(),
		DefaultHeaders:    make(http.Header),
		Retry:             DefaultRetryConfig(),
		MaxErrorBodyBytes: DefaultMaxErrorBodyBytes,
		RequestID:         DefaultRequestIDConfig(),
	}
}
