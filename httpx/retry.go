package httpx

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

type RetryConfig struct {
	// MaxAttempts counts the first attempt too. <= 1 disables retries.
	MaxAttempts int

	// MaxElapsed bounds the time spent across attempts and sleeps. Zero means unbounded.
	MaxElapsed time.Duration

	// Methods eligible for retries. Empty means the idempotent set; generation
	// calls are POSTs, so callers opt in explicitly.
	Methods map[string]bool

	// StatusCodes eligible for retries. Empty means 408, 429, 500, 502, 503, 504.
	StatusCodes map[int]bool

	// Backoff defaults to DefaultBackoff().
	Backoff Backoff

	// RespectRetryAfter sleeps for Retry-After on 429/503 when the header is present.
	RespectRetryAfter bool

	// MaxRetryAfter caps Retry-After. Zero means no cap.
	MaxRetryAfter time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		Methods:           defaultRetryMethods(),
		StatusCodes:       defaultRetryStatusCodes(),
		Backoff:           DefaultBackoff(),
		RespectRetryAfter: true,
		MaxRetryAfter:     30 * time.Second,
	}
}

// RetryPOST returns cfg with POST added to the retryable methods.
func RetryPOST(cfg RetryConfig) RetryConfig {
	methods := make(map[string]bool, len(cfg.Methods)+1)
	if len(cfg.Methods) == 0 {
		for m := range defaultRetryMethods() {
			methods[m] = true
		}
	}
	for m, ok := range cfg.Methods {
		methods[m] = ok
	}
	methods[http.MethodPost] = true
	cfg.Methods = methods
	return cfg
}

func defaultRetryMethods() map[string]bool {
	return map[string]bool{
		http.MethodGet:     true,
		http.MethodHead:    true,
		http.MethodPut:     true,
		http.MethodDelete:  true,
		http.MethodOptions: true,
	}
}

func defaultRetryStatusCodes() map[int]bool {
	return map[int]bool{
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	}
}

type Backoff interface {
	// Next returns the sleep before retry number attempt (1 for the first retry).
	Next(attempt int) time.Duration
}

type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64 // fraction in [0, 1]
}

func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Base:   500 * time.Millisecond,
		Max:    8 * time.Second,
		Jitter: 0.2,
	}
}

var (
	jitterMu  sync.Mutex
	jitterRng = rand.New(rand.NewPCG(seed64(), seed64()))
)

func seed64() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:])
	}
	return uint64(time.Now().UnixNano())
}

func jitterFloat64() float64 {
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return jitterRng.Float64()
}

func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base, ceil := b.Base, b.Max
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if ceil <= 0 {
		ceil = 8 * time.Second
	}

	d := base
	for i := 1; i < attempt && d < ceil; i++ {
		d *= 2
	}
	d = min(d, ceil)

	j := min(b.Jitter, 1)
	if j <= 0 {
		return d
	}
	f := max(1+(jitterFloat64()*2-1)*j, 0)
	return time.Duration(float64(d) * f)
}

func (c RetryConfig) canRetryMethod(method string) bool {
	if c.MaxAttempts <= 1 {
		return false
	}
	m := strings.ToUpper(strings.TrimSpace(method))
	methods := c.Methods
	if len(methods) == 0 {
		methods = defaultRetryMethods()
	}
	return m != "" && methods[m]
}

func (c RetryConfig) canRetryStatus(code int) bool {
	statuses := c.StatusCodes
	if len(statuses) == 0 {
		statuses = defaultRetryStatusCodes()
	}
	return statuses[code]
}

func shouldRetryNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func parseRetryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0), true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
