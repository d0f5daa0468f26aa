package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Client struct {
	httpClient *http.Client

	baseURL *url.URL

	timeout        time.Duration
	defaultHeaders http.Header
	userAgent      string

	retry      RetryConfig
	maxErrBody int64

	requestID RequestIDConfig

	rateLimiter RateLimiter
	before      []BeforeHook
	after       []AfterHook
}

// New builds a Client from DefaultConfig() plus opts.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o != nil {
			o.apply(&cfg)
		}
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Client, error) {
	var bu *url.URL
	if raw := strings.TrimSpace(cfg.BaseURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, &url.Error{Op: "parse", URL: cfg.BaseURL, Err: errors.New("base url must be absolute")}
		}
		// The base path is a prefix: "/v1beta/models" + "gemini-pro:x" must not drop "models".
		if u.Path != "" && !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		bu = u
	}

	rt := cfg.Transport
	if rt == nil {
		rt = DefaultTransport()
	}

	maxErrBody := cfg.MaxErrorBodyBytes
	if maxErrBody == 0 {
		maxErrBody = DefaultMaxErrorBodyBytes
	}

	c := &Client{
		httpClient:     &http.Client{Transport: rt},
		baseURL:        bu,
		timeout:        cfg.Timeout,
		defaultHeaders: cfg.DefaultHeaders.Clone(),
		userAgent:      cfg.UserAgent,
		retry:          cfg.Retry,
		maxErrBody:     maxErrBody,
		requestID:      cfg.RequestID,
	}
	if c.defaultHeaders == nil {
		c.defaultHeaders = make(http.Header)
	}
	if c.requestID.New == nil && c.requestID.Header != "" {
		c.requestID.New = DefaultRequestID
	}
	if c.retry.Backoff == nil {
		c.retry.Backoff = DefaultBackoff()
	}
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		c.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}
	return c, nil
}

// WithMiddleware wraps the underlying RoundTripper. Call it before the client
// is shared between goroutines.
func (c *Client) WithMiddleware(mws ...Middleware) *Client {
	if len(mws) == 0 {
		return c
	}
	rt := c.httpClient.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c.httpClient.Transport = chain(rt, mws)
	return c
}

// WithRateLimiter replaces the client-wide limiter.
func (c *Client) WithRateLimiter(rl RateLimiter) *Client {
	c.rateLimiter = rl
	return c
}

// WithHooks appends hooks; they run for every attempt.
func (c *Client) WithHooks(before []BeforeHook, after []AfterHook) *Client {
	c.before = append(c.before, before...)
	c.after = append(c.after, after...)
	return c
}

// Do mirrors net/http: transport failures are errors, non-2xx responses are
// returned as-is (after any status retries).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, modeRaw)
}

// DoStatus is Do with non-2xx responses converted into *Error. The error
// body is read (up to MaxErrorBodyBytes) and the connection released.
func (c *Client) DoStatus(req *http.Request) (*http.Response, error) {
	return c.do(req, modeStatus)
}

// DoStream is DoStatus for long-lived bodies such as text/event-stream. The
// client-wide Timeout is not applied; the request context (and
// WithRequestTimeout) stay in force until the caller closes resp.Body.
func (c *Client) DoStream(req *http.Request) (*http.Response, error) {
	return c.do(req, modeStream)
}

type doMode int

const (
	modeRaw doMode = iota
	modeStatus
	modeStream
)

func (c *Client) do(req *http.Request, mode doMode) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: nil request")
	}
	ctx := req.Context()

	timeouts := []time.Duration{requestTimeout(ctx)}
	if mode != modeStream {
		timeouts = append(timeouts, c.timeout)
	}
	cancel := context.CancelFunc(func() {})
	if dl, ok := earliestDeadline(ctx, timeouts...); ok {
		ctx, cancel = withEarlierDeadline(ctx, dl)
	}
	var handedOff bool
	defer func() {
		if !handedOff {
			cancel()
		}
	}()
	req = req.Clone(ctx)

	statusAsError := mode != modeRaw
	maxAttempts := max(c.retry.MaxAttempts, 1)
	started := time.Now()

	var (
		lastResp *http.Response
		lastErr  error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, c.transportError(req, err)
		}
		if attempt > 1 && c.retry.MaxElapsed > 0 && time.Since(started) > c.retry.MaxElapsed {
			break
		}
		if attempt > 1 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, errors.New("httpx: request body is not replayable (missing req.GetBody)")
			}
			b, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = b
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, c.transportError(req, err)
			}
		}
		for _, h := range c.before {
			if h == nil {
				continue
			}
			if err := h(req, attempt); err != nil {
				return nil, err
			}
		}

		t0 := time.Now()
		resp, err := c.httpClient.Do(req)
		dur := time.Since(t0)
		for _, h := range c.after {
			if h != nil {
				h(req, resp, err, dur, attempt)
			}
		}

		if err == nil && resp != nil {
			if c.accepts(resp.StatusCode, statusAsError) {
				handedOff = true
				resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
				return resp, nil
			}
		}
		lastResp, lastErr = resp, err

		retry := attempt < maxAttempts && c.retry.canRetryMethod(req.Method)
		if retry {
			switch {
			case err != nil:
				retry = shouldRetryNetErr(err)
			case resp != nil:
				retry = c.retry.canRetryStatus(resp.StatusCode)
			default:
				retry = false
			}
		}
		if retry && req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			retry = false
		}
		if !retry {
			break
		}

		// Drain so the connection can be reused by the next attempt.
		if resp != nil && resp.Body != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
		}

		wait := c.retry.Backoff.Next(attempt)
		if c.retry.RespectRetryAfter && resp != nil &&
			(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
			if ra, ok := parseRetryAfter(resp, time.Now()); ok {
				wait = ra
				if c.retry.MaxRetryAfter > 0 {
					wait = min(wait, c.retry.MaxRetryAfter)
				}
			}
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, c.transportError(req, err)
		}
	}

	if lastErr != nil {
		// http.Client may return a response alongside an error (redirect failures).
		if lastResp != nil && lastResp.Body != nil {
			_ = lastResp.Body.Close()
		}
		if !statusAsError {
			return nil, lastErr
		}
		he := c.transportError(req, lastErr)
		he.Retryable = shouldRetryNetErr(lastErr)
		return nil, he
	}
	if lastResp == nil {
		return nil, c.transportError(req, errors.New("no response"))
	}
	if !statusAsError {
		handedOff = true
		lastResp.Body = &cancelOnClose{ReadCloser: lastResp.Body, cancel: cancel}
		return lastResp, nil
	}
	retryable := c.retry.canRetryStatus(lastResp.StatusCode)
	return responseToError(req, lastResp, c.requestID.Header, c.maxErrBody, retryable)
}

// accepts reports whether a response is handed back as is. With
// statusAsError only 2xx qualifies; otherwise anything that is not a
// retryable failure does.
func (c *Client) accepts(code int, statusAsError bool) bool {
	if statusAsError {
		return code >= 200 && code < 300
	}
	return code < 400 || !c.retry.canRetryStatus(code)
}

func (c *Client) transportError(req *http.Request, err error) *Error {
	return &Error{
		Method:    req.Method,
		URL:       redactURL(req.URL.String()),
		RequestID: strings.TrimSpace(req.Header.Get(c.requestID.Header)),
		Cause:     err,
	}
}

func responseToError(req *http.Request, resp *http.Response, requestIDHeader string, maxErrBody int64, retryable bool) (*http.Response, error) {
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	var raw []byte
	if resp.Body != nil && maxErrBody > 0 {
		raw, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	}
	// Keep the captured bytes readable for callers without holding the socket.
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var rid string
	if requestIDHeader != "" {
		rid = strings.TrimSpace(resp.Header.Get(requestIDHeader))
		if rid == "" {
			rid = strings.TrimSpace(req.Header.Get(requestIDHeader))
		}
	}
	ra, _ := parseRetryAfter(resp, time.Now())

	return resp, &Error{
		Method:     req.Method,
		URL:        redactURL(req.URL.String()),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		RequestID:  rid,
		RetryAfter: ra,
		RawBody:    raw,
		Retryable:  retryable,
		Cause:      errors.New(http.StatusText(resp.StatusCode)),
	}
}

// cancelOnClose releases the per-request deadline once the body is done with.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.cancel)
	return err
}

func (c *Client) resolveURL(path string, q url.Values) (*url.URL, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("httpx: empty url/path")
	}
	u, err := url.Parse(p)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		if c.baseURL == nil {
			return nil, errors.New("httpx: relative path requires BaseURL")
		}
		rel := *u
		rel.Path = strings.TrimPrefix(rel.Path, "/")
		u = c.baseURL.ResolveReference(&rel)
	} else {
		cp := *u
		u = &cp
	}
	if q != nil {
		qq := u.Query()
		for k, vv := range q {
			for _, v := range vv {
				qq.Add(k, v)
			}
		}
		u.RawQuery = qq.Encode()
	}
	return u, nil
}

func withEarlierDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if existing, ok := ctx.Deadline(); ok && !existing.After(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

func earliestDeadline(base context.Context, timeouts ...time.Duration) (time.Time, bool) {
	now := time.Now()
	var earliest time.Time
	for _, d := range timeouts {
		if d <= 0 {
			continue
		}
		if dd := now.Add(d); earliest.IsZero() || dd.Before(earliest) {
			earliest = dd
		}
	}
	if earliest.IsZero() {
		// Only the caller's own deadline (if any) applies; nothing to add.
		return time.Time{}, false
	}
	if dl, ok := base.Deadline(); ok && dl.Before(earliest) {
		earliest = dl
	}
	return earliest, true
}
