package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error describes a failed exchange: either a transport failure (StatusCode
// == 0) or a non-2xx response.
type Error struct {
	Method string
	URL    string

	StatusCode int

	// Header is a copy of the response headers (nil for transport failures).
	Header http.Header

	// RequestID comes from the response, falling back to the request, using RequestIDConfig.Header.
	RequestID string

	RetryAfter time.Duration

	// RawBody is at most MaxErrorBodyBytes of the response body.
	RawBody []byte

	Cause error

	// Retryable marks a transient failure: a retryable status or a reset,
	// refused or timed out connection. It does not consult the method
	// policy, so a POST can be Retryable even though it was not retried.
	Retryable bool
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if m := strings.TrimSpace(e.Method); m != "" {
		b.WriteString(strings.ToUpper(m))
		b.WriteString(" ")
	}
	if u := strings.TrimSpace(redactURL(e.URL)); u != "" {
		b.WriteString(u)
		b.WriteString(": ")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "http %d", e.StatusCode)
		if t := http.StatusText(e.StatusCode); t != "" {
			b.WriteString(" ")
			b.WriteString(t)
		}
	} else {
		b.WriteString("request failed")
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	if e.Cause != nil && e.StatusCode == 0 {
		b.WriteString(": ")
		b.WriteString(causeText(e.Cause))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// LowerHeaders flattens Header into a map keyed by lower-cased names.
// Multiple values are joined with ", ".
func (e *Error) LowerHeaders() map[string]string {
	if e == nil || e.Header == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(e.Header))
	for k, vv := range e.Header {
		out[strings.ToLower(k)] = strings.Join(vv, ", ")
	}
	return out
}

func AsError(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsRetryable reports whether err wraps an *Error marked Retryable.
func IsRetryable(err error) bool {
	he, ok := AsError(err)
	return ok && he.Retryable
}

// redactURL hides the "key" query parameter; model endpoints carry the API key there.
func redactURL(raw string) string {
	i := strings.Index(raw, "key=")
	if i < 0 || (i > 0 && raw[i-1] != '?' && raw[i-1] != '&') {
		return raw
	}
	end := strings.IndexByte(raw[i:], '&')
	if end < 0 {
		return raw[:i] + "key=REDACTED"
	}
	return raw[:i] + "key=REDACTED" + raw[i+end:]
}

// causeText drops the URL that *url.Error prepends to its message.
func causeText(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
