package genai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lgc202/go-genai/httpx"
)

// ErrStreamClosed is returned by Recv after Close.
var ErrStreamClosed = errors.New("genai: stream closed")

// ValidationError reports a request rejected locally, before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("genai: invalid request: %s: %s", e.Field, e.Message)
}

// TransportError is a network-level failure: the request could not be sent,
// or the response body broke off mid-stream.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return "genai: " + e.Op + " failed"
	}
	return fmt.Sprintf("genai: %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// APIError is a non-success HTTP status from the service.
type APIError struct {
	StatusCode int

	// Status is the google.rpc code name from the error envelope, e.g. RESOURCE_EXHAUSTED.
	Status string

	// Message comes from the error envelope, falling back to the raw body text.
	Message string

	// Header holds the response headers with lower-cased names.
	Header map[string]string

	// Body is the response body, truncated to the transport's error body limit.
	Body []byte

	RequestID  string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "genai: http %d", e.StatusCode)
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Status != "" {
		b.WriteString(" (")
		b.WriteString(e.Status)
		b.WriteString(")")
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	return b.String()
}

// DecodeError is a frame whose payload could not be turned into a chunk.
// The stream keeps going after one.
type DecodeError struct {
	Raw   []byte
	Cause error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	raw := string(e.Raw)
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("genai: decode chunk: %v: %q", e.Cause, raw)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsRateLimit(err error) bool {
	ae, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return ae.StatusCode == http.StatusTooManyRequests || ae.Status == "RESOURCE_EXHAUSTED"
}

func IsAuth(err error) bool {
	ae, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch ae.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return ae.Status == "UNAUTHENTICATED" || ae.Status == "PERMISSION_DENIED"
}

// IsTemporary reports whether retrying the same call later may succeed: a
// retryable status, or a transport failure the HTTP layer marked retryable
// (connection reset or refused, network timeout).
func IsTemporary(err error) bool {
	ae, ok := AsAPIError(err)
	if !ok {
		return httpx.IsRetryable(err)
	}
	switch ae.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsRecoverable reports whether a stream that returned err can still be
// pulled for more chunks.
func IsRecoverable(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func newAPIError(he *httpx.Error) *APIError {
	msg, status := parseErrorEnvelope(he.RawBody)
	return &APIError{
		StatusCode: he.StatusCode,
		Status:     status,
		Message:    msg,
		Header:     he.LowerHeaders(),
		Body:       append([]byte(nil), he.RawBody...),
		RequestID:  he.RequestID,
		RetryAfter: he.RetryAfter,
	}
}

// classifyDoError maps a transport-layer error into the genai taxonomy.
func classifyDoError(op string, err error) error {
	if he, ok := httpx.AsError(err); ok && he.StatusCode != 0 {
		return newAPIError(he)
	}
	return &TransportError{Op: op, Cause: err}
}

// parseErrorEnvelope reads {"error":{"code":..,"message":..,"status":..}}.
// A body that is not an envelope becomes the message verbatim.
func parseErrorEnvelope(raw []byte) (message, status string) {
	if gjson.ValidBytes(raw) {
		env := gjson.GetBytes(raw, "error")
		if env.IsObject() {
			return env.Get("message").String(), env.Get("status").String()
		}
		// Some proxies wrap the envelope in a one-element array.
		if env = gjson.GetBytes(raw, "0.error"); env.IsObject() {
			return env.Get("message").String(), env.Get("status").String()
		}
	}
	return strings.TrimSpace(string(raw)), ""
}

// inBandError extracts an error delivered as a stream payload. The envelope is
// usually an object, but an "error" key of any type counts.
func inBandError(payload []byte) error {
	env := gjson.GetBytes(payload, "error")
	if !env.Exists() {
		return nil
	}
	if !env.IsObject() {
		msg := env.String()
		if env.Type == gjson.Null || msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("service reported error: %s", msg)
	}
	msg := env.Get("message").String()
	if msg == "" {
		msg = "unknown error"
	}
	if status := env.Get("status").String(); status != "" {
		return fmt.Errorf("service reported error: %s (%s)", msg, status)
	}
	return fmt.Errorf("service reported error: %s", msg)
}
