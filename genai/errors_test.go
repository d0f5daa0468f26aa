package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgc202/go-genai/httpx"
)

func TestParseErrorEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantMsg    string
		wantStatus string
	}{
		{
			name:       "google envelope",
			body:       `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			wantMsg:    "Resource has been exhausted",
			wantStatus: "RESOURCE_EXHAUSTED",
		},
		{
			name:       "array wrapped envelope",
			body:       `[{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}]`,
			wantMsg:    "bad",
			wantStatus: "INVALID_ARGUMENT",
		},
		{name: "plain text", body: "  quota exceeded\n", wantMsg: "quota exceeded"},
		{name: "json without envelope", body: `{"detail":"x"}`, wantMsg: `{"detail":"x"}`},
		{name: "empty", body: "", wantMsg: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, status := parseErrorEnvelope([]byte(tt.body))
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestNewAPIError_FromHTTPError(t *testing.T) {
	he := &httpx.Error{
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{"Retry-After": {"3"}, "X-Multi": {"a", "b"}},
		RequestID:  "rid-1",
		RetryAfter: 3 * time.Second,
		RawBody:    []byte(`{"error":{"message":"overloaded","status":"UNAVAILABLE"}}`),
	}
	err := classifyDoError("send request", fmt.Errorf("wrapped: %w", he))

	ae, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"retry-after": "3", "x-multi": "a, b"}, ae.Header)
	assert.Equal(t, "overloaded", ae.Message)
	assert.Equal(t, "UNAVAILABLE", ae.Status)
	assert.Equal(t, 3*time.Second, ae.RetryAfter)
	assert.Equal(t, "genai: http 503: overloaded (UNAVAILABLE) request_id=rid-1", ae.Error())
	assert.True(t, IsTemporary(err))
	assert.False(t, IsAuth(err))
	assert.False(t, IsRateLimit(err))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsRateLimit(&APIError{StatusCode: 400, Status: "RESOURCE_EXHAUSTED"}))
	assert.True(t, IsAuth(&APIError{StatusCode: 401}))
	assert.True(t, IsAuth(&APIError{StatusCode: 400, Status: "UNAUTHENTICATED"}))
	assert.False(t, IsTemporary(&APIError{StatusCode: 400}))
	assert.True(t, IsTemporary(&TransportError{Op: "send request", Cause: &httpx.Error{Method: "POST", Retryable: true}}))
	assert.False(t, IsTemporary(&TransportError{Op: "send request", Cause: &httpx.Error{Method: "POST", Cause: context.Canceled}}))
	assert.False(t, IsTemporary(&TransportError{Op: "read stream", Cause: errors.New("unexpected EOF")}))
	assert.False(t, IsRateLimit(errors.New("plain")))

	assert.True(t, IsRecoverable(fmt.Errorf("ctx: %w", &DecodeError{Cause: errors.New("x")})))
	assert.False(t, IsRecoverable(&TransportError{Op: "read stream"}))
	assert.False(t, IsRecoverable(ErrStreamClosed))
	assert.False(t, IsRecoverable(&ValidationError{Field: "model"}))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "genai: invalid request: model: must not be empty", (&ValidationError{Field: "model", Message: "must not be empty"}).Error())
	assert.Equal(t, "genai: read stream: EOF", (&TransportError{Op: "read stream", Cause: errors.New("EOF")}).Error())
	assert.Equal(t, "genai: http 429: Too Many Requests", (&APIError{StatusCode: 429}).Error())

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	msg := (&DecodeError{Raw: long, Cause: errors.New("bad")}).Error()
	assert.Less(t, len(msg), 300)
}

func TestWithContextCause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	readErr := errors.New("read tcp: use of closed network connection")

	assert.Same(t, readErr, withContextCause(ctx, readErr))

	cancel()
	err := withContextCause(ctx, readErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, readErr)

	already := fmt.Errorf("x: %w", context.Canceled)
	assert.Same(t, already, withContextCause(ctx, already))
}
