package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgc202/go-genai/httpx"
)

func testEndpoint() endpoint {
	return endpoint{baseURL: "https://example.test/v1beta/models/", apiKey: "k3y", userAgent: "go-genai/test"}
}

func TestNewStreamRequest(t *testing.T) {
	hc, err := httpx.New()
	require.NoError(t, err)

	req, err := newStreamRequest(context.Background(), hc, testEndpoint(), &GenerateContentRequest{
		Model:            "gemini-pro",
		Contents:         Text("hi"),
		GenerationConfig: &GenerationConfig{Temperature: Ptr(0.5)},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://example.test/v1beta/models/gemini-pro:streamGenerateContent?alt=sse&key=k3y", req.URL.String())
	assert.Equal(t, "text/event-stream", req.Header.Get("Accept"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "go-genai/test", req.Header.Get("User-Agent"))
	assert.NotEmpty(t, hc.RequestID(req))

	// The body can be read twice, which retries depend on.
	for range 2 {
		body, err := req.GetBody()
		require.NoError(t, err)
		b, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"contents":[{"role":"user","parts":[{"text":"hi"}]}],"generationConfig":{"temperature":0.5}}`, string(b))
	}
}

func TestNewGenerateRequest(t *testing.T) {
	hc, err := httpx.New()
	require.NoError(t, err)

	ep := testEndpoint()
	ep.apiKey = ""
	req, err := newGenerateRequest(context.Background(), hc, ep, &GenerateContentRequest{Model: "models/gemini-pro", Contents: Text("hi")})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/v1beta/models/gemini-pro:generateContent", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestNewRequest_MarshalFailureIsWrapped(t *testing.T) {
	hc, err := httpx.New()
	require.NoError(t, err)

	_, err = newStreamRequest(context.Background(), hc, testEndpoint(), &GenerateContentRequest{
		Model:    "gemini-pro",
		Contents: []*Content{NewUserContent(NewFunctionCallPart("f", map[string]any{"bad": make(chan int)}))},
	})
	require.Error(t, err)
	var ute *json.UnsupportedTypeError
	assert.ErrorAs(t, err, &ute)
}

func TestModelID(t *testing.T) {
	assert.Equal(t, "gemini-pro", modelID("gemini-pro"))
	assert.Equal(t, "gemini-pro", modelID(" models/gemini-pro "))
	assert.Equal(t, "", modelID("models/"))
}
