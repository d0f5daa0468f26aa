package genai

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lgc202/go-genai/httpx"
)

const (
	opGenerate = "generateContent"
	opStream   = "streamGenerateContent"
)

func validateRequest(req *GenerateContentRequest) error {
	if req == nil {
		return &ValidationError{Field: "request", Message: "must not be nil"}
	}
	if strings.TrimSpace(modelID(req.Model)) == "" {
		return &ValidationError{Field: "model", Message: "must not be empty"}
	}
	if len(req.Contents) == 0 {
		return &ValidationError{Field: "contents", Message: "must contain at least one message"}
	}
	for i, c := range req.Contents {
		if c == nil {
			return &ValidationError{Field: "contents", Message: "nil message at index " + strconv.Itoa(i)}
		}
	}
	return nil
}

// modelID accepts both "gemini-pro" and the resource form "models/gemini-pro".
func modelID(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}

// endpoint is everything the builder needs besides the request value.
type endpoint struct {
	baseURL   string
	apiKey    string
	userAgent string
}

func (ep endpoint) methodURL(model, op string) string {
	return strings.TrimRight(ep.baseURL, "/") + "/" + modelID(model) + ":" + op
}

// newStreamRequest builds POST <base>/<model>:streamGenerateContent?alt=sse&key=<apiKey>.
// It performs no I/O.
func newStreamRequest(ctx context.Context, hc *httpx.Client, ep endpoint, req *GenerateContentRequest) (*http.Request, error) {
	return newRequest(ctx, hc, ep, opStream, req,
		httpx.WithQueryParam("alt", "sse"),
		httpx.WithHeader("Accept", "text/event-stream"),
	)
}

// newGenerateRequest builds POST <base>/<model>:generateContent?key=<apiKey>.
func newGenerateRequest(ctx context.Context, hc *httpx.Client, ep endpoint, req *GenerateContentRequest) (*http.Request, error) {
	return newRequest(ctx, hc, ep, opGenerate, req,
		httpx.WithHeader("Accept", "application/json"),
	)
}

func newRequest(ctx context.Context, hc *httpx.Client, ep endpoint, op string, req *GenerateContentRequest, extra ...httpx.RequestOption) (*http.Request, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	opts := append([]httpx.RequestOption{httpx.WithJSON(req)}, extra...)
	if ep.apiKey != "" {
		opts = append(opts, httpx.WithQueryParam("key", ep.apiKey))
	}
	if ep.userAgent != "" {
		opts = append(opts, httpx.WithHeader("User-Agent", ep.userAgent))
	}
	r, err := hc.NewRequest(ctx, http.MethodPost, ep.methodURL(req.Model, op), opts...)
	if err != nil {
		return nil, fmt.Errorf("genai: build %s request: %w", op, err)
	}
	return r, nil
}
