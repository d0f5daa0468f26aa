package genai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lgc202/go-genai/httpx"
	"github.com/lgc202/go-genai/version"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel   = "gemini-pro"

	tracerName = "github.com/lgc202/go-genai/genai"
)

// UsageListener receives the final token usage of every call that reported one.
type UsageListener interface {
	OnUsage(model string, usage *UsageMetadata)
}

type UsageListenerFunc func(model string, usage *UsageMetadata)

func (f UsageListenerFunc) OnUsage(model string, usage *UsageMetadata) { f(model, usage) }

// Client is immutable after New and safe for concurrent use. Every call gets
// its own request, connection and Stream.
type Client struct {
	ep    endpoint
	model string

	hc       *httpx.Client
	httpOpts []httpx.Option

	logger *slog.Logger
	tp     trace.TracerProvider
	tracer trace.Tracer
	usage  UsageListener
}

func New(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		ep: endpoint{
			baseURL:   DefaultBaseURL,
			apiKey:    apiKey,
			userAgent: version.UserAgent(),
		},
		model:  DefaultModel,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tp:     otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.hc == nil {
		hc, err := httpx.New(c.httpOpts...)
		if err != nil {
			return nil, err
		}
		c.hc = hc
	}
	c.tracer = c.tp.Tracer(tracerName, trace.WithInstrumentationVersion(version.Get().ShortString()))
	return c, nil
}

// Model returns the model used for requests that do not name one.
func (c *Client) Model() string { return c.model }

// withDefaults returns a shallow copy of req with the default model filled in.
func (c *Client) withDefaults(req *GenerateContentRequest) *GenerateContentRequest {
	if req == nil {
		return nil
	}
	r := *req
	if r.Model == "" {
		r.Model = c.model
	}
	return &r
}

// GenerateContentStream validates and builds the request, and returns a
// Stream that sends it on the first Recv. Validation errors are returned here
// and nothing is sent.
func (c *Client) GenerateContentStream(ctx context.Context, req *GenerateContentRequest) (*Stream, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req = c.withDefaults(req)
	hreq, err := newStreamRequest(ctx, c.hc, c.ep, req)
	if err != nil {
		return nil, err
	}
	return newStream(hreq.Context(), streamConfig{
		model:     modelID(req.Model),
		requestID: c.hc.RequestID(hreq),
		open: func(ctx context.Context) (*http.Response, error) {
			return c.hc.DoStream(hreq.WithContext(ctx))
		},
		logger: c.logger,
		tracer: c.tracer,
		usage:  c.usage,
	}), nil
}

// GenerateContent performs a single-shot call and decodes one response.
func (c *Client) GenerateContent(ctx context.Context, req *GenerateContentRequest) (resp *GenerateContentResponse, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req = c.withDefaults(req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	model := modelID(req.Model)

	ctx, span := c.tracer.Start(ctx, "genai.GenerateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gen_ai.system", "gemini"), attribute.String("gen_ai.request.model", model)),
	)
	defer func() { endSpan(span, err) }()

	hreq, err := newGenerateRequest(ctx, c.hc, c.ep, req)
	if err != nil {
		return nil, err
	}
	log := c.logger.With("model", model, "request_id", c.hc.RequestID(hreq))
	log.Debug("genai generate start")

	hresp, err := c.hc.DoStatus(hreq)
	if err != nil {
		err = classifyDoError("send request", withContextCause(ctx, err))
		logCallError(log, err)
		return nil, err
	}
	defer hresp.Body.Close()

	raw, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Cause: withContextCause(ctx, err)}
	}
	resp, err = decodeChunk(raw)
	if err != nil {
		log.Debug("genai generate decode failed", "error", err)
		return nil, err
	}
	if resp.UsageMetadata != nil {
		setUsageAttributes(span, resp.UsageMetadata)
		if c.usage != nil {
			c.usage.OnUsage(model, resp.UsageMetadata)
		}
	}
	log.Debug("genai generate done", "candidates", len(resp.Candidates))
	return resp, nil
}

func logCallError(log *slog.Logger, err error) {
	var ae *APIError
	if errors.As(err, &ae) {
		log.Warn("genai api error", "status", ae.StatusCode, "message", ae.Message)
		return
	}
	log.Debug("genai transport error", "error", err)
}
