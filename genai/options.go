package genai

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/lgc202/go-genai/httpx"
)

type Option func(*Client) error

// WithBaseURL overrides the models endpoint, e.g. a proxy or a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(strings.TrimSpace(baseURL))
		if err != nil {
			return err
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.New("genai: base url must be absolute")
		}
		c.ep.baseURL = strings.TrimRight(u.String(), "/")
		return nil
	}
}

func WithAPIKey(apiKey string) Option {
	return func(c *Client) error {
		c.ep.apiKey = strings.TrimSpace(apiKey)
		return nil
	}
}

// WithDefaultModel sets the model used when a request leaves Model empty.
func WithDefaultModel(model string) Option {
	return func(c *Client) error {
		c.model = model
		return nil
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.ep.userAgent = ua
		return nil
	}
}

// WithHTTPClient replaces the transport entirely; WithHTTPOptions is then ignored.
func WithHTTPClient(hc *httpx.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("genai: nil http client")
		}
		c.hc = hc
		return nil
	}
}

// WithHTTPOptions tunes the default transport (timeouts, retries, rate limit).
func WithHTTPOptions(opts ...httpx.Option) Option {
	return func(c *Client) error {
		c.httpOpts = append(c.httpOpts, opts...)
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) error {
		if tp != nil {
			c.tp = tp
		}
		return nil
	}
}

func WithUsageListener(l UsageListener) Option {
	return func(c *Client) error {
		c.usage = l
		return nil
	}
}
