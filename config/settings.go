package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lgc202/go-genai/genai"
	"github.com/lgc202/go-genai/httpx"
)

// EnvPrefix 环境变量前缀，例如 GENAI_API_KEY、GENAI_RETRY_MAX_ATTEMPTS
const EnvPrefix = "GENAI"

// Settings go-genai 客户端与命令行的配置
type Settings struct {
	APIKey    string            `mapstructure:"api_key" json:"api_key"`
	BaseURL   string            `mapstructure:"base_url" json:"base_url"`
	Model     string            `mapstructure:"model" json:"model"`
	Timeout   time.Duration     `mapstructure:"timeout" json:"timeout"`
	Retry     RetrySettings     `mapstructure:"retry" json:"retry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit" json:"rate_limit"`
	Log       LogSettings       `mapstructure:"log" json:"log"`

	// Headers 附加到每个请求的请求头，例如 x-goog-user-project
	Headers map[string]string `mapstructure:"headers" json:"headers"`

	// RequestIDHeader 请求 ID 所在的请求头，为空时不生成请求 ID
	RequestIDHeader string `mapstructure:"request_id_header" json:"request_id_header"`
}

// RetrySettings 重试配置。生成请求都是 POST，默认不重试
type RetrySettings struct {
	MaxAttempts int  `mapstructure:"max_attempts" json:"max_attempts"`
	RetryPOST   bool `mapstructure:"retry_post" json:"retry_post"`
}

// RateLimitSettings 客户端限流，RPS 为 0 表示不限流
type RateLimitSettings struct {
	RPS   float64 `mapstructure:"rps" json:"rps"`
	Burst int     `mapstructure:"burst" json:"burst"`
}

// LogSettings 日志配置，format 可选 text、json、pretty
type LogSettings struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Defaults 默认值，key 与 mapstructure 标签一致
func Defaults() map[string]any {
	return map[string]any{
		"api_key":            "",
		"base_url":           genai.DefaultBaseURL,
		"model":              genai.DefaultModel,
		"timeout":            "60s",
		"retry.max_attempts": 3,
		"retry.retry_post":   false,
		"rate_limit.rps":     0,
		"rate_limit.burst":   1,
		"log.level":          "warn",
		"log.format":         "pretty",
		"request_id_header":  "X-Request-ID",
	}
}

// DefaultSettings 返回只包含默认值的配置
func DefaultSettings() Settings {
	return Settings{
		BaseURL:   genai.DefaultBaseURL,
		Model:     genai.DefaultModel,
		Timeout:   60 * time.Second,
		Retry:     RetrySettings{MaxAttempts: 3},
		RateLimit: RateLimitSettings{Burst: 1},
		Log:       LogSettings{Level: "warn", Format: "pretty"},

		RequestIDHeader: "X-Request-ID",
	}
}

// LoadSettings 按 默认值 < 配置文件 < 环境变量 的优先级加载配置。path 可以为空
func LoadSettings(path string, opts ...Option[Settings]) (*Config[Settings], error) {
	base := []Option[Settings]{
		WithDefaults[Settings](Defaults()),
		WithEnv[Settings](EnvPrefix),
		WithValidate(Settings.Validate),
	}
	return Load(path, append(base, opts...)...)
}

// Validate 校验配置。api_key 不在此校验，命令行参数可以覆盖它
func (s Settings) Validate() error {
	var errs []error
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("base_url: must be an absolute url, got %q", s.BaseURL))
		}
	}
	if s.Timeout < 0 {
		errs = append(errs, errors.New("timeout: must not be negative"))
	}
	if s.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry.max_attempts: must not be negative"))
	}
	if s.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("rate_limit.rps: must not be negative"))
	}
	if s.RateLimit.RPS > 0 && s.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst: must be at least 1 when rps is set"))
	}
	switch strings.ToLower(s.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", s.Log.Level))
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", s.Log.Format))
	}
	if !validHeaderName(s.RequestIDHeader) && s.RequestIDHeader != "" {
		errs = append(errs, fmt.Errorf("request_id_header: invalid header name %q", s.RequestIDHeader))
	}
	for name := range s.Headers {
		if !validHeaderName(name) {
			errs = append(errs, fmt.Errorf("headers: invalid header name %q", name))
		}
	}
	return errors.Join(errs...)
}

func validHeaderName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\r\n:")
}

// HTTPOptions 转换为 httpx 选项
func (s Settings) HTTPOptions() []httpx.Option {
	var opts []httpx.Option
	if s.Timeout > 0 {
		opts = append(opts, httpx.WithTimeout(s.Timeout))
	}

	retry := httpx.DefaultRetryConfig()
	retry.MaxAttempts = s.Retry.MaxAttempts
	if s.Retry.RetryPOST {
		retry = httpx.RetryPOST(retry)
	}
	opts = append(opts, httpx.WithRetry(retry))

	if s.RateLimit.RPS > 0 {
		opts = append(opts, httpx.WithRateLimit(s.RateLimit.RPS, s.RateLimit.Burst))
	}

	opts = append(opts, httpx.WithRequestID(httpx.RequestIDConfig{
		Header: s.RequestIDHeader,
		New:    httpx.DefaultRequestID,
	}))
	for name, value := range s.Headers {
		opts = append(opts, httpx.WithDefaultHeader(name, value))
	}
	return opts
}

// ClientOptions 转换为 genai 客户端选项
func (s Settings) ClientOptions() []genai.Option {
	opts := []genai.Option{genai.WithHTTPOptions(s.HTTPOptions()...)}
	if s.BaseURL != "" {
		opts = append(opts, genai.WithBaseURL(s.BaseURL))
	}
	if s.Model != "" {
		opts = append(opts, genai.WithDefaultModel(s.Model))
	}
	return opts
}
