package config

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgc202/go-genai/genai"
)

// clearEnv 清空 GENAI_* 环境变量，空值在 viper 中视为未设置
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range Defaults() {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadSettings_DefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), cfg.Get())
	assert.Empty(t, cfg.Path())
}

func TestLoadSettings_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "genai.yaml")
	writeFile(t, path, `
model: gemini-1.5-flash
timeout: 10s
retry:
  max_attempts: 5
  retry_post: true
rate_limit:
  rps: 2.5
  burst: 4
log:
  level: debug
`)
	t.Setenv("GENAI_MODEL", "gemini-2.0-flash")
	t.Setenv("GENAI_API_KEY", "from-env")

	cfg, err := LoadSettings(path)
	require.NoError(t, err)

	s := cfg.Get()
	assert.Equal(t, "gemini-2.0-flash", s.Model)
	assert.Equal(t, "from-env", s.APIKey)
	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.Equal(t, RetrySettings{MaxAttempts: 5, RetryPOST: true}, s.Retry)
	assert.Equal(t, RateLimitSettings{RPS: 2.5, Burst: 4}, s.RateLimit)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "pretty", s.Log.Format)
	assert.Equal(t, genai.DefaultBaseURL, s.BaseURL)
}

func TestLoadSettings_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "genai.yaml")
	writeFile(t, path, "base_url: not-a-url\nlog:\n  level: loud\n")

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoadSettings_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGet_ReturnsCopy(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadSettings("")
	require.NoError(t, err)

	s := cfg.Get()
	s.Model = "changed"
	assert.Equal(t, genai.DefaultModel, cfg.Get().Model)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "negative timeout", mutate: func(s *Settings) { s.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "negative attempts", mutate: func(s *Settings) { s.Retry.MaxAttempts = -1 }, wantErr: "retry.max_attempts"},
		{name: "rps without burst", mutate: func(s *Settings) { s.RateLimit = RateLimitSettings{RPS: 1} }, wantErr: "rate_limit.burst"},
		{name: "bad format", mutate: func(s *Settings) { s.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "relative base url", mutate: func(s *Settings) { s.BaseURL = "/v1beta" }, wantErr: "base_url"},
		{name: "upper case level", mutate: func(s *Settings) { s.Log.Level = "INFO" }},
		{name: "request id disabled", mutate: func(s *Settings) { s.RequestIDHeader = "" }},
		{name: "bad request id header", mutate: func(s *Settings) { s.RequestIDHeader = "X Request" }, wantErr: "request_id_header"},
		{name: "bad header name", mutate: func(s *Settings) { s.Headers = map[string]string{"a:b": "c"} }, wantErr: "headers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings_ClientOptions(t *testing.T) {
	s := DefaultSettings()
	s.Model = "gemini-1.5-pro"
	s.BaseURL = "https://proxy.example.test/v1beta/models"
	s.RateLimit = RateLimitSettings{RPS: 5, Burst: 2}

	assert.Len(t, s.HTTPOptions(), 4)

	c, err := genai.New("k", s.ClientOptions()...)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", c.Model())

	s.BaseURL = "::bad"
	_, err = genai.New("k", s.ClientOptions()...)
	assert.Error(t, err)
}

func TestSettings_HeadersReachTheWire(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "genai.yaml")
	writeFile(t, path, `
request_id_header: X-Correlation-ID
headers:
  x-goog-user-project: billing-project
`)
	cfg, err := LoadSettings(path)
	require.NoError(t, err)
	s := cfg.Get()
	assert.Equal(t, map[string]string{"x-goog-user-project": "billing-project"}, s.Headers)

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	t.Cleanup(srv.Close)

	s.BaseURL = srv.URL
	c, err := genai.New("k", s.ClientOptions()...)
	require.NoError(t, err)
	resp, err := c.GenerateContent(t.Context(), &genai.GenerateContentRequest{Contents: genai.Text("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())

	assert.Equal(t, "billing-project", got.Get("X-Goog-User-Project"))
	assert.Len(t, got.Get("X-Correlation-ID"), 36)
	assert.Empty(t, got.Get("X-Request-ID"))
}

func TestOnChange_HotReload(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "genai.yaml")
	writeFile(t, path, "model: gemini-pro\n")

	errs := make(chan error, 4)
	cfg, err := LoadSettings(path, WithErrorHandler[Settings](func(err error) { errs <- err }))
	require.NoError(t, err)

	changes := make(chan [2]string, 4)
	cfg.OnChange(func(old, new Settings) {
		if Changed(old.Model, new.Model) {
			changes <- [2]string{old.Model, new.Model}
		}
	})
	cfg.OnChange(func(Settings, Settings) { panic("watcher panics are contained") })

	writeFile(t, path, "model: gemini-1.5-flash\n")
	select {
	case got := <-changes:
		assert.Equal(t, [2]string{"gemini-pro", "gemini-1.5-flash"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
	assert.Equal(t, "gemini-1.5-flash", cfg.Get().Model)

	writeFile(t, path, "model: gemini-pro\nlog:\n  format: xml\n")
	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "log.format")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload error")
	}
	assert.Equal(t, "gemini-1.5-flash", cfg.Get().Model)
}
