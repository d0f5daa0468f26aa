// Package main 是 go-genai 的命令行工具：流式或一次性调用 generateContent。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lgc202/go-genai/config"
	"github.com/lgc202/go-genai/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// rootOptions 全局参数，命令行参数优先于环境变量和配置文件
type rootOptions struct {
	configPath string
	model      string
	apiKey     string
	baseURL    string
	trace      bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "genai",
		Short:        "调用 Gemini generateContent 接口",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "配置文件路径 (yaml, json, toml)")
	flags.StringVarP(&o.model, "model", "m", "", "模型名称，默认使用配置中的 model")
	flags.StringVar(&o.apiKey, "api-key", "", "API key，默认读取 GENAI_API_KEY")
	flags.StringVar(&o.baseURL, "base-url", "", "接口地址，默认读取配置中的 base_url")
	flags.BoolVar(&o.trace, "trace", false, "将 OpenTelemetry span 输出到 stderr")

	cmd.AddCommand(
		newStreamCmd(o),
		newGenerateCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// newClient 加载配置并创建客户端，返回的 cleanup 负责刷新 trace
func (o *rootOptions) newClient(cmd *cobra.Command) (*genai.Client, func(), error) {
	cfg, err := config.LoadSettings(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	s := cfg.Get()
	if o.model != "" {
		s.Model = o.model
	}
	if o.apiKey != "" {
		s.APIKey = o.apiKey
	}
	if o.baseURL != "" {
		s.BaseURL = o.baseURL
	}
	if s.APIKey == "" {
		return nil, nil, errors.New("missing api key: use --api-key, GENAI_API_KEY or api_key in the config file")
	}

	logger, err := newLogger(cmd.ErrOrStderr(), s.Log)
	if err != nil {
		return nil, nil, err
	}

	opts := append(s.ClientOptions(), genai.WithLogger(logger))
	cleanup := func() {}
	if o.trace {
		tp, err := newTracerProvider(cmd.ErrOrStderr())
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, genai.WithTracerProvider(tp))
		cleanup = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("trace shutdown failed", "error", err)
			}
		}
	}

	client, err := genai.New(s.APIKey, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Debug("client ready", "model", client.Model(), "config", cfg.Path())
	return client, cleanup, nil
}

// newLogger 使用 charmbracelet/log 作为 slog 的 handler
func newLogger(w io.Writer, s config.LogSettings) (*slog.Logger, error) {
	level := charmlog.WarnLevel
	if s.Level != "" {
		lvl, err := charmlog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		level = lvl
	}

	opts := charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "genai",
	}
	switch strings.ToLower(s.Format) {
	case "json":
		opts.Formatter = charmlog.JSONFormatter
	case "text":
		opts.Formatter = charmlog.LogfmtFormatter
	case "", "pretty":
		opts.Formatter = charmlog.TextFormatter
	default:
		return nil, fmt.Errorf("log.format: unknown format %q", s.Format)
	}
	return slog.New(charmlog.NewWithOptions(w, opts)), nil
}
