package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/lgc202/go-genai/genai"
)

// genOptions 生成参数，未显式设置的参数不会出现在请求中
type genOptions struct {
	system      string
	temperature float64
	topP        float64
	maxTokens   int32
	usage       bool
}

func (g *genOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&g.system, "system", "s", "", "system instruction")
	f.Float64Var(&g.temperature, "temperature", 0, "采样温度")
	f.Float64Var(&g.topP, "top-p", 0, "nucleus sampling")
	f.Int32Var(&g.maxTokens, "max-tokens", 0, "最大输出 token 数")
	f.BoolVarP(&g.usage, "usage", "u", false, "结束后在 stderr 输出用量统计")
}

func (g *genOptions) request(cmd *cobra.Command, prompt string) *genai.GenerateContentRequest {
	req := &genai.GenerateContentRequest{Contents: genai.Text(prompt)}
	if g.system != "" {
		req.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewTextPart(g.system)}}
	}

	f := cmd.Flags()
	var gc genai.GenerationConfig
	set := false
	if f.Changed("temperature") {
		gc.Temperature, set = genai.Ptr(g.temperature), true
	}
	if f.Changed("top-p") {
		gc.TopP, set = genai.Ptr(g.topP), true
	}
	if f.Changed("max-tokens") {
		gc.MaxOutputTokens, set = genai.Ptr(g.maxTokens), true
	}
	if set {
		req.GenerationConfig = &gc
	}
	return req
}

// readPrompt 拼接参数作为 prompt；没有参数或参数为 "-" 时读取 stdin
func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" || prompt == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = strings.TrimSpace(string(b))
	}
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return prompt, nil
}

func newStreamCmd(o *rootOptions) *cobra.Command {
	g := &genOptions{}
	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "流式输出模型回复",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			client, cleanup, err := o.newClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			stream, err := client.GenerateContentStream(cmd.Context(), g.request(cmd, prompt))
			if err != nil {
				return err
			}
			defer stream.Close()

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			var acc genai.Accumulator
			for chunk, err := range stream.All() {
				if err != nil {
					if genai.IsRecoverable(err) {
						acc.DecodeErrors++
						fmt.Fprintf(errOut, "skipped chunk: %v\n", err)
						continue
					}
					fmt.Fprintln(out)
					return err
				}
				acc.Apply(chunk)
				fmt.Fprint(out, chunk.Text())
			}
			fmt.Fprintln(out)

			if g.usage {
				printSummary(errOut, client.Model(), acc.Response(), acc.Chunks, acc.DecodeErrors)
			}
			return nil
		},
	}
	g.bind(cmd)
	return cmd
}

func newGenerateCmd(o *rootOptions) *cobra.Command {
	g := &genOptions{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "一次性获取完整回复",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			client, cleanup, err := o.newClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := client.GenerateContent(cmd.Context(), g.request(cmd, prompt))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				b, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			} else {
				fmt.Fprintln(out, resp.Text())
			}

			if g.usage {
				printSummary(cmd.ErrOrStderr(), client.Model(), resp, 1, 0)
			}
			return nil
		},
	}
	g.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "输出完整的 JSON 响应")
	return cmd
}

// printSummary 以表格形式输出模型、用量和结束原因
func printSummary(w io.Writer, model string, resp *genai.GenerateContentResponse, chunks, skipped int) {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "

	table.AddRow("model:", model)
	if resp.ModelVersion != "" {
		table.AddRow("modelVersion:", resp.ModelVersion)
	}
	table.AddRow("chunks:", chunks)
	if skipped > 0 {
		table.AddRow("skipped:", skipped)
	}
	if u := resp.UsageMetadata; u != nil {
		addCount(table, "promptTokens:", u.PromptTokenCount)
		addCount(table, "cachedTokens:", u.CachedContentTokenCount)
		addCount(table, "candidatesTokens:", u.CandidatesTokenCount)
		addCount(table, "thoughtsTokens:", u.ThoughtsTokenCount)
		addCount(table, "totalTokens:", u.TotalTokenCount)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		table.AddRow("finishReason:", resp.Candidates[0].FinishReason)
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		table.AddRow("blockReason:", pf.BlockReason)
	}
	fmt.Fprintln(w, table)
}

// addCount 只输出服务端返回的计数
func addCount(table *uitable.Table, label string, n *int32) {
	if n != nil {
		table.AddRow(label, *n)
	}
}
