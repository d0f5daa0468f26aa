package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lgc202/go-genai/version"
)

func newVersionCmd() *cobra.Command {
	var outputFormat string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			switch outputFormat {
			case "json":
				jsonStr, err := info.ToJSONIndent()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, jsonStr)
			case "short":
				fmt.Fprintln(out, info.ShortString())
			case "text", "":
				fmt.Fprintln(out, info.Text())
			default:
				return fmt.Errorf("unknown output format %q", outputFormat)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "输出格式 (text, json, short)")
	return cmd
}
