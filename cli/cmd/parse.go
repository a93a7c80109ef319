/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lognitor/go-tracer/stack"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an engine stack string into frames",
	Long: `Parse a Chrome, Gecko or WinJS stack string read from a file or stdin and
print the normalized stack info as JSON. A leading "Type: message" line is used
as the error type and message unless --name or --message is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return fmt.Errorf("failed to read stack: %w", err)
		}

		name, _ := cmd.Flags().GetString("name")
		message, _ := cmd.Flags().GetString("message")
		origin, _ := cmd.Flags().GetString("url")

		info := parseStackInfo(string(data), name, message)
		info.URL = origin

		return printJSON(cmd, info)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().String("name", "", "error type, e.g. TypeError")
	parseCmd.Flags().String("message", "", "error message")
	parseCmd.Flags().String("url", "", "document url the error was raised on")
}

func parseStackInfo(text, name, message string) *stack.StackInfo {
	if name == "" && message == "" {
		first, _, _ := strings.Cut(text, "\n")
		first = strings.TrimSpace(first)
		if _, ok := stack.ParseLine(first); !ok && first != "" {
			name, message = stack.SplitMessage(first)
		}
	}

	frames := stack.ParseStack(text)
	return &stack.StackInfo{
		Type:       name,
		Message:    message,
		Frames:     frames,
		Incomplete: len(frames) == 0,
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
