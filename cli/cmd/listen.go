/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lognitor/go-tracer/logger"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen [file]...",
	Short: "Forward payload files to a collector",
	Long: `Read files, or stdin, holding payloads split by a separator and forward every
JSON payload to the collector. Chunks that are not JSON are logged and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		separator, _ := cmd.Flags().GetString("separator")
		if separator == "" {
			return fmt.Errorf("separator must not be empty")
		}

		l := logger.New(logger.NopCloser(cmd.ErrOrStderr()), "tracectl")
		l.SetLevel(logger.INFO)

		sources := args
		if len(sources) == 0 {
			sources = []string{"-"}
		}

		var names []string
		var payloads []json.RawMessage
		for _, source := range sources {
			data, err := readInput(cmd, []string{source})
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", source, err)
			}
			for i, chunk := range strings.Split(string(data), separator) {
				chunk = strings.TrimSpace(chunk)
				if chunk == "" {
					continue
				}
				name := fmt.Sprintf("%s#%d", source, i+1)
				if !json.Valid([]byte(chunk)) {
					l.Warnf("skipping %s: not a JSON payload", name)
					continue
				}
				names = append(names, name)
				payloads = append(payloads, json.RawMessage(chunk))
			}
		}

		if len(payloads) == 0 {
			l.Info("nothing to send")
			return nil
		}

		w, err := newCollectorWriter(cmd)
		if err != nil {
			return err
		}
		return deliver(cmd, w, names, payloads)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
	addCollectorFlags(listenCmd)

	listenCmd.PersistentFlags().String("separator", "\n", "payload separator in listened files")
}
