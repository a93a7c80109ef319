/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/writers"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <report.json>...",
	Short: "Send report payloads to a collector",
	Long: `Send every JSON file to the collector, over HTTP by default or over gRPC
with --grpc. Each file is one payload, usually a report the tracer built.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payloads := make([]json.RawMessage, 0, len(args))
		for _, name := range args {
			data, err := os.ReadFile(name)
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("%s is not valid JSON", name)
			}
			payloads = append(payloads, data)
		}

		w, err := newCollectorWriter(cmd)
		if err != nil {
			return err
		}

		return deliver(cmd, w, args, payloads)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addCollectorFlags(sendCmd)
}

func addCollectorFlags(c *cobra.Command) {
	c.Flags().String("host", configs.DefaultExceptionURL, "collector http endpoint")
	c.Flags().String("grpc-host", "", "collector grpc target, host:port")
	c.Flags().String("api-key", "", "api key sent with every payload")
	c.Flags().Bool("grpc", false, "send over grpc")
	c.Flags().Duration("timeout", time.Second*3, "request timeout")
}

func newCollectorWriter(cmd *cobra.Command) (*writers.CollectorWriter, error) {
	host, _ := cmd.Flags().GetString("host")
	grpcHost, _ := cmd.Flags().GetString("grpc-host")
	apiKey, _ := cmd.Flags().GetString("api-key")
	useGrpc, _ := cmd.Flags().GetBool("grpc")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := configs.NewCollector(grpcHost, host, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector config: %w", err)
	}
	cfg.SetHttpTimeout(timeout)
	cfg.SetGrpcTimeout(timeout)
	if useGrpc {
		if grpcHost == "" {
			return nil, fmt.Errorf("%w: --grpc needs --grpc-host", configs.ErrInvalidURL)
		}
		cfg.EnableGrpc()
	}

	w, err := writers.NewCollectorWriter(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector writer: %w", err)
	}
	return w, nil
}

// deliver sends every payload and waits for the writer to drain.
func deliver(cmd *cobra.Command, w *writers.CollectorWriter, names []string, payloads []json.RawMessage) error {
	results := make([]error, len(payloads))
	for i := range payloads {
		i := i
		w.MakeRequest(writers.Request{
			Data: payloads[i],
			OnError: func(err error) {
				results[i] = err
			},
		})
	}
	if err := w.Close(); err != nil {
		return err
	}

	var errs *multierror.Error
	for i, err := range results {
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", names[i], err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", names[i])
	}
	return errs.ErrorOrNil()
}
