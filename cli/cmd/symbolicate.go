/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lognitor/go-tracer/stack"
)

// symbolicateCmd represents the symbolicate command
var symbolicateCmd = &cobra.Command{
	Use:   "symbolicate [file]",
	Short: "Map minified frames back to their sources",
	Long: `Read stack info JSON, as printed by parse, and rewrite every frame that a
source map covers. Maps are read from disk with --map and --default-map, or
fetched next to each script with --fetch.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return fmt.Errorf("failed to read stack info: %w", err)
		}

		var info stack.StackInfo
		if err = json.Unmarshal(data, &info); err != nil {
			return fmt.Errorf("failed to decode stack info: %w", err)
		}

		maps, _ := cmd.Flags().GetStringToString("map")
		def, _ := cmd.Flags().GetString("default-map")
		fetch, _ := cmd.Flags().GetBool("fetch")
		size, _ := cmd.Flags().GetInt("cache")

		var fetcher stack.MapFetcher = stack.FileMapFetcher{Files: maps, Default: def}
		if fetch {
			fetcher = stack.HTTPMapFetcher{}
		}

		s, err := stack.NewSymbolicator(fetcher, size)
		if err != nil {
			return err
		}
		info.Frames = s.Symbolicate(cmd.Context(), info.Frames)

		return printJSON(cmd, info)
	},
}

func init() {
	rootCmd.AddCommand(symbolicateCmd)

	symbolicateCmd.Flags().StringToString("map", nil, "script url to source map file, repeatable")
	symbolicateCmd.Flags().String("default-map", "", "source map file for scripts without --map")
	symbolicateCmd.Flags().Bool("fetch", false, "fetch <script>.map over http instead of reading files")
	symbolicateCmd.Flags().Int("cache", 16, "parsed source maps kept in memory")
}
