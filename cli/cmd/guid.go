/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lognitor/go-tracer/report"
)

// guidCmd represents the guid command
var guidCmd = &cobra.Command{
	Use:   "guid",
	Short: "Print report ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		for i := 0; i < count; i++ {
			fmt.Fprintln(cmd.OutOrStdout(), report.NewGUID())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guidCmd)

	guidCmd.Flags().IntP("count", "n", 1, "how many ids to print")
}
