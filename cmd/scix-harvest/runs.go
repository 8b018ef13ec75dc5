// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scix-harvest/internal/ledger"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List earlier harvest runs",
	Long: `Runs lists the harvests recorded in <output-dir>/runs.db, newest first,
with their status, page counts and document counts. Use --status to find
interrupted or failed runs worth repeating.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("output-dir", "", "output directory holding runs.db (default from config)")
	runsCmd.Flags().String("status", "", "only list runs with this status (completed, interrupted, failed, running)")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.Flags().String("format", ledger.FormatTable, "output format: table, yaml or json")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("output-dir")
	if dir == "" {
		dir = viper.GetString(keyOutputDir)
	}
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	store, err := ledger.Open(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), ledger.ListOptions{
		Status: types.RunStatus(status),
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return ledger.Write(cmd.OutOrStdout(), runs, format)
}
