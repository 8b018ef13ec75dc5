// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/scix-harvest/internal/harvest"
	"github.com/pdiddy/scix-harvest/internal/ledger"
	"github.com/pdiddy/scix-harvest/internal/metrics"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest highlight snippets for a search term",
	Long: `Harvest pages through the search results for the configured term and
writes every document's highlight snippets and metadata to
<output-dir>/<field>_<term>.json. A run manifest (<field>_<term>.run.yaml)
records whether the run completed, failed or was interrupted, and each run is
appended to the ledger in <output-dir>/runs.db.

Results fetched so far are saved after every page, on API failure and on
Ctrl-C. Exit status: 0 completed, 2 configuration error, 3 authentication
error, 4 other API failure, 130 interrupted.`,
	RunE: runHarvest,
}

var harvestFlagKeys = map[string]string{
	keyTerms:       "search-term",
	keyField:       "search-field",
	keyMaxPages:    "max-pages",
	keyRows:        "rows-per-page",
	keyPageDelay:   "page-delay",
	keyOutputDir:   "output-dir",
	keyMetricsFile: "metrics-file",
	keyTokenFile:   "token-file",
}

func init() {
	d := harvest.DefaultConfig()
	addSearchFlags(harvestCmd)
	harvestCmd.Flags().Int("max-pages", d.MaxPages, "maximum number of pages to fetch")
	harvestCmd.Flags().Int("rows-per-page", d.RowsPerPage, fmt.Sprintf("documents per page (max %d)", types.MaxRowsPerPage))
	harvestCmd.Flags().Duration("page-delay", d.PageDelay, "minimum spacing between page requests")
	harvestCmd.Flags().String("output-dir", d.OutputDir, "directory for results, manifests and the run ledger")
	harvestCmd.Flags().String("metrics-file", "", "write Prometheus metrics in text format to this file")

	rootCmd.AddCommand(harvestCmd)
}

// addSearchFlags registers the flags shared by harvest and count.
func addSearchFlags(cmd *cobra.Command) {
	d := harvest.DefaultConfig()
	cmd.Flags().StringArray("search-term", d.Terms, "term to search for; repeat to OR several terms")
	cmd.Flags().String("search-field", string(d.Field), "field to search: body, full, title or abstract")
	cmd.Flags().String("token-file", "", "file holding the API token (default .secrets/ads-api-token)")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, harvestFlagKeys); err != nil {
		return err
	}
	cfg := harvestConfig(v)
	if err := harvest.Validate(cfg); err != nil {
		return err
	}

	cred, err := loadCredential(v, loadedSecrets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := newClient(v, cred, cfg.HTTPConfig, cfg.Retry, m)

	opts := []harvest.Option{harvest.WithLogger(logger), harvest.WithMetrics(m)}
	store, err := ledger.Open(cfg.OutputDir)
	if err != nil {
		logger.Warn("run ledger unavailable", zap.Error(err))
	} else {
		defer store.Close()
		opts = append(opts, harvest.WithRecorder(store))
	}

	manifest, runErr := harvest.New(client, opts...).Run(ctx, cfg)

	if path := v.GetString(keyMetricsFile); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			logger.Warn("writing metrics failed", zap.String("path", path), zap.Error(err))
		}
	}
	if manifest.OutputPath != "" {
		printSummary(cmd.OutOrStdout(), manifest)
	}
	return runErr
}

func printSummary(w io.Writer, m types.RunManifest) {
	fmt.Fprintf(w, "\nstatus: %s\n", m.Status)
	fmt.Fprintf(w, "query: %s\n", m.Query)
	fmt.Fprintf(w, "pages fetched: %d (last page %d)\n", m.PagesFetched, m.PageReached+1)
	fmt.Fprintf(w, "documents: %d of %d found\n", m.Documents, m.NumFound)
	if m.Conflicts > 0 {
		fmt.Fprintf(w, "conflicting repeats kept as first seen: %d\n", m.Conflicts)
	}
	fmt.Fprintf(w, "results: %s\n", m.OutputPath)
}
