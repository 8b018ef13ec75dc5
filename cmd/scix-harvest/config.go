// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scix-harvest/internal/harvest"
	"github.com/pdiddy/scix-harvest/internal/httputil"
	"github.com/pdiddy/scix-harvest/internal/metrics"
	"github.com/pdiddy/scix-harvest/internal/scix"
	"github.com/pdiddy/scix-harvest/internal/secrets"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

// Config keys. Every key can also be set in scix-harvest.yaml or through
// SCIX_HARVEST_<KEY> with dots replaced by underscores.
const (
	keyTerms       = "search.terms"
	keyField       = "search.field"
	keyMaxPages    = "harvest.max_pages"
	keyRows        = "harvest.rows_per_page"
	keyPageDelay   = "harvest.page_delay"
	keyOutputDir   = "harvest.output_dir"
	keyMetricsFile = "harvest.metrics_file"

	keyConnectTimeout = "http.connect_timeout"
	keyReadTimeout    = "http.read_timeout"
	keyUserAgent      = "http.user_agent"
	keyMaxRPS         = "http.max_requests_per_second"

	keyRetryAttempts = "retry.max_attempts"
	keyRetryBase     = "retry.backoff_base"
	keyRetryFactor   = "retry.backoff_factor"
	keyRetryMax      = "retry.max_backoff"

	keyEndpoint  = "api.endpoint"
	keyTokenFile = "api.token_file"
	keyToken     = "api.token"
)

func setDefaults(v *viper.Viper) {
	d := harvest.DefaultConfig()
	v.SetDefault(keyTerms, d.Terms)
	v.SetDefault(keyField, string(d.Field))
	v.SetDefault(keyMaxPages, d.MaxPages)
	v.SetDefault(keyRows, d.RowsPerPage)
	v.SetDefault(keyPageDelay, d.PageDelay)
	v.SetDefault(keyOutputDir, d.OutputDir)
	v.SetDefault(keyConnectTimeout, d.ConnectTimeout)
	v.SetDefault(keyReadTimeout, d.ReadTimeout)
	v.SetDefault(keyUserAgent, d.UserAgent+"/"+version)
	v.SetDefault(keyMaxRPS, d.MaxRequestsPerSecond)
	v.SetDefault(keyRetryAttempts, d.Retry.MaxAttempts)
	v.SetDefault(keyRetryBase, d.Retry.BackoffBase)
	v.SetDefault(keyRetryFactor, d.Retry.BackoffFactor)
	v.SetDefault(keyRetryMax, d.Retry.MaxBackoff)
	v.SetDefault(keyEndpoint, scix.DefaultEndpoint)
}

// bindFlags binds the named flags of cmd to config keys. Binding happens when
// the command runs so commands sharing a key do not override each other.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return &scix.Error{Kind: scix.KindConfig, Err: err}
		}
	}
	return nil
}

// harvestConfig assembles the run configuration from v.
func harvestConfig(v *viper.Viper) types.HarvestConfig {
	return types.HarvestConfig{
		HTTPConfig: httpConfig(v),
		Retry: types.RetryConfig{
			MaxAttempts:   v.GetInt(keyRetryAttempts),
			BackoffBase:   v.GetDuration(keyRetryBase),
			BackoffFactor: v.GetFloat64(keyRetryFactor),
			MaxBackoff:    v.GetDuration(keyRetryMax),
		},
		Terms:       v.GetStringSlice(keyTerms),
		Field:       types.SearchField(v.GetString(keyField)),
		MaxPages:    v.GetInt(keyMaxPages),
		RowsPerPage: v.GetInt(keyRows),
		PageDelay:   v.GetDuration(keyPageDelay),
		OutputDir:   v.GetString(keyOutputDir),
	}
}

func httpConfig(v *viper.Viper) types.HTTPConfig {
	return types.HTTPConfig{
		ConnectTimeout: v.GetDuration(keyConnectTimeout),
		ReadTimeout:    v.GetDuration(keyReadTimeout),
		UserAgent:      v.GetString(keyUserAgent),

		MaxRequestsPerSecond: v.GetFloat64(keyMaxRPS),
	}
}

// loadCredential resolves the API token: an explicit token file first, then
// SCIX_HARVEST_API_TOKEN, then .secrets/ads-api-token.
func loadCredential(v *viper.Viper, loaded map[string]string) (scix.Credential, error) {
	if path := v.GetString(keyTokenFile); path != "" {
		return scix.LoadCredential(path)
	}
	if token := v.GetString(keyToken); token != "" {
		return scix.NewCredential(token)
	}
	if _, ok := loaded[secrets.TokenKey]; ok {
		return scix.LoadCredential(filepath.Join(secretsDir, secrets.TokenKey))
	}
	return scix.Credential{}, &scix.Error{
		Kind: scix.KindConfig,
		Err:  fmt.Errorf("%w: set --token-file, SCIX_HARVEST_API_TOKEN or .secrets/%s", secrets.ErrTokenMissing, secrets.TokenKey),
	}
}

// newClient builds the search client for cfg.
func newClient(v *viper.Viper, cred scix.Credential, cfg types.HTTPConfig, retry types.RetryConfig, m *metrics.Metrics) *scix.Client {
	return scix.NewClient(cred, cfg,
		scix.WithEndpoint(v.GetString(keyEndpoint)),
		scix.WithRetryPolicy(httputil.PolicyFromConfig(retry)),
		scix.WithLogger(logger),
		scix.WithMetrics(m),
	)
}
