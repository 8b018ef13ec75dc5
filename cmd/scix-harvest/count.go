// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scix-harvest/internal/scix"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Report how many documents match a search term",
	Long: `Count issues a single small request without highlighting and prints the
number of matching documents, plus the first few matches. Use it to size a
harvest before choosing --max-pages and --rows-per-page.`,
	RunE: runCount,
}

var countFlagKeys = map[string]string{
	keyTerms:     "search-term",
	keyField:     "search-field",
	keyTokenFile: "token-file",
}

func init() {
	addSearchFlags(countCmd)
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, countFlagKeys); err != nil {
		return err
	}

	field := types.SearchField(v.GetString(keyField))
	if !field.Valid() {
		return &scix.Error{Kind: scix.KindConfig, Err: fmt.Errorf("search field %q: want body, full, title or abstract", field)}
	}
	query, err := scix.BuildQuery(field, v.GetStringSlice(keyTerms))
	if err != nil {
		return err
	}

	cred, err := loadCredential(v, loadedSecrets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retry := harvestConfig(v).Retry
	client := newClient(v, cred, httpConfig(v), retry, nil)
	resp, err := client.Query(ctx, scix.CountParams(query))
	if err != nil {
		return err
	}

	printCount(cmd.OutOrStdout(), query, resp.Response)
	return nil
}

func printCount(w io.Writer, query string, page *scix.ResultPage) {
	fmt.Fprintf(w, "query: %s\n", query)
	fmt.Fprintf(w, "numFound: %d\n", page.NumFound)
	for i, d := range page.Docs {
		title := "(untitled)"
		if len(d.Title) > 0 {
			title = d.Title[0]
		}
		fmt.Fprintf(w, "%d. %s", i+1, title)
		if len(d.Author) > 0 {
			fmt.Fprintf(w, " (%s", d.Author[0])
			if len(d.Author) > 1 {
				fmt.Fprint(w, " et al.")
			}
			fmt.Fprint(w, ")")
		}
		if len(d.DOI) > 0 {
			fmt.Fprintf(w, " doi:%s", strings.Join(d.DOI, ","))
		}
		fmt.Fprintln(w)
	}
}
