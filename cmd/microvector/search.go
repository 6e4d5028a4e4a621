package main

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/loganpowell/microvector"
)

var (
	flagTopK       int
	flagSearchJSON bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&flagTopK, "top-k", "k", microvector.DefaultTopK, "Number of results to return")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "Output results as JSON")
}

var searchCmd = &cobra.Command{
	Use:   "search <partition> <term>",
	Short: "Query a partition for the nearest documents",
	Long: `Search embeds the query term and returns the top-k documents from the
named partition, ranked under the partition's metric.

Examples:
  microvector search products "bluetooth audio"
  microvector search products "bluetooth audio" -k 10 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	name, term := args[0], args[1]

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.Search(cmd.Context(), name, term, flagTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagSearchJSON {
		enc := gojson.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for i, r := range results {
		doc, err := gojson.Marshal(r.Document)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%2d. score=%.4f  %s\n", i+1, r.Score, doc)
	}
	return nil
}
