package main

import (
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/loganpowell/microvector"
	"github.com/loganpowell/microvector/document"
)

var (
	flagAppend  bool
	flagNoCache bool
)

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().BoolVar(&flagAppend, "append", false, "Add to the existing partition instead of replacing it")
	saveCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Keep the result in memory only, do not write to disk")
}

var saveCmd = &cobra.Command{
	Use:   "save <partition> [file]",
	Short: "Embed a JSON collection into a partition",
	Long: `Save reads a JSON array of documents from a file or stdin, embeds the
configured key field of each document, and writes them into the named
partition.

Examples:
  # Save a collection, replacing any existing partition content
  microvector save products products.json

  # Append from stdin
  cat more.json | microvector save products --append -

  # Vectorize a nested field
  microvector save products products.json --key product.description`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSave,
}

func runSave(cmd *cobra.Command, args []string) error {
	name := args[0]

	var in io.Reader = os.Stdin
	if len(args) == 2 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}
	var collection []document.Document
	if err := gojson.Unmarshal(data, &collection); err != nil {
		return fmt.Errorf("parsing collection: %w", err)
	}
	if len(collection) == 0 {
		return fmt.Errorf("collection is empty")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := client.Save(cmd.Context(), name, collection, func(o *microvector.SaveOptions) {
		if flagAppend {
			o.Mode = microvector.Append
		}
		o.Persist = !flagNoCache
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "saved %d documents to partition %q (%d total)\n",
		len(collection), name, p.Size())
	return nil
}
