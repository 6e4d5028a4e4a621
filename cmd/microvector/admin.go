package main

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var flagExportVectors bool

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVar(&flagExportVectors, "vectors", false, "Include stored vectors in the output")
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached partitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		names, err := mgr.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <partition>",
	Short: "Delete a partition's on-disk record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		if err := mgr.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted partition %q\n", args[0])
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <partition>",
	Short: "Dump a partition's documents as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newManager()
		if err != nil {
			return err
		}
		p, err := mgr.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := gojson.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p.Export(flagExportVectors))
	},
}
