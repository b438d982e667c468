package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dualfolio/dualfolio/internal/version"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dualfolio",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if format != formatTable {
				return writeStructured(cmd.OutOrStdout(), format, info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dualfolio version %s\n", info.Full())
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json, yaml")
	return cmd
}
