package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newGrammarsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "grammars",
		Short: "List the grammars found in the grammar directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCOPE\tNAME\tFILE TYPES")
			for _, g := range a.reg.Grammars() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", g.ScopeName, g.Name, strings.Join(g.FileTypes, ", "))
			}
			return tw.Flush()
		},
	}
}
