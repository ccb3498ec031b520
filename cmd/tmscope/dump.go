package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spicery/tmscope/pkg/grammar"
)

func newDumpCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump <grammar-file>",
		Short: "Convert a grammar file between JSON, YAML and plist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseFormat(format)
			if err != nil {
				return err
			}
			def, err := grammar.FileLoader{}.Load(args[0])
			if err != nil {
				return err
			}
			data, err := grammar.Encode(def, to)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json or plist")
	return cmd
}

func parseFormat(s string) (grammar.Format, error) {
	switch s {
	case "yaml", "yml":
		return grammar.FormatYAML, nil
	case "json":
		return grammar.FormatJSON, nil
	case "plist", "tmLanguage":
		return grammar.FormatPlist, nil
	}
	return grammar.FormatUnknown, fmt.Errorf("unknown format %q", s)
}
