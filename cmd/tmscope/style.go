package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStyleCmd(a *app) *cobra.Command {
	var themeFlag string
	cmd := &cobra.Command{
		Use:     "style <scope-chain>",
		Short:   "Show which theme rule styles a scope chain",
		Example: `  tmscope style --theme monokai.tmTheme "source.go comment.line.double-slash.go"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.themePath(themeFlag)
			if err != nil {
				return err
			}
			cs, err := a.reg.LoadTheme(path)
			if err != nil {
				return err
			}
			chain := args[0]
			s := cs.Resolve(chain)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule:       %s\n", cs.Select(chain))
			fmt.Fprintf(out, "foreground: %s\n", s.Foreground)
			fmt.Fprintf(out, "background: %s\n", s.Background)
			fmt.Fprintf(out, "fontStyle:  %s\n", s.FontStyle)
			return nil
		},
	}
	cmd.Flags().StringVar(&themeFlag, "theme", "", "color scheme file")
	return cmd
}
