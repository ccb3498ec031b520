package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spicery/tmscope/pkg/grammar"
	"github.com/spicery/tmscope/pkg/tokenizer"
)

type tokenizeFlags struct {
	grammarFile string
	scope       string
	input       string
	output      string
	color       bool
	theme       string
	exit0       bool
}

func newTokenizeCmd(a *app) *cobra.Command {
	f := &tokenizeFlags{}
	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Print the scope spans of a document, one JSON object per line",
		Long: `Tokenize reads a document from --input (or stdin) and writes one JSON
object per scope span: {"scope": "source.go keyword.control.go", "span": [0, 2]}.

The grammar is taken from --grammar, from --scope among the loaded grammar
directories, or chosen by the input file's name and first line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.tokenize(cmd.Context(), cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.grammarFile, "grammar", "", "grammar file")
	cmd.Flags().StringVar(&f.scope, "scope", "", "scope name of a loaded grammar")
	cmd.Flags().StringVar(&f.input, "input", "", "input file (defaults to stdin)")
	cmd.Flags().StringVar(&f.output, "output", "", "output file (defaults to stdout)")
	cmd.Flags().BoolVar(&f.color, "color", false, "render the document with theme colors instead of JSON")
	cmd.Flags().StringVar(&f.theme, "theme", "", "color scheme for --color")
	cmd.Flags().BoolVar(&f.exit0, "exit0", false, "exit with code 0 even when the pass was capped")
	return cmd
}

func (a *app) tokenize(ctx context.Context, cmd *cobra.Command, f *tokenizeFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := readInput(cmd.InOrStdin(), f.input)
	if err != nil {
		return err
	}
	g, err := a.pickGrammar(f, text)
	if err != nil {
		return err
	}

	res, err := a.reg.Tokenize(ctx, g, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var closer io.Closer
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		out, closer = file, file
	}

	if f.color {
		err = a.renderColored(out, f.theme, text, res.Spans)
	} else {
		err = writeSpans(out, res.Spans)
	}
	if closer != nil {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}
	if err != nil {
		return err
	}

	if res.Status == tokenizer.StatusCapped && !f.exit0 {
		return fmt.Errorf("tokenization stopped after %d iterations", res.Iterations)
	}
	return nil
}

func (a *app) pickGrammar(f *tokenizeFlags, text string) (*grammar.Grammar, error) {
	switch {
	case f.grammarFile != "":
		return a.reg.LoadGrammar(f.grammarFile)
	case f.scope != "":
		g, ok := a.reg.GrammarForScope(f.scope)
		if !ok {
			return nil, fmt.Errorf("no grammar with scope %q", f.scope)
		}
		return g, nil
	}
	firstLine, _, _ := strings.Cut(text, "\n")
	g, ok := a.reg.GrammarForFile(f.input, firstLine)
	if !ok {
		return nil, fmt.Errorf("no grammar for input: use --grammar or --scope")
	}
	a.log.Debug("grammar chosen", zap.String("scope", g.ScopeName))
	return g, nil
}

// writeSpans outputs spans as JSON, one per line.
func writeSpans(w io.Writer, spans []tokenizer.ScopeSpan) error {
	bw := bufio.NewWriter(w)
	for _, s := range spans {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("JSON encoding error: %w", err)
		}
		data = append(data, '\n')
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("write spans: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write spans: %w", err)
	}
	return nil
}

// readInput reads the named file, or r when name is empty.
func readInput(r io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
