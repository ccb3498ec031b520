package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spicery/tmscope/pkg/theme"
	"github.com/spicery/tmscope/pkg/tokenizer"
)

// painter renders text in the styles a color scheme assigns to scope
// chains. Styles are built once per distinct chain.
type painter struct {
	r      *lipgloss.Renderer
	cs     *theme.ColorScheme
	styles map[string]lipgloss.Style
}

func newPainter(r *lipgloss.Renderer, cs *theme.ColorScheme) *painter {
	return &painter{r: r, cs: cs, styles: make(map[string]lipgloss.Style)}
}

func (p *painter) style(chain string) lipgloss.Style {
	if st, ok := p.styles[chain]; ok {
		return st
	}
	s := p.cs.Resolve(chain)
	st := p.r.NewStyle().
		TabWidth(lipgloss.NoTabConversion).
		Bold(s.Has("bold")).
		Italic(s.Has("italic")).
		Underline(s.Has("underline"))
	if s.Foreground != "" {
		st = st.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		st = st.Background(lipgloss.Color(s.Background))
	}
	p.styles[chain] = st
	return st
}

// paint renders text span by span. Line breaks are written unstyled so
// every line starts with a clean terminal state.
func (p *painter) paint(text string, spans []tokenizer.ScopeSpan) string {
	var b strings.Builder
	for _, sp := range spans {
		st := p.style(sp.Scope)
		for i, line := range strings.Split(text[sp.Start:sp.End], "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(st.Render(line))
			}
		}
	}
	return b.String()
}

func (a *app) renderColored(w io.Writer, themeFlag, text string, spans []tokenizer.ScopeSpan) error {
	path, err := a.themePath(themeFlag)
	if err != nil {
		return err
	}
	cs, err := a.reg.LoadTheme(path)
	if err != nil {
		return err
	}
	p := newPainter(lipgloss.NewRenderer(w), cs)
	_, err = io.WriteString(w, p.paint(text, spans))
	return err
}
