package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	keyStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Clean removes terminal escape sequences and control characters other than
// newlines and tabs from a backend-sourced string.
func Clean(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Text renders panels for a terminal.
func Text(p Panels) string {
	var b strings.Builder
	row := func(k, v string) {
		b.WriteString(keyStyle.Render(k + ":"))
		b.WriteString(" ")
		b.WriteString(Clean(v))
		b.WriteByte('\n')
	}
	row("Character", p.Character)
	row("Known Value", p.KnownValue)
	row("Coverage", p.Coverage)

	b.WriteByte('\n')
	b.WriteString(headingStyle.Render("Top holdings"))
	b.WriteByte('\n')
	if len(p.Holdings) == 0 {
		b.WriteString("  -\n")
	}
	for _, h := range p.Holdings {
		b.WriteString("  • " + Clean(h) + "\n")
	}

	b.WriteByte('\n')
	b.WriteString(headingStyle.Render("Posts"))
	b.WriteByte('\n')
	b.WriteString(Clean(p.Posts))
	b.WriteByte('\n')

	b.WriteByte('\n')
	b.WriteString(headingStyle.Render(Clean(p.Card.Title)))
	b.WriteByte('\n')
	if d := Clean(p.Card.Description); d != "" {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	for _, f := range p.Card.Fields {
		b.WriteString(keyStyle.Render(Clean(f.Name)))
		b.WriteByte('\n')
		b.WriteString("  " + Clean(f.Value) + "\n")
	}
	return b.String()
}

// Status renders one status-region line.
func Status(text string, isError bool) string {
	if text == "" {
		return ""
	}
	if isError {
		return errorStyle.Render(Clean(text))
	}
	return infoStyle.Render(Clean(text))
}
