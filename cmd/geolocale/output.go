package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#50FA7B"))

	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

// printer writes command results either as styled text or as JSON
type printer struct {
	w      io.Writer
	json   bool
	styled bool
}

func newPrinter(w io.Writer, jsonOutput bool) *printer {
	return &printer{w: w, json: jsonOutput, styled: isTerminal(w)}
}

// Disable colors if not in a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) title(s string) {
	fmt.Fprintln(p.w, p.render(titleStyle, s))
}

func (p *printer) field(label string, value interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(labelStyle, label+":"), p.render(valueStyle, fmt.Sprint(value)))
}

func (p *printer) stat(label string, value interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(labelStyle, label+":"), p.render(statStyle, fmt.Sprint(value)))
}

func (p *printer) miss(s string) {
	fmt.Fprintln(p.w, p.render(missStyle, s))
}

func (p *printer) list(items []string) {
	for _, item := range items {
		fmt.Fprintln(p.w, item)
	}
}

func (p *printer) encode(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
