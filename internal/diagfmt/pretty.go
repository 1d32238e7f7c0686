package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"rtgen/internal/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.FgBlue)
	pathColor    = color.New(color.Bold)
)

// Pretty renders diagnostics as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by one indented line per note. Call bag.Sort() first for a
// stable order.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		loc := span(d.Primary, opts.PathMode, opts.BaseDir)
		sev := paint(opts.Color, sevColor(d.Severity), d.Severity.String())
		line := fmt.Sprintf("%s: %s %s: %s", paint(opts.Color, pathColor, loc), sev, d.Code.ID(), oneLine(d.Message))
		fmt.Fprintln(w, clip(line, opts.Width))
		if !opts.ShowNotes && d.Code != diag.ObsTimings {
			continue
		}
		for _, n := range d.Notes {
			note := fmt.Sprintf("  %s %s: %s", paint(opts.Color, noteColor, "note:"), span(n.Span, opts.PathMode, opts.BaseDir), oneLine(n.Msg))
			fmt.Fprintln(w, clip(note, opts.Width))
		}
	}
}

// Short renders one uncoloured line per diagnostic and note, suitable for
// golden files.
func Short(bag *diag.Bag, includeNotes bool) string {
	if bag == nil {
		return ""
	}
	var lines []string
	for _, d := range bag.Items() {
		lines = append(lines, fmt.Sprintf("%s %s %s %s", d.Severity.Label(), d.Code.ID(), d.Primary, oneLine(d.Message)))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			lines = append(lines, fmt.Sprintf("note %s %s %s", d.Code.ID(), n.Span, oneLine(n.Msg)))
		}
	}
	return strings.Join(lines, "\n")
}

func span(sp diag.Span, mode PathMode, base string) string {
	sp.File = formatPath(sp.File, mode, base)
	return sp.String()
}

func sevColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	return c.Sprint(s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clip truncates by display width; ANSI sequences are not counted.
func clip(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(stripANSI(s)) <= width {
		return s
	}
	if strings.Contains(s, "\x1b[") {
		s = stripANSI(s)
	}
	return runewidth.Truncate(s, width, "…")
}

func stripANSI(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < '@' || s[j] > '~') {
				j++
			}
			i = j
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
