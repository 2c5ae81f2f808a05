// Package richtext renders chat replies that use a tiny inline markup:
// **bold**, *italic* and newlines. Everything else is plain text.
package richtext

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Segment is a run of text with one style, or a line break.
type Segment struct {
	Text   string
	Bold   bool
	Italic bool
	Break  bool
}

// Parse splits s into segments. Markers never pair across a newline and an
// unpaired marker stays literal.
func Parse(s string) []Segment {
	var out []Segment
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, Segment{Break: true})
		}
		out = append(out, parseLine(line)...)
	}
	return out
}

// parseLine pairs ** markers first, then pairs the remaining * markers in
// order across the bold runs, so italic may wrap bold and bold may wrap
// italic. A trailing unpaired * stays literal.
func parseLine(line string) []Segment {
	var runs []Segment
	for {
		open := strings.Index(line, "**")
		if open < 0 {
			break
		}
		closeIdx := strings.Index(line[open+2:], "**")
		if closeIdx < 0 {
			break
		}
		runs = append(runs,
			Segment{Text: line[:open]},
			Segment{Text: line[open+2 : open+2+closeIdx], Bold: true},
		)
		line = line[open+2+closeIdx+2:]
	}
	runs = append(runs, Segment{Text: line})
	return applyItalic(runs)
}

func applyItalic(runs []Segment) []Segment {
	stars := 0
	for _, r := range runs {
		stars += strings.Count(r.Text, "*")
	}
	pairable := stars - stars%2

	var out []Segment
	italic := false
	seen := 0
	for _, r := range runs {
		var b strings.Builder
		flush := func() {
			if b.Len() > 0 {
				out = append(out, Segment{Text: b.String(), Bold: r.Bold, Italic: italic})
				b.Reset()
			}
		}
		for i := 0; i < len(r.Text); i++ {
			if r.Text[i] == '*' && seen < pairable {
				flush()
				italic = !italic
				seen++
				continue
			}
			b.WriteByte(r.Text[i])
		}
		flush()
	}
	return out
}

// RenderHTML escapes every text run and emits only <strong>, <em> and <br>.
func RenderHTML(s string) string {
	var b strings.Builder
	for _, seg := range Parse(s) {
		if seg.Break {
			b.WriteString("<br>")
			continue
		}
		text := html.EscapeString(seg.Text)
		if seg.Italic {
			text = "<em>" + text + "</em>"
		}
		if seg.Bold {
			text = "<strong>" + text + "</strong>"
		}
		b.WriteString(text)
	}
	return b.String()
}

var (
	boldStyle       = lipgloss.NewStyle().Bold(true)
	italicStyle     = lipgloss.NewStyle().Italic(true)
	boldItalicStyle = lipgloss.NewStyle().Bold(true).Italic(true)
)

// RenderANSI renders s for a terminal.
func RenderANSI(s string) string {
	var b strings.Builder
	for _, seg := range Parse(s) {
		switch {
		case seg.Break:
			b.WriteString("\n")
		case seg.Bold && seg.Italic:
			b.WriteString(boldItalicStyle.Render(seg.Text))
		case seg.Bold:
			b.WriteString(boldStyle.Render(seg.Text))
		case seg.Italic:
			b.WriteString(italicStyle.Render(seg.Text))
		default:
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// Plain drops all markup.
func Plain(s string) string {
	var b strings.Builder
	for _, seg := range Parse(s) {
		if seg.Break {
			b.WriteString("\n")
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
