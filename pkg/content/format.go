package content

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// HTML serializes the document. Block paragraphs become <p>, the inline run a
// <span>. Markers are buttons carrying the citation id for the client to
// resolve.
func (d Document) HTML() string {
	tag := "p"
	if d.Mode == ModeInline {
		tag = "span"
	}

	var b strings.Builder
	for _, p := range d.Paragraphs {
		b.WriteString("<" + tag + ">")
		for _, n := range p.Nodes {
			switch n.Kind {
			case NodeText:
				b.WriteString(html.EscapeString(n.Text))
			case NodeStrong:
				b.WriteString("<strong>" + html.EscapeString(n.Text) + "</strong>")
			case NodeLineBreak:
				b.WriteString("<br/>")
			case NodeMarker:
				fmt.Fprintf(&b, `<button type="button" class="citation" data-citation-id="%d" data-source-id="%s">%d</button>`,
					n.Marker.Citation.CitationID, html.EscapeString(n.Marker.Citation.SourceID), n.Marker.Ordinal)
			}
		}
		b.WriteString("</" + tag + ">")
	}
	return b.String()
}

// PlainText drops emphasis and prints markers as [n].
func (d Document) PlainText() string {
	paragraphs := make([]string, 0, len(d.Paragraphs))
	for _, p := range d.Paragraphs {
		paragraphs = append(paragraphs, d.paragraphText(p, func(s string) string { return s }, func(m *Marker) string {
			return fmt.Sprintf("[%d]", m.Ordinal)
		}))
	}
	return strings.Join(paragraphs, "\n\n")
}

var (
	strongStyle = lipgloss.NewStyle().Bold(true)
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Terminal renders for a console, wrapping paragraphs at width columns.
// A width of zero or less disables wrapping.
func (d Document) Terminal(width int) string {
	paragraphs := make([]string, 0, len(d.Paragraphs))
	for _, p := range d.Paragraphs {
		text := d.paragraphText(p, func(s string) string {
			return strongStyle.Render(s)
		}, func(m *Marker) string {
			return markerStyle.Render(fmt.Sprintf("[%d]", m.Ordinal))
		})
		if width > 0 {
			text = wordwrap.String(text, width)
		}
		paragraphs = append(paragraphs, text)
	}
	return strings.Join(paragraphs, "\n\n")
}

func (d Document) paragraphText(p Paragraph, strong func(string) string, marker func(*Marker) string) string {
	var b strings.Builder
	for _, n := range p.Nodes {
		switch n.Kind {
		case NodeText:
			b.WriteString(n.Text)
		case NodeStrong:
			b.WriteString(strong(n.Text))
		case NodeLineBreak:
			b.WriteString("\n")
		case NodeMarker:
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(marker(n.Marker))
		}
	}
	return b.String()
}
