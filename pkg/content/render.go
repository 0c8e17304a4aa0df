package content

import (
	"regexp"
	"strings"
)

// Mode selects how segments are laid out. It is chosen by the caller, not by
// the shape of the content.
type Mode uint8

const (
	// ModeBlock splits segments into paragraphs on blank lines and keeps
	// single newlines as line breaks. Used for assistant output and notes.
	ModeBlock Mode = iota
	// ModeInline joins all segments into one run and turns newlines into
	// spaces. Used for user-authored chat bubbles.
	ModeInline
)

func (m Mode) String() string {
	if m == ModeInline {
		return "inline"
	}
	return "block"
}

// ParseMode maps "inline" to ModeInline and anything else to ModeBlock.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, "inline") {
		return ModeInline
	}
	return ModeBlock
}

type NodeKind uint8

const (
	NodeText NodeKind = iota
	NodeStrong
	NodeLineBreak
	NodeMarker
)

// Node is one inline element of a rendered paragraph.
type Node struct {
	Kind   NodeKind
	Text   string
	Marker *Marker
}

// Marker is the clickable citation token appended after cited text.
type Marker struct {
	Ordinal  int
	Citation Citation
}

// Activate hands the resolved citation to the caller's handler.
func (m *Marker) Activate(handler func(Citation)) {
	if m == nil || handler == nil {
		return
	}
	handler(m.Citation)
}

type Paragraph struct {
	Nodes []Node
}

// Document is the renderer output. Inline mode yields at most one paragraph.
type Document struct {
	Mode       Mode
	Paragraphs []Paragraph
}

// Markers lists every citation marker in document order.
func (d Document) Markers() []*Marker {
	var markers []*Marker
	for _, p := range d.Paragraphs {
		for _, n := range p.Nodes {
			if n.Kind == NodeMarker {
				markers = append(markers, n.Marker)
			}
		}
	}
	return markers
}

var boldPattern = regexp.MustCompile(`\*\*.*?\*\*|__.*?__`)

// emphasize applies the bold subset: a complete **X** or __X__ run becomes a
// strong node with the delimiters stripped. Nothing else is interpreted, so
// an unterminated delimiter stays literal.
func emphasize(text string) []Node {
	var (
		nodes []Node
		last  int
	)
	for _, loc := range boldPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			nodes = append(nodes, Node{Kind: NodeText, Text: text[last:loc[0]]})
		}
		nodes = append(nodes, Node{Kind: NodeStrong, Text: text[loc[0]+2 : loc[1]-2]})
		last = loc[1]
	}
	if last < len(text) {
		nodes = append(nodes, Node{Kind: NodeText, Text: text[last:]})
	}
	return nodes
}

// emphasizeInline emphasizes each line on its own, so a bold run never spans
// a line break, then joins the lines with spaces.
func emphasizeInline(text string) []Node {
	var nodes []Node
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			nodes = appendText(nodes, " ")
		}
		for _, n := range emphasize(line) {
			if n.Kind == NodeText {
				nodes = appendText(nodes, n.Text)
				continue
			}
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func appendText(nodes []Node, text string) []Node {
	if last := len(nodes) - 1; last >= 0 && nodes[last].Kind == NodeText {
		nodes[last].Text += text
		return nodes
	}
	return append(nodes, Node{Kind: NodeText, Text: text})
}

// Render lays out content in the given mode. Segments whose citation id does
// not resolve are rendered without a marker.
func Render(c Content, mode Mode) Document {
	st := Normalize(c)
	idx := st.citationIndex()

	marker := func(seg Segment) (Node, bool) {
		if seg.CitationID == nil {
			return Node{}, false
		}
		cit, ok := idx[*seg.CitationID]
		if !ok {
			return Node{}, false
		}
		return Node{Kind: NodeMarker, Marker: &Marker{Ordinal: cit.Ordinal(), Citation: cit}}, true
	}

	doc := Document{Mode: mode}
	if mode == ModeInline {
		var run []Node
		for _, seg := range st.Segments {
			run = append(run, emphasizeInline(seg.Text)...)
			if m, ok := marker(seg); ok {
				run = append(run, m)
			}
		}
		if len(run) > 0 {
			doc.Paragraphs = []Paragraph{{Nodes: run}}
		}
		return doc
	}

	for _, seg := range st.Segments {
		var paragraphs []string
		for _, p := range strings.Split(seg.Text, "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				paragraphs = append(paragraphs, p)
			}
		}

		for i, p := range paragraphs {
			var nodes []Node
			for j, line := range strings.Split(p, "\n") {
				if j > 0 {
					nodes = append(nodes, Node{Kind: NodeLineBreak})
				}
				nodes = append(nodes, emphasize(line)...)
			}
			if i == len(paragraphs)-1 {
				if m, ok := marker(seg); ok {
					nodes = append(nodes, m)
				}
			}
			doc.Paragraphs = append(doc.Paragraphs, Paragraph{Nodes: nodes})
		}
	}
	return doc
}
