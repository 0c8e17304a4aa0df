// Package viewer resolves clicked citations against a source document and
// drives the highlight and scroll state of a source viewer.
package viewer

import (
	"strings"

	"github.com/insightslm/insightslm/pkg/content"
	"github.com/insightslm/insightslm/pkg/types"
)

// SourceOverviewID is the citation id a client sends when a source was opened
// from the source list rather than from a citation marker.
const SourceOverviewID = -1

// Selection is what opened the viewer. It is either a CitationSelection
// (a real citation with line bounds) or a SourceOverview.
type Selection interface {
	Source() string
	isSelection()
}

// CitationSelection highlights lines From..To (1-based, inclusive).
type CitationSelection struct {
	Citation content.Citation
	From     int
	To       int
}

func (s CitationSelection) Source() string { return s.Citation.SourceID }
func (CitationSelection) isSelection() {}

// SourceOverview opens the full source without any highlight.
type SourceOverview struct {
	SourceID string
	Title    string
	Type     types.SourceType
}

func (s SourceOverview) Source() string { return s.SourceID }
func (SourceOverview) isSelection() {}

// Classify turns a wire citation into a selection. The overview sentinel and
// citations without valid line bounds are soft regardless of other fields.
func Classify(c content.Citation) Selection {
	from, to, ok := c.LineBounds()
	if c.CitationID == SourceOverviewID || !ok {
		return SourceOverview{
			SourceID: c.SourceID,
			Title:    c.SourceTitle,
			Type:     c.SourceType,
		}
	}
	return CitationSelection{Citation: c, From: from, To: to}
}

// Line is one addressable line of a source document.
type Line struct {
	Number      int    `json:"number"`
	Text        string `json:"text"`
	Highlighted bool   `json:"highlighted"`
}

// Lines splits source content into its 1-based line space.
func Lines(text string) []Line {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	lines := make([]Line, len(parts))
	for i, p := range parts {
		lines[i] = Line{Number: i + 1, Text: p}
	}
	return lines
}

// View is the rendered state of a source in the viewer.
type View struct {
	SourceID string `json:"source_id"`
	Lines    []Line `json:"lines"`
	// FirstHighlighted is the scroll target, 0 when nothing is highlighted.
	FirstHighlighted int `json:"first_highlighted"`
}

// Highlight marks the lines covered by sel. Soft selections and ranges that
// fall outside the document leave every line plain.
func Highlight(text string, sel Selection) View {
	view := View{Lines: Lines(text)}
	if sel != nil {
		view.SourceID = sel.Source()
	}

	cs, ok := sel.(CitationSelection)
	if !ok {
		return view
	}
	for i := range view.Lines {
		n := view.Lines[i].Number
		if n >= cs.From && n <= cs.To {
			view.Lines[i].Highlighted = true
			if view.FirstHighlighted == 0 {
				view.FirstHighlighted = n
			}
		}
	}
	return view
}

// Highlighted returns the numbers of highlighted lines.
func (v View) Highlighted() []int {
	var out []int
	for _, l := range v.Lines {
		if l.Highlighted {
			out = append(out, l.Number)
		}
	}
	return out
}

// ScrollOffset centers an element of the given height and top offset inside
// a viewport, never scrolling above the start.
func ScrollOffset(top, height, viewport float64) float64 {
	offset := top - viewport/2 + height/2
	if offset < 0 {
		return 0
	}
	return offset
}
