// Package content implements the citation-addressable content model shared by
// chat messages, notes and the source viewer: segments tagged with citation
// ids, the citations they point to, and the two wire forms (plain string and
// structured object) they arrive in.
package content

import (
	"bytes"
	"encoding/json"

	"github.com/insightslm/insightslm/pkg/types"
)

// Segment is a contiguous span of text, optionally tagged with one citation.
type Segment struct {
	Text       string `json:"text"`
	CitationID *int   `json:"citation_id,omitempty"`
}

// Citation points from a segment to a line range of a source document.
// Optional fields are pointers so that an absent value and a zero value
// survive a JSON round trip unchanged.
type Citation struct {
	CitationID     int              `json:"citation_id"`
	SourceID       string           `json:"source_id"`
	SourceTitle    string           `json:"source_title"`
	SourceType     types.SourceType `json:"source_type"`
	ChunkIndex     *int             `json:"chunk_index,omitempty"`
	ChunkLinesFrom *int             `json:"chunk_lines_from,omitempty"`
	ChunkLinesTo   *int             `json:"chunk_lines_to,omitempty"`
	Excerpt        *string          `json:"excerpt,omitempty"`
}

// Ordinal is the 1-based number shown to the user for this citation.
func (c Citation) Ordinal() int {
	if c.ChunkIndex == nil {
		return 1
	}
	return *c.ChunkIndex + 1
}

// LineBounds returns the inclusive 1-based line range. ok is false when the
// bounds are missing or invalid, which makes the citation a soft one.
func (c Citation) LineBounds() (from, to int, ok bool) {
	if c.ChunkLinesFrom == nil || c.ChunkLinesTo == nil {
		return 0, 0, false
	}
	from, to = *c.ChunkLinesFrom, *c.ChunkLinesTo
	if from <= 0 || to < from {
		return 0, 0, false
	}
	return from, to, true
}

// Content is either Plain or Structured.
type Content interface {
	isContent()
}

// Plain is the legacy form: a raw string rendered as a single segment.
type Plain string

func (Plain) isContent() {}

// Structured carries ordered segments and the citations they reference.
type Structured struct {
	Segments  []Segment  `json:"segments"`
	Citations []Citation `json:"citations"`
}

func (Structured) isContent() {}

// Citation returns the citation with the given id.
func (s Structured) Citation(id int) (Citation, bool) {
	for _, c := range s.Citations {
		if c.CitationID == id {
			return c, true
		}
	}
	return Citation{}, false
}

func (s Structured) citationIndex() map[int]Citation {
	idx := make(map[int]Citation, len(s.Citations))
	for i := len(s.Citations) - 1; i >= 0; i-- {
		idx[s.Citations[i].CitationID] = s.Citations[i]
	}
	return idx
}

// Normalize resolves any Content into its structured form. A Plain value
// becomes one uncited segment with an empty citation set.
func Normalize(c Content) Structured {
	switch v := c.(type) {
	case Structured:
		return v
	case *Structured:
		if v != nil {
			return *v
		}
	case Plain:
		return Structured{
			Segments:  []Segment{{Text: string(v)}},
			Citations: []Citation{},
		}
	}
	return Structured{Segments: []Segment{}, Citations: []Citation{}}
}

// Parse reads a content value as it appears inside a JSON document: either a
// JSON string or a {segments, citations} object. Anything else is kept as
// plain text.
func Parse(raw json.RawMessage) Content {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Plain("")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Plain(s)
		}
	case '{':
		if st, ok := decodeStructured(trimmed); ok {
			return st
		}
	}
	return Plain(string(raw))
}

// decodeStructured accepts a value only if it is a JSON object holding a
// segments array. A broken citations list degrades to no citations.
func decodeStructured(b []byte) (Structured, bool) {
	var shape struct {
		Segments  json.RawMessage `json:"segments"`
		Citations json.RawMessage `json:"citations"`
	}
	if err := json.Unmarshal(b, &shape); err != nil {
		return Structured{}, false
	}

	segs := bytes.TrimSpace(shape.Segments)
	if len(segs) == 0 || segs[0] != '[' {
		return Structured{}, false
	}

	var st Structured
	if err := json.Unmarshal(segs, &st.Segments); err != nil {
		return Structured{}, false
	}

	if cits := bytes.TrimSpace(shape.Citations); len(cits) > 0 {
		if err := json.Unmarshal(cits, &st.Citations); err != nil {
			st.Citations = nil
		}
	}
	return st, true
}
