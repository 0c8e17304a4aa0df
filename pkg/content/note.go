package content

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/insightslm/insightslm/pkg/types"
)

const (
	TitleMaxLength         = 50
	PreviewMaxLength       = 100
	ExtractedTextMaxLength = 200
	TitleSourceMaxLength   = 1000

	DefaultResponseTitle = "AI Response"
)

// Encode serializes structured content for storage in a note row. A nil
// segment list is stored as an empty array so the value still loads back as
// structured content.
func Encode(s Structured) (string, error) {
	if s.Segments == nil {
		s.Segments = []Segment{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode loads a stored value. Only a JSON object holding a segments array is
// structured; everything else is plain text.
func Decode(stored string) Content {
	if st, ok := decodeStructured([]byte(stored)); ok {
		return st
	}
	return Plain(stored)
}

// NoteContent resolves a note row into content. User notes never carry a
// JSON envelope, and ai_response rows whose value does not decode fall back
// to plain text.
func NoteContent(note *types.Note) Content {
	if note.SourceType == types.NOTE_SOURCE_AI_RESPONSE {
		return Decode(note.Content)
	}
	return Plain(note.Content)
}

// Preview is the short text shown in note lists.
func Preview(note *types.Note) string {
	if note.ExtractedText != "" {
		return note.ExtractedText
	}
	if note.SourceType == types.NOTE_SOURCE_AI_RESPONSE {
		if st, ok := NoteContent(note).(Structured); ok && len(st.Segments) > 0 && st.Segments[0].Text != "" {
			return st.Segments[0].Text
		}
	}
	return Ellipsis(note.Content, PreviewMaxLength)
}

// NoteTitle derives the title a note gets when saved without one: the first
// segment of structured content, or the first line of plain text.
func NoteTitle(c Content) string {
	var title string
	switch v := c.(type) {
	case Structured:
		if len(v.Segments) > 0 {
			title = v.Segments[0].Text
		}
		if title == "" {
			title = DefaultResponseTitle
		}
	case Plain:
		title, _, _ = strings.Cut(string(v), "\n")
	}
	return Clip(title, TitleMaxLength)
}

// ExtractedText is the searchable summary stored next to structured content.
func ExtractedText(s Structured) string {
	texts := lo.Map(lo.Slice(s.Segments, 0, 3), func(seg Segment, _ int) string {
		return seg.Text
	})
	return Truncate(strings.Join(texts, " "), ExtractedTextMaxLength)
}

// TitleSourceText prepares note content for title generation. Structured
// JSON contributes its first three segments.
func TitleSourceText(raw string) string {
	text := raw
	if st, ok := decodeStructured([]byte(raw)); ok && len(st.Segments) > 0 {
		text = strings.Join(lo.Map(lo.Slice(st.Segments, 0, 3), func(seg Segment, _ int) string {
			return seg.Text
		}), " ")
	}
	return Truncate(text, TitleSourceMaxLength)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Ellipsis cuts s to max runes and appends "..." when something was cut.
func Ellipsis(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// Clip keeps the result within max runes including the trailing "...".
func Clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
