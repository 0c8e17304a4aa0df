package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Structured
	}{
		{
			name: "citations with and without line bounds",
			in: Structured{
				Segments: []Segment{
					{Text: "Intro with **bold**."},
					{Text: "Cited line", CitationID: intPtr(1)},
					{Text: "Soft cited", CitationID: intPtr(2)},
				},
				Citations: []Citation{
					{
						CitationID:     1,
						SourceID:       "src-1",
						SourceTitle:    "Paper",
						SourceType:     types.SOURCE_TYPE_PDF,
						ChunkIndex:     intPtr(0),
						ChunkLinesFrom: intPtr(5),
						ChunkLinesTo:   intPtr(7),
						Excerpt:        strPtr("quoted <text> & more"),
					},
					{
						CitationID:  2,
						SourceID:    "src-2",
						SourceTitle: "Site",
						SourceType:  types.SOURCE_TYPE_WEBSITE,
					},
				},
			},
		},
		{
			name: "zero values survive as present",
			in: Structured{
				Segments:  []Segment{{Text: "", CitationID: intPtr(0)}},
				Citations: []Citation{{CitationID: 0, ChunkIndex: intPtr(0), Excerpt: strPtr("")}},
			},
		},
		{
			name: "empty citation list",
			in: Structured{
				Segments:  []Segment{{Text: "x"}},
				Citations: []Citation{},
			},
		},
		{
			name: "nil citation list",
			in: Structured{
				Segments: []Segment{{Text: "x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.in)
			require.NoError(t, err)

			out, ok := Decode(raw).(Structured)
			require.True(t, ok, raw)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestEncodeNilSegments(t *testing.T) {
	raw, err := Encode(Structured{})
	require.NoError(t, err)
	_, ok := Decode(raw).(Structured)
	assert.True(t, ok)
}

func TestDecodeFallsBackToPlain(t *testing.T) {
	for _, raw := range []string{
		"just a note",
		`["segments"]`,
		`{"segments":null}`,
		`{"content":"x"}`,
		`{"segments":[{"text":1}]}`,
		`{not json`,
		`"quoted"`,
	} {
		assert.Equal(t, Plain(raw), Decode(raw), raw)
	}
}

func TestNoteContent(t *testing.T) {
	structured := `{"segments":[{"text":"a"}],"citations":[]}`

	ai := &types.Note{SourceType: types.NOTE_SOURCE_AI_RESPONSE, Content: structured}
	_, ok := NoteContent(ai).(Structured)
	assert.True(t, ok)

	legacy := &types.Note{SourceType: types.NOTE_SOURCE_AI_RESPONSE, Content: "legacy text"}
	assert.Equal(t, Plain("legacy text"), NoteContent(legacy))

	user := &types.Note{SourceType: types.NOTE_SOURCE_USER, Content: structured}
	assert.Equal(t, Plain(structured), NoteContent(user))
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("x", 150)

	tests := []struct {
		name string
		note types.Note
		want string
	}{
		{
			name: "extracted text wins",
			note: types.Note{SourceType: types.NOTE_SOURCE_AI_RESPONSE, Content: `{"segments":[{"text":"first"}]}`, ExtractedText: "stored"},
			want: "stored",
		},
		{
			name: "first segment of structured content",
			note: types.Note{SourceType: types.NOTE_SOURCE_AI_RESPONSE, Content: `{"segments":[{"text":"first"},{"text":"second"}]}`},
			want: "first",
		},
		{
			name: "legacy ai row falls back to raw",
			note: types.Note{SourceType: types.NOTE_SOURCE_AI_RESPONSE, Content: "short legacy"},
			want: "short legacy",
		},
		{
			name: "long user note is truncated",
			note: types.Note{SourceType: types.NOTE_SOURCE_USER, Content: long},
			want: strings.Repeat("x", 100) + "...",
		},
		{
			name: "short user note untouched",
			note: types.Note{SourceType: types.NOTE_SOURCE_USER, Content: "hello"},
			want: "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(&tt.note))
		})
	}
}

func TestNoteTitle(t *testing.T) {
	assert.Equal(t, "Short answer", NoteTitle(Structured{Segments: []Segment{{Text: "Short answer"}}}))
	assert.Equal(t, DefaultResponseTitle, NoteTitle(Structured{}))
	assert.Equal(t, "first line", NoteTitle(Plain("first line\nsecond line")))

	long := NoteTitle(Plain(strings.Repeat("é", 60)))
	assert.Equal(t, strings.Repeat("é", 47)+"...", long)
	assert.Len(t, []rune(long), TitleMaxLength)

	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, NoteTitle(Plain(exact)))
}

func TestExtractedText(t *testing.T) {
	st := Structured{Segments: []Segment{{Text: "one"}, {Text: "two"}, {Text: "three"}, {Text: "four"}}}
	assert.Equal(t, "one two three", ExtractedText(st))

	long := Structured{Segments: []Segment{{Text: strings.Repeat("y", 300)}}}
	assert.Equal(t, strings.Repeat("y", 200), ExtractedText(long))

	assert.Equal(t, "", ExtractedText(Structured{}))
}

func TestTitleSourceText(t *testing.T) {
	raw := `{"segments":[{"text":"a"},{"text":"b"},{"text":"c"},{"text":"d"}],"citations":[]}`
	assert.Equal(t, "a b c", TitleSourceText(raw))

	assert.Equal(t, "plain note", TitleSourceText("plain note"))
	assert.Len(t, []rune(TitleSourceText(strings.Repeat("z", 1200))), TitleSourceMaxLength)

	// an empty segment list keeps the raw value
	empty := `{"segments":[]}`
	assert.Equal(t, empty, TitleSourceText(empty))
}
