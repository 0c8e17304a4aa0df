package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) Node { return Node{Kind: NodeText, Text: s} }
func strong(s string) Node { return Node{Kind: NodeStrong, Text: s} }

var lineBreak = Node{Kind: NodeLineBreak}

func TestRenderBlockPlain(t *testing.T) {
	doc := Render(Plain("first para\nline two\n\nsecond\n\n   \n\nthird"), ModeBlock)

	require.Len(t, doc.Paragraphs, 3)
	assert.Equal(t, []Node{text("first para"), lineBreak, text("line two")}, doc.Paragraphs[0].Nodes)
	assert.Equal(t, []Node{text("second")}, doc.Paragraphs[1].Nodes)
	assert.Equal(t, []Node{text("third")}, doc.Paragraphs[2].Nodes)
	assert.Empty(t, doc.Markers())
}

func TestRenderInlineKeepsOneRun(t *testing.T) {
	st := Structured{
		Segments: []Segment{
			{Text: "a\nb"},
			{Text: "c", CitationID: intPtr(1)},
		},
		Citations: []Citation{{CitationID: 1, SourceID: "src", ChunkIndex: intPtr(0)}},
	}

	doc := Render(st, ModeInline)

	require.Len(t, doc.Paragraphs, 1)
	nodes := doc.Paragraphs[0].Nodes
	require.Len(t, nodes, 3)
	assert.Equal(t, text("a b"), nodes[0])
	assert.Equal(t, text("c"), nodes[1])
	assert.Equal(t, NodeMarker, nodes[2].Kind)
	assert.Equal(t, 1, nodes[2].Marker.Ordinal)
	assert.Equal(t, "src", nodes[2].Marker.Citation.SourceID)

	for _, n := range nodes {
		assert.NotEqual(t, NodeLineBreak, n.Kind)
	}
}

func TestRenderBlockMarkerOnLastParagraph(t *testing.T) {
	st := Structured{
		Segments: []Segment{
			{Text: "intro"},
			{Text: "p1\n\np2\n\n", CitationID: intPtr(7)},
		},
		Citations: []Citation{{CitationID: 7, ChunkIndex: intPtr(2)}},
	}

	doc := Render(st, ModeBlock)

	require.Len(t, doc.Paragraphs, 3)
	assert.Equal(t, []Node{text("intro")}, doc.Paragraphs[0].Nodes)
	assert.Equal(t, []Node{text("p1")}, doc.Paragraphs[1].Nodes)

	last := doc.Paragraphs[2].Nodes
	require.Len(t, last, 2)
	assert.Equal(t, text("p2"), last[0])
	assert.Equal(t, 3, last[1].Marker.Ordinal)
	assert.Len(t, doc.Markers(), 1)
}

func TestRenderUnresolvedCitation(t *testing.T) {
	st := Structured{
		Segments:  []Segment{{Text: "dangling", CitationID: intPtr(42)}},
		Citations: []Citation{{CitationID: 1}},
	}

	for _, mode := range []Mode{ModeBlock, ModeInline} {
		doc := Render(st, mode)
		assert.Empty(t, doc.Markers(), mode.String())
		require.Len(t, doc.Paragraphs, 1)
		assert.Equal(t, []Node{text("dangling")}, doc.Paragraphs[0].Nodes)
	}
}

func TestEmphasize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Node
	}{
		{
			name: "both delimiters",
			in:   "**bold** and __also__ text",
			want: []Node{strong("bold"), text(" and "), strong("also"), text(" text")},
		},
		{
			name: "unterminated",
			in:   "**oops",
			want: []Node{text("**oops")},
		},
		{
			name: "no markup",
			in:   "plain",
			want: []Node{text("plain")},
		},
		{
			name: "mixed delimiters do not pair",
			in:   "**a__",
			want: []Node{text("**a__")},
		},
		{
			name: "adjacent runs",
			in:   "**a****b**",
			want: []Node{strong("a"), strong("b")},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, emphasize(tt.in))
		})
	}
}

func TestBoldInBothModes(t *testing.T) {
	in := Plain("**bold** and __also__ text")
	want := []Node{strong("bold"), text(" and "), strong("also"), text(" text")}

	assert.Equal(t, want, Render(in, ModeBlock).Paragraphs[0].Nodes)
	assert.Equal(t, want, Render(in, ModeInline).Paragraphs[0].Nodes)
}

func TestMarkerActivate(t *testing.T) {
	st := Structured{
		Segments:  []Segment{{Text: "x", CitationID: intPtr(3)}},
		Citations: []Citation{{CitationID: 3, SourceID: "s3", ChunkLinesFrom: intPtr(2), ChunkLinesTo: intPtr(4)}},
	}

	markers := Render(st, ModeBlock).Markers()
	require.Len(t, markers, 1)

	var got Citation
	markers[0].Activate(func(c Citation) { got = c })
	assert.Equal(t, st.Citations[0], got)

	// nil handler and nil marker are no-ops
	markers[0].Activate(nil)
	var m *Marker
	m.Activate(func(Citation) { t.Fatal("must not be called") })
}

func TestDocumentHTML(t *testing.T) {
	doc := Render(Plain("a & **b**\nc"), ModeBlock)
	assert.Equal(t, "<p>a &amp; <strong>b</strong><br/>c</p>", doc.HTML())

	st := Structured{
		Segments:  []Segment{{Text: "x", CitationID: intPtr(1)}},
		Citations: []Citation{{CitationID: 1, SourceID: "s<1>"}},
	}
	assert.Equal(t,
		`<span>x<button type="button" class="citation" data-citation-id="1" data-source-id="s&lt;1&gt;">1</button></span>`,
		Render(st, ModeInline).HTML())
}

func TestDocumentPlainText(t *testing.T) {
	st := Structured{
		Segments:  []Segment{{Text: "p1\n\np2", CitationID: intPtr(1)}},
		Citations: []Citation{{CitationID: 1, ChunkIndex: intPtr(1)}},
	}
	assert.Equal(t, "p1\n\np2 [2]", Render(st, ModeBlock).PlainText())
}

func TestDocumentTerminalWraps(t *testing.T) {
	doc := Render(Plain("one two three four five six seven"), ModeBlock)
	out := doc.Terminal(10)

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 10)
	}
	assert.Contains(t, out, "seven")
	assert.Equal(t, "one two three four five six seven", doc.Terminal(0))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeInline, ParseMode("INLINE"))
	assert.Equal(t, ModeBlock, ParseMode("block"))
	assert.Equal(t, ModeBlock, ParseMode(""))
}

func TestInlineBoldDoesNotCrossLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Node
	}{
		{"split run stays literal", "**a\nb**", []Node{text("**a b**")}},
		{"run on one line", "x **a**\ny", []Node{text("x "), strong("a"), text(" y")}},
		{"runs on both lines", "**a**\n**b**", []Node{strong("a"), text(" "), strong("b")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(Plain(tt.in), ModeInline).Paragraphs[0].Nodes)
		})
	}
}
