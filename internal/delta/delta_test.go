package delta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOp_JSONRoundTrip(t *testing.T) {
	raw := `{"ops":[{"insert":"Hello","attributes":{"bold":true}},{"insert":"\n","attributes":{"header":1}},{"insert":{"image":"abc"}},{"insert":"\n"}]}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Len(t, doc.Ops, 4)

	assert.Equal(t, "Hello", doc.Ops[0].Insert)
	assert.Equal(t, true, doc.Ops[0].Attributes["bold"])
	assert.Equal(t, float64(1), doc.Ops[1].Attributes["header"])
	require.True(t, doc.Ops[2].IsEmbed())
	assert.Equal(t, EmbedImage, doc.Ops[2].Embed.Kind)
	assert.Equal(t, "abc", doc.Ops[2].Embed.Ref)

	out, err := json.Marshal(&doc)
	require.NoError(t, err)

	var again Document
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, doc.Embeds(), again.Embeds())
	assert.Equal(t, PlainText(&doc), PlainText(&again))
}

func TestOp_UnmarshalRejectsEmptyEmbed(t *testing.T) {
	var op Op
	err := json.Unmarshal([]byte(`{"insert":{}}`), &op)
	assert.Error(t, err)
}

func TestPlainTextAndWordCount(t *testing.T) {
	doc := &Document{Ops: []Op{
		Text("Morning walk", nil),
		Text("\n", map[string]any{"header": 1}),
		NewEmbed(EmbedImage, "x"),
		Text("\nit was  cold\n", nil),
	}}

	assert.Equal(t, "Morning walk\n\nit was  cold", PlainText(doc))
	assert.Equal(t, 5, WordCount(doc))
	assert.Equal(t, 0, WordCount(nil))
}

func TestNormalize(t *testing.T) {
	t.Run("nil becomes single newline", func(t *testing.T) {
		var d *Document
		assert.Equal(t, Empty(), d.Normalize())
	})

	t.Run("trailing embed gets newline", func(t *testing.T) {
		d := (&Document{Ops: []Op{NewEmbed(EmbedVideo, "v")}}).Normalize()
		require.Len(t, d.Ops, 2)
		assert.Equal(t, "\n", d.Ops[1].Insert)
	})

	t.Run("empty text ops dropped", func(t *testing.T) {
		d := (&Document{Ops: []Op{Text("", nil), Text("a\n", nil)}}).Normalize()
		require.Len(t, d.Ops, 1)
		assert.Equal(t, "a\n", d.Ops[0].Insert)
	})
}

func TestWrapTokenized(t *testing.T) {
	doc := WrapTokenized("Before DAYONE_PHOTO:abc123 after\nDAYONE_VIDEO:v-1")

	embeds := doc.Embeds()
	require.Len(t, embeds, 2)
	assert.Equal(t, Embed{Kind: EmbedImage, Ref: "abc123"}, embeds[0])
	assert.Equal(t, Embed{Kind: EmbedVideo, Ref: "v-1"}, embeds[1])
	assert.Equal(t, "\n", doc.Ops[len(doc.Ops)-1].Insert)
	assert.NotContains(t, PlainText(doc), "DAYONE_")
}

func TestStripTitleLine(t *testing.T) {
	header := map[string]any{"header": 1}

	tests := []struct {
		name     string
		doc      *Document
		title    string
		stripped bool
	}{
		{
			name: "matching header line is removed",
			doc: &Document{Ops: []Op{
				Text("Trip", nil), Text("\n", header), Text("Body\n", nil),
			}},
			title:    "Trip",
			stripped: true,
		},
		{
			name: "text differs from title",
			doc: &Document{Ops: []Op{
				Text("Trip to Rome", nil), Text("\n", header), Text("Body\n", nil),
			}},
			title: "Trip",
		},
		{
			name: "newline without header",
			doc: &Document{Ops: []Op{
				Text("Trip\n", nil), Text("Body\n", nil),
			}},
			title: "Trip",
		},
		{
			name: "embed before the first newline",
			doc: &Document{Ops: []Op{
				NewEmbed(EmbedImage, "a"), Text("\n", header),
			}},
			title: "Trip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripTitleLine(tt.doc, tt.title)
			if !tt.stripped {
				assert.Same(t, tt.doc, got)
				return
			}
			assert.Equal(t, "Body", PlainText(got))
		})
	}
}

func TestStripTitleLine_OnlyTitle(t *testing.T) {
	doc := &Document{Ops: []Op{Text("Trip", nil), Text("\n", map[string]any{"header": 1})}}
	assert.Equal(t, Empty(), StripTitleLine(doc, "Trip"))
}
