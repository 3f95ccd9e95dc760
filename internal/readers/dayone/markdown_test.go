package dayone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/journalport/internal/delta"
)

func TestReplaceMomentLinks(t *testing.T) {
	kinds := map[string]string{
		"ABC-1": delta.TokenPhoto,
		"VID-2": delta.TokenVideo,
	}
	var unknown []string

	got := replaceMomentLinks(
		"See ![](dayone-moment://ABC-1) and dayone-moment://VID-2 and ![x](dayone-moment://ZZZ)",
		kinds,
		func(id string) { unknown = append(unknown, id) },
	)

	assert.Equal(t, "See DAYONE_PHOTO:ABC-1 and DAYONE_VIDEO:VID-2 and DAYONE_PHOTO:ZZZ", got)
	assert.Equal(t, []string{"ZZZ"}, unknown)
}

func TestReplaceMomentLinks_NoLinks(t *testing.T) {
	assert.Equal(t, "nothing here", replaceMomentLinks("nothing here", nil, nil))
}

func newlineAttrs(doc *delta.Document) []map[string]any {
	var out []map[string]any
	for _, op := range doc.Ops {
		if op.Embed == nil && op.Insert == "\n" && len(op.Attributes) > 0 {
			out = append(out, op.Attributes)
		}
	}
	return out
}

func TestMarkdownToDelta(t *testing.T) {
	doc := markdownToDelta("# Hello\n\nSome **bold** and *soft* text\n\n- one\n- two\n\n> quoted\n\nDAYONE_PHOTO:P-1")

	assert.Equal(t, "Hello\nSome bold and soft text\none\ntwo\nquoted", delta.PlainText(doc))
	assert.Equal(t, []delta.Embed{{Kind: delta.EmbedImage, Ref: "P-1"}}, doc.Embeds())
	assert.Equal(t, []map[string]any{
		{"header": 1},
		{"list": "bullet"},
		{"list": "bullet"},
		{"blockquote": true},
	}, newlineAttrs(doc))

	var bold, italic bool
	for _, op := range doc.Ops {
		if op.Insert == "bold" && op.Attributes["bold"] == true {
			bold = true
		}
		if op.Insert == "soft" && op.Attributes["italic"] == true {
			italic = true
		}
	}
	assert.True(t, bold, "bold run")
	assert.True(t, italic, "italic run")

	last := doc.Ops[len(doc.Ops)-1]
	assert.Equal(t, "\n", last.Insert)
}

func TestMarkdownToDelta_InlinePlaceholder(t *testing.T) {
	doc := markdownToDelta("Look DAYONE_VIDEO:V1 here")

	assert.Equal(t, []delta.Op{
		delta.Text("Look ", nil),
		delta.Text("\n", nil),
		delta.NewEmbed(delta.EmbedVideo, "V1"),
		delta.Text("\n", nil),
		delta.Text("here", nil),
		delta.Text("\n", nil),
	}, doc.Ops)
}

func TestMarkdownToDelta_CodeBlock(t *testing.T) {
	doc := markdownToDelta("```\nline one\nline two\n```")

	assert.Equal(t, []delta.Op{
		delta.Text("line one", nil),
		delta.Text("\n", map[string]any{"code-block": true}),
		delta.Text("line two", nil),
		delta.Text("\n", map[string]any{"code-block": true}),
	}, doc.Ops)
}
