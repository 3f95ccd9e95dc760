// Package delta implements the Content Document: a flat, ordered sequence of
// operations where each op is either a styled text run or a single embed.
//
// The JSON form is Quill-compatible:
//
//	{"ops":[{"insert":"Hello"},{"insert":"\n","attributes":{"header":1}},{"insert":{"image":"<ref>"}}]}
//
// Line-level attributes (header, list, blockquote...) live on the newline
// that terminates the line. Embeds are never merged with neighbouring text.
package delta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	EmbedImage = "image"
	EmbedVideo = "video"
	EmbedAudio = "audio"
)

// Embed is a non-text insert, typically a media reference.
type Embed struct {
	Kind string
	Ref  string
}

// Op is a single document operation.
type Op struct {
	Insert     string
	Embed      *Embed
	Attributes map[string]any
}

// IsEmbed reports whether the op carries an embed rather than text.
func (o Op) IsEmbed() bool { return o.Embed != nil }

func (o Op) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if o.Embed != nil {
		out["insert"] = map[string]string{o.Embed.Kind: o.Embed.Ref}
	} else {
		out["insert"] = o.Insert
	}
	if len(o.Attributes) > 0 {
		out["attributes"] = o.Attributes
	}
	return json.Marshal(out)
}

func (o *Op) UnmarshalJSON(data []byte) error {
	var raw struct {
		Insert     json.RawMessage `json:"insert"`
		Attributes map[string]any  `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Attributes = raw.Attributes
	o.Embed = nil
	o.Insert = ""

	trimmed := bytes.TrimSpace(raw.Insert)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &o.Insert)
	}

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("op insert must be a string or an object: %w", err)
	}
	if len(obj) == 0 {
		return fmt.Errorf("op insert object is empty")
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kind := keys[0]
	ref := ""
	switch v := obj[kind].(type) {
	case string:
		ref = v
	case nil:
	default:
		b, _ := json.Marshal(v)
		ref = string(b)
	}
	o.Embed = &Embed{Kind: kind, Ref: ref}
	return nil
}

// Document is the content document.
type Document struct {
	Ops []Op `json:"ops"`
}

// Empty returns a document holding a single newline.
func Empty() *Document {
	return &Document{Ops: []Op{{Insert: "\n"}}}
}

// Text creates a text op.
func Text(s string, attrs map[string]any) Op {
	return Op{Insert: s, Attributes: attrs}
}

// NewEmbed creates an embed op.
func NewEmbed(kind, ref string) Op {
	return Op{Embed: &Embed{Kind: kind, Ref: ref}}
}

// Clone returns a deep-enough copy: ops and embeds are copied, attribute maps
// are shared.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	ops := make([]Op, len(d.Ops))
	for i, op := range d.Ops {
		ops[i] = op
		if op.Embed != nil {
			e := *op.Embed
			ops[i].Embed = &e
		}
	}
	return &Document{Ops: ops}
}

// Embeds returns every embed in document order.
func (d *Document) Embeds() []Embed {
	if d == nil {
		return nil
	}
	var out []Embed
	for _, op := range d.Ops {
		if op.Embed != nil {
			out = append(out, *op.Embed)
		}
	}
	return out
}

// IsBlank reports whether the document has no embeds and only whitespace text.
func (d *Document) IsBlank() bool {
	if d == nil {
		return true
	}
	for _, op := range d.Ops {
		if op.Embed != nil || strings.TrimSpace(op.Insert) != "" {
			return false
		}
	}
	return true
}

// Normalize guarantees the document ends with a newline and drops empty text
// ops. An empty document becomes a single newline.
func (d *Document) Normalize() *Document {
	if d == nil {
		return Empty()
	}
	ops := make([]Op, 0, len(d.Ops)+1)
	for _, op := range d.Ops {
		if op.Embed == nil && op.Insert == "" {
			continue
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return Empty()
	}
	last := ops[len(ops)-1]
	if last.Embed != nil || !strings.HasSuffix(last.Insert, "\n") {
		ops = append(ops, Op{Insert: "\n"})
	}
	d.Ops = ops
	return d
}

// PlainText concatenates every text run. Embeds contribute nothing.
func PlainText(d *Document) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, op := range d.Ops {
		if op.Embed == nil {
			b.WriteString(op.Insert)
		}
	}
	return strings.TrimSpace(b.String())
}

// WordCount counts whitespace separated words of the plain text.
func WordCount(d *Document) int {
	return len(strings.Fields(PlainText(d)))
}

// WrapPlainText turns plain text into a single-run document.
func WrapPlainText(text string) *Document {
	if strings.TrimSpace(text) == "" {
		return Empty()
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return &Document{Ops: []Op{{Insert: text}}}
}

// WrapTokenized turns plain text containing inline placeholders into a
// document where each placeholder becomes an embed on its own line.
func WrapTokenized(text string) *Document {
	if strings.TrimSpace(text) == "" {
		return Empty()
	}
	doc := &Document{}
	for _, tok := range Tokenize(text) {
		if tok.IsEmbed() {
			appendBreak(doc)
			doc.Ops = append(doc.Ops, NewEmbed(tok.Embed.Kind, tok.Embed.Ref), Op{Insert: "\n"})
			continue
		}
		s := tok.Text
		if len(doc.Ops) > 0 && doc.Ops[len(doc.Ops)-1].Insert == "\n" {
			s = strings.TrimPrefix(s, "\n")
		}
		if s != "" {
			doc.Ops = append(doc.Ops, Op{Insert: s})
		}
	}
	return doc.Normalize()
}

// appendBreak makes sure the next op starts on a fresh line.
func appendBreak(doc *Document) {
	if len(doc.Ops) == 0 {
		return
	}
	last := doc.Ops[len(doc.Ops)-1]
	if last.Embed != nil || !strings.HasSuffix(last.Insert, "\n") {
		doc.Ops = append(doc.Ops, Op{Insert: "\n"})
	}
}

// StripTitleLine removes the first line when it consists only of text runs,
// its terminating newline carries a header attribute, and its trimmed text
// equals title exactly. In every other case the document is returned as is.
func StripTitleLine(d *Document, title string) *Document {
	if d == nil || title == "" {
		return d
	}

	var parts []string
	newlineIdx := -1
	for i, op := range d.Ops {
		if op.Embed != nil {
			return d
		}
		if idx := strings.Index(op.Insert, "\n"); idx >= 0 {
			if idx > 0 {
				parts = append(parts, op.Insert[:idx])
			}
			newlineIdx = i
			break
		}
		parts = append(parts, op.Insert)
	}
	if newlineIdx < 0 {
		return d
	}
	if _, ok := d.Ops[newlineIdx].Attributes["header"]; !ok {
		return d
	}
	if strings.TrimSpace(strings.Join(parts, "")) != title {
		return d
	}

	var ops []Op
	nl := d.Ops[newlineIdx].Insert
	if rest := nl[strings.Index(nl, "\n")+1:]; rest != "" {
		ops = append(ops, Op{Insert: rest})
	}
	ops = append(ops, d.Ops[newlineIdx+1:]...)
	if len(ops) == 0 {
		return Empty()
	}
	return &Document{Ops: ops}
}
