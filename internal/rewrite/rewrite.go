// Package rewrite remaps media references inside content documents when ids
// change between systems.
//
// Two reference families are handled in a single pass: embed ops whose ref
// is a media id, an archive path or a DayOne identifier, and inline text
// placeholders of the form DAYONE_PHOTO:<identifier>.
package rewrite

import (
	"strings"

	"github.com/mrlokans/journalport/internal/delta"
)

// Resolver maps a reference to its replacement.
type Resolver interface {
	Resolve(kind, ref string) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(kind, ref string) (string, bool)

func (f ResolverFunc) Resolve(kind, ref string) (string, bool) { return f(kind, ref) }

// Notation renders an unresolved embed as text.
type Notation func(kind, ref string) string

// DayOneNotation writes DAYONE_PHOTO:<identifier> style placeholders, which
// Rewrite resolves again on a later pass.
func DayOneNotation(kind, ref string) string {
	return delta.Placeholder(kind, ref)
}

// NativeNotation writes [image: <ref>], naming the media id or archive path
// the export used.
func NativeNotation(kind, ref string) string {
	if kind == "" {
		kind = delta.EmbedImage
	}
	return "[" + kind + ": " + ref + "]"
}

// Unresolved is a reference the resolver did not know. It stays in the
// document as literal placeholder text.
type Unresolved struct {
	Kind    string
	Ref     string
	Literal string
}

// Rewrite returns a rewritten copy of doc and the references that could not
// be resolved. doc itself is not modified.
//
// Resolved embeds keep their kind and get the new ref. Resolved text
// placeholders become embeds. An unresolved embed becomes a text run in the
// notation of its source on its own line; nil means NativeNotation. An
// unresolved text placeholder is left as is.
func Rewrite(doc *delta.Document, r Resolver, notation Notation) (*delta.Document, []Unresolved) {
	if doc == nil {
		return nil, nil
	}
	if notation == nil {
		notation = NativeNotation
	}

	out := &delta.Document{Ops: make([]delta.Op, 0, len(doc.Ops))}
	var unresolved []Unresolved

	for i, op := range doc.Ops {
		if op.IsEmbed() {
			if newRef, ok := r.Resolve(op.Embed.Kind, op.Embed.Ref); ok {
				out.Ops = append(out.Ops, delta.Op{
					Embed:      &delta.Embed{Kind: op.Embed.Kind, Ref: newRef},
					Attributes: op.Attributes,
				})
				continue
			}
			literal := notation(op.Embed.Kind, op.Embed.Ref)
			unresolved = append(unresolved, Unresolved{Kind: op.Embed.Kind, Ref: op.Embed.Ref, Literal: literal})
			if !endsLine(out) {
				out.Ops = append(out.Ops, delta.Op{Insert: "\n"})
			}
			out.Ops = append(out.Ops, delta.Op{Insert: literal})
			if !startsLine(doc.Ops, i+1) {
				out.Ops = append(out.Ops, delta.Op{Insert: "\n"})
			}
			continue
		}

		if !delta.HasPlaceholder(op.Insert) {
			out.Ops = append(out.Ops, op)
			continue
		}
		for _, tok := range delta.Tokenize(op.Insert) {
			if !tok.IsEmbed() {
				out.Ops = append(out.Ops, delta.Op{Insert: tok.Text, Attributes: op.Attributes})
				continue
			}
			if newRef, ok := r.Resolve(tok.Embed.Kind, tok.Embed.Ref); ok {
				out.Ops = append(out.Ops, delta.NewEmbed(tok.Embed.Kind, newRef))
				continue
			}
			unresolved = append(unresolved, Unresolved{Kind: tok.Embed.Kind, Ref: tok.Embed.Ref, Literal: tok.Literal})
			out.Ops = append(out.Ops, delta.Op{Insert: tok.Literal, Attributes: op.Attributes})
		}
	}

	return out.Normalize(), unresolved
}

func endsLine(d *delta.Document) bool {
	if len(d.Ops) == 0 {
		return true
	}
	last := d.Ops[len(d.Ops)-1]
	return !last.IsEmbed() && strings.HasSuffix(last.Insert, "\n")
}

func startsLine(ops []delta.Op, i int) bool {
	if i >= len(ops) {
		return false
	}
	return !ops[i].IsEmbed() && strings.HasPrefix(ops[i].Insert, "\n")
}
