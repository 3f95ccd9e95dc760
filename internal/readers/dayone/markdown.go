package dayone

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/mrlokans/journalport/internal/delta"
)

var (
	momentImageLink = regexp.MustCompile(`!\[[^\]]*\]\(dayone-moment://([A-Za-z0-9-]+)\)`)
	momentBareLink  = regexp.MustCompile(`dayone-moment://([A-Za-z0-9-]+)`)
)

// replaceMomentLinks turns dayone-moment:// links into inline placeholders.
// kinds maps a media identifier to its placeholder token kind; unknown
// identifiers are reported through unknown and default to photos.
func replaceMomentLinks(s string, kinds map[string]string, unknown func(id string)) string {
	if !strings.Contains(s, "dayone-moment://") {
		return s
	}
	repl := func(re *regexp.Regexp) func(string) string {
		return func(match string) string {
			id := re.FindStringSubmatch(match)[1]
			kind, ok := kinds[id]
			if !ok {
				if unknown != nil {
					unknown(id)
				}
				kind = delta.TokenPhoto
			}
			return kind + ":" + id
		}
	}
	s = momentImageLink.ReplaceAllStringFunc(s, repl(momentImageLink))
	return momentBareLink.ReplaceAllStringFunc(s, repl(momentBareLink))
}

// markdownToDelta converts markdown into a content document. Inline
// placeholders become embeds on their own line.
func markdownToDelta(src string) *delta.Document {
	source := []byte(src)
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	r := &mdRenderer{source: source, doc: &delta.Document{}}
	r.blocks(root, nil, 0)
	r.flush()
	return r.doc.Normalize()
}

type mdRenderer struct {
	source []byte
	doc    *delta.Document

	buf      strings.Builder
	bufAttrs map[string]any
	// lineOpen is false right after a newline or an embed line.
	lineOpen bool
}

func (r *mdRenderer) blocks(parent ast.Node, line map[string]any, depth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			r.inlines(node, nil)
			r.endLine(map[string]any{"header": min(node.Level, 6)})
		case *ast.Paragraph, *ast.TextBlock:
			r.inlines(node, nil)
			r.endLine(line)
		case *ast.List:
			style := "bullet"
			if node.IsOrdered() {
				style = "ordered"
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				attrs := map[string]any{"list": style}
				if depth > 0 {
					attrs["indent"] = depth
				}
				r.blocks(item, attrs, depth+1)
			}
		case *ast.Blockquote:
			r.blocks(node, map[string]any{"blockquote": true}, depth)
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				r.text(strings.TrimRight(string(seg.Value(r.source)), "\r\n"), nil)
				if _, isHTML := node.(*ast.HTMLBlock); isHTML {
					r.endLine(nil)
				} else {
					r.endLine(map[string]any{"code-block": true})
				}
			}
		case *ast.ThematicBreak:
			r.text("---", nil)
			r.endLine(nil)
		default:
			r.blocks(node, line, depth)
		}
	}
}

func (r *mdRenderer) inlines(parent ast.Node, attrs map[string]any) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			r.text(string(node.Segment.Value(r.source)), attrs)
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.text("\n", nil)
			}
		case *ast.String:
			r.text(string(node.Value), attrs)
		case *ast.Emphasis:
			key := "italic"
			if node.Level >= 2 {
				key = "bold"
			}
			r.inlines(node, with(attrs, key, true))
		case *ast.CodeSpan:
			r.inlines(node, with(attrs, "code", true))
		case *ast.Link:
			r.inlines(node, with(attrs, "link", string(node.Destination)))
		case *ast.Image:
			r.inlines(node, with(attrs, "link", string(node.Destination)))
		case *ast.AutoLink:
			url := string(node.URL(r.source))
			r.text(url, with(attrs, "link", url))
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				r.text(string(seg.Value(r.source)), attrs)
			}
		default:
			r.inlines(node, attrs)
		}
	}
}

func with(attrs map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out[key] = value
	return out
}

func sameAttrs(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// text buffers a run so placeholders split across several AST nodes are
// tokenized as one string.
func (r *mdRenderer) text(s string, attrs map[string]any) {
	if s == "" {
		return
	}
	if r.buf.Len() > 0 && !sameAttrs(r.bufAttrs, attrs) {
		r.flush()
	}
	r.bufAttrs = attrs
	r.buf.WriteString(s)
}

func (r *mdRenderer) flush() {
	if r.buf.Len() == 0 {
		return
	}
	s := r.buf.String()
	attrs := r.bufAttrs
	r.buf.Reset()
	r.bufAttrs = nil

	for _, tok := range delta.Tokenize(s) {
		if tok.IsEmbed() {
			if r.lineOpen {
				r.doc.Ops = append(r.doc.Ops, delta.Text("\n", nil))
			}
			r.doc.Ops = append(r.doc.Ops, delta.NewEmbed(tok.Embed.Kind, tok.Embed.Ref), delta.Text("\n", nil))
			r.lineOpen = false
			continue
		}
		run := tok.Text
		if !r.lineOpen {
			run = strings.TrimLeft(run, " \n")
		}
		if run == "" {
			continue
		}
		r.doc.Ops = append(r.doc.Ops, delta.Text(run, attrs))
		r.lineOpen = !strings.HasSuffix(run, "\n")
	}
}

// endLine terminates the current line with the given line attributes. A line
// left empty by an embed is not terminated twice.
func (r *mdRenderer) endLine(attrs map[string]any) {
	r.flush()
	if !r.lineOpen && len(attrs) == 0 {
		return
	}
	r.doc.Ops = append(r.doc.Ops, delta.Text("\n", attrs))
	r.lineOpen = false
}
