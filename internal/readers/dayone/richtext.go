package dayone

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mrlokans/journalport/internal/delta"
)

const maxTitleLength = 60

// richText is the JSON document DayOne stores, as a string, in richText.
type richText struct {
	Contents []richBlock `json:"contents"`
}

type richBlock struct {
	Text            *string          `json:"text"`
	Attributes      *richAttributes  `json:"attributes"`
	EmbeddedObjects []embeddedObject `json:"embeddedObjects"`
}

type richAttributes struct {
	Bold             bool            `json:"bold"`
	Italic           bool            `json:"italic"`
	Underline        bool            `json:"underline"`
	Strikethrough    bool            `json:"strikethrough"`
	InlineCode       bool            `json:"inlineCode"`
	HighlightedColor string          `json:"highlightedColor"`
	Line             *lineAttributes `json:"line"`
}

type lineAttributes struct {
	Header      int    `json:"header"`
	ListStyle   string `json:"listStyle"`
	Checked     bool   `json:"checked"`
	Quote       bool   `json:"quote"`
	CodeBlock   bool   `json:"codeBlock"`
	IndentLevel int    `json:"indentLevel"`
}

type embeddedObject struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

func (b richBlock) line() lineAttributes {
	if b.Attributes == nil || b.Attributes.Line == nil {
		return lineAttributes{}
	}
	return *b.Attributes.Line
}

// parseRichText decodes the richText field. An empty field yields nil.
func parseRichText(s string) (*richText, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var rt richText
	if err := json.Unmarshal([]byte(s), &rt); err != nil {
		return nil, err
	}
	return &rt, nil
}

// extractTitle returns the text of the first header-1 block, stripped of
// markdown and cut to 60 characters.
func extractTitle(rt *richText) string {
	if rt == nil {
		return ""
	}
	var title string
	for _, b := range rt.Contents {
		if b.Text == nil || b.line().Header != 1 {
			continue
		}
		if strings.TrimSpace(*b.Text) != "" {
			title = *b.Text
			break
		}
	}
	if title == "" {
		return ""
	}

	title = strings.TrimSpace(stripMarkdown(strings.TrimRight(title, "\n")))
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleLength]))
	}
	return title
}

var (
	boldStars       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldUnderscores = regexp.MustCompile(`__([^_]+)__`)
	italicStar      = regexp.MustCompile(`\*([^*]+)\*`)
	italicUnder     = regexp.MustCompile(`_([^_]+)_`)
	inlineCode      = regexp.MustCompile("`([^`]+)`")
	leadingMarks    = regexp.MustCompile("^[#*_`~\\-]+\\s*")
	trailingMarks   = regexp.MustCompile("\\s*[#*_`~\\-]+$")
)

func stripMarkdown(s string) string {
	// Longer delimiters first so ** is not read as two *.
	for _, re := range []*regexp.Regexp{boldStars, boldUnderscores, italicStar, italicUnder, inlineCode} {
		s = re.ReplaceAllString(s, "$1")
	}
	s = leadingMarks.ReplaceAllString(s, "")
	s = trailingMarks.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// hasBody reports whether the document carries text outside header-1 lines
// and whether it embeds any object.
func (rt *richText) hasBody() (text, embeds bool) {
	for _, b := range rt.Contents {
		if len(b.EmbeddedObjects) > 0 {
			embeds = true
		}
		if b.Text != nil && strings.TrimSpace(*b.Text) != "" && b.line().Header != 1 {
			text = true
		}
	}
	return text, embeds
}

// toDelta converts rich text into a content document. refs maps a DayOne
// media identifier to the reference embedded in its place; identifiers
// missing from refs are dropped and returned.
func (rt *richText) toDelta(refs map[string]string) (*delta.Document, []string) {
	if len(rt.Contents) == 0 {
		return delta.Empty(), nil
	}

	var missing []string
	doc := &delta.Document{}
	newline := func(attrs map[string]any) {
		doc.Ops = append(doc.Ops, delta.Text("\n", attrs))
	}

	for _, b := range rt.Contents {
		if b.Text != nil {
			raw := *b.Text
			text := strings.TrimRightFunc(raw, unicode.IsSpace)
			if text != "" {
				doc.Ops = append(doc.Ops, delta.Text(text, inlineAttributes(b.Attributes)))
			}
			format := lineFormat(b.line())
			if strings.HasSuffix(raw, "\n") || format != nil {
				newline(format)
			}
		}

		for _, obj := range b.EmbeddedObjects {
			var kind string
			switch obj.Type {
			case "horizontalRuleLine":
				doc.Ops = append(doc.Ops, delta.Text("---", nil))
				newline(nil)
				continue
			case "photo":
				kind = delta.EmbedImage
			case "video":
				kind = delta.EmbedVideo
			case "audio":
				kind = delta.EmbedAudio
			default:
				continue
			}
			ref, ok := refs[obj.Identifier]
			if !ok {
				missing = append(missing, obj.Identifier)
				continue
			}
			doc.Ops = append(doc.Ops, delta.NewEmbed(kind, ref))
			newline(nil)
		}
	}

	return doc.Normalize(), missing
}

func inlineAttributes(a *richAttributes) map[string]any {
	if a == nil {
		return nil
	}
	attrs := map[string]any{}
	if a.Bold {
		attrs["bold"] = true
	}
	if a.Italic {
		attrs["italic"] = true
	}
	if a.Underline {
		attrs["underline"] = true
	}
	if a.Strikethrough {
		attrs["strike"] = true
	}
	if a.InlineCode {
		attrs["code"] = true
	}
	if a.HighlightedColor != "" {
		attrs["background"] = a.HighlightedColor
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func lineFormat(l lineAttributes) map[string]any {
	format := map[string]any{}
	switch {
	case l.CodeBlock:
		format["code-block"] = true
	case l.Header > 0:
		format["header"] = min(l.Header, 6)
	case l.ListStyle == "bulleted":
		format["list"] = "bullet"
	case l.ListStyle == "numbered":
		format["list"] = "ordered"
	case l.ListStyle == "checkbox":
		if l.Checked {
			format["list"] = "checked"
		} else {
			format["list"] = "unchecked"
		}
	case l.Quote:
		format["blockquote"] = true
	}
	if l.IndentLevel > 1 {
		format["indent"] = l.IndentLevel - 1
	}
	if len(format) == 0 {
		return nil
	}
	return format
}
