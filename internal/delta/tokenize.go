package delta

import (
	"regexp"
	"strings"
)

// Placeholder kinds emitted by the DayOne reader in plain text.
const (
	TokenPhoto = "DAYONE_PHOTO"
	TokenVideo = "DAYONE_VIDEO"
	TokenAudio = "DAYONE_AUDIO"
)

var placeholderPattern = regexp.MustCompile(`\b(DAYONE_PHOTO|DAYONE_VIDEO|DAYONE_AUDIO):([A-Za-z0-9_-]+)`)

// Token is either a run of text or a recognized inline placeholder.
type Token struct {
	Text  string
	Embed *Embed
	// Literal is the original placeholder text for embed tokens.
	Literal string
}

func (t Token) IsEmbed() bool { return t.Embed != nil }

// EmbedKindForToken maps a placeholder kind to an embed kind.
func EmbedKindForToken(kind string) string {
	switch kind {
	case TokenVideo:
		return EmbedVideo
	case TokenAudio:
		return EmbedAudio
	default:
		return EmbedImage
	}
}

// TokenForEmbedKind is the inverse of EmbedKindForToken.
func TokenForEmbedKind(kind string) string {
	switch kind {
	case EmbedVideo:
		return TokenVideo
	case EmbedAudio:
		return TokenAudio
	default:
		return TokenPhoto
	}
}

// Placeholder renders the inline text form of a reference.
func Placeholder(embedKind, ref string) string {
	return TokenForEmbedKind(embedKind) + ":" + ref
}

// HasPlaceholder reports whether s contains at least one placeholder.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, "DAYONE_") && placeholderPattern.MatchString(s)
}

// Tokenize splits text into text runs and placeholder embeds. Concatenating
// Text of text tokens and Literal of embed tokens yields the input.
func Tokenize(s string) []Token {
	matches := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		if s == "" {
			return nil
		}
		return []Token{{Text: s}}
	}

	tokens := make([]Token, 0, len(matches)*2+1)
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			tokens = append(tokens, Token{Text: s[pos:m[0]]})
		}
		kind := s[m[2]:m[3]]
		ref := s[m[4]:m[5]]
		tokens = append(tokens, Token{
			Embed:   &Embed{Kind: EmbedKindForToken(kind), Ref: ref},
			Literal: s[m[0]:m[1]],
		})
		pos = m[1]
	}
	if pos < len(s) {
		tokens = append(tokens, Token{Text: s[pos:]})
	}
	return tokens
}
