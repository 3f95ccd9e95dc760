package rewrite

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/journalport/internal/delta"
)

var uuidPattern = regexp.MustCompile(`[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}`)

// LegacyMediaID extracts a media id from an archive path token such as
// "<parent>/<uuid>_<name>" or a bare UUID. It returns "" when none is found.
func LegacyMediaID(token string) string {
	if token == "" {
		return ""
	}
	name := path.Base(strings.ReplaceAll(token, `\`, "/"))
	if prefix, _, ok := strings.Cut(name, "_"); ok {
		if id, err := uuid.Parse(prefix); err == nil {
			return id.String()
		}
		return ""
	}
	if m := uuidPattern.FindString(name); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

// MediaRef describes one media row imported for an entry.
type MediaRef struct {
	NewID string
	// Identifiers are opaque names the source used for the media: a DayOne
	// identifier, an external asset id, the legacy media id.
	Identifiers []string
	// Hashes are content hashes declared for the media.
	Hashes []string
	// Ordinal is the media's declared position in the entry.
	Ordinal *int
}

// TokenMap resolves references against the media imported for one entry.
// Lookups go by identifier, then by content hash, then by declared ordinal.
type TokenMap struct {
	byIdentifier map[string]string
	byHash       map[string]string
	byOrdinal    map[int]string
	// refOrdinals maps a source reference to the ordinal the source declared
	// for it.
	refOrdinals map[string]int
}

func NewTokenMap() *TokenMap {
	return &TokenMap{
		byIdentifier: map[string]string{},
		byHash:       map[string]string{},
		byOrdinal:    map[int]string{},
		refOrdinals:  map[string]int{},
	}
}

// Add registers an imported media row. Earlier registrations win.
func (m *TokenMap) Add(ref MediaRef) {
	for _, id := range ref.Identifiers {
		if id == "" {
			continue
		}
		if _, ok := m.byIdentifier[id]; !ok {
			m.byIdentifier[id] = ref.NewID
		}
		if legacy := LegacyMediaID(id); legacy != "" {
			if _, ok := m.byIdentifier[legacy]; !ok {
				m.byIdentifier[legacy] = ref.NewID
			}
		}
	}
	for _, h := range ref.Hashes {
		if h == "" {
			continue
		}
		h = strings.ToLower(h)
		if _, ok := m.byHash[h]; !ok {
			m.byHash[h] = ref.NewID
		}
	}
	if ref.Ordinal != nil {
		if _, ok := m.byOrdinal[*ref.Ordinal]; !ok {
			m.byOrdinal[*ref.Ordinal] = ref.NewID
		}
	}
}

// DeclareOrdinal records the position the source gave to a reference, used
// only when neither identifier nor hash match. The first declaration wins.
func (m *TokenMap) DeclareOrdinal(ref string, ordinal int) {
	if ref == "" {
		return
	}
	if _, ok := m.refOrdinals[ref]; !ok {
		m.refOrdinals[ref] = ordinal
	}
}

// DeclareOrdinals declares every reference in doc, embed ops and text
// placeholders alike, at its position among the document's media.
func (m *TokenMap) DeclareOrdinals(doc *delta.Document) {
	if doc == nil {
		return
	}
	n := 0
	for _, op := range doc.Ops {
		if op.IsEmbed() {
			m.DeclareOrdinal(op.Embed.Ref, n)
			n++
			continue
		}
		if !delta.HasPlaceholder(op.Insert) {
			continue
		}
		for _, tok := range delta.Tokenize(op.Insert) {
			if tok.IsEmbed() {
				m.DeclareOrdinal(tok.Embed.Ref, n)
				n++
			}
		}
	}
}

// Len returns the number of identifier and hash keys.
func (m *TokenMap) Len() int {
	return len(m.byIdentifier) + len(m.byHash)
}

func (m *TokenMap) Resolve(_ string, ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if id, ok := m.byIdentifier[ref]; ok {
		return id, true
	}
	if legacy := LegacyMediaID(ref); legacy != "" {
		if id, ok := m.byIdentifier[legacy]; ok {
			return id, true
		}
	}
	if id, ok := m.byHash[strings.ToLower(ref)]; ok {
		return id, true
	}
	if ord, ok := m.refOrdinals[ref]; ok {
		if id, ok := m.byOrdinal[ord]; ok {
			return id, true
		}
	}
	return "", false
}
