package services

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/database/journals"
	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/rewrite"
)

// StepDayOneInlineMedia is the upgrade step name recorded in the audit log.
const StepDayOneInlineMedia = "dayone_inline_media"

const defaultUpgradeBatchSize = 200

var (
	md5Stem   = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
	md5Within = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
)

// InlineMediaOptions controls one run of the DayOne inline media upgrade.
type InlineMediaOptions struct {
	// OwnerID limits the run to one owner. 0 upgrades every owner.
	OwnerID   uint
	BatchSize int
	DryRun    bool
}

// InlineMediaResult counts what the upgrade found and changed.
type InlineMediaResult struct {
	Scanned    int  `json:"scanned"`
	Updated    int  `json:"updated"`
	Resolved   int  `json:"resolved"`
	Unresolved int  `json:"unresolved"`
	DryRun     bool `json:"dry_run"`
}

// UpgradeInlineMedia turns DAYONE_PHOTO, DAYONE_VIDEO and DAYONE_AUDIO
// placeholders left in entries imported from DayOne into media embeds. The
// placeholders are matched against the entry's own media by identifier,
// then by md5, then by position. Placeholders that still do not resolve
// stay as text.
func (s *TransferService) UpgradeInlineMedia(ctx context.Context, opts InlineMediaOptions) (*InlineMediaResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultUpgradeBatchSize
	}
	log := s.logger.With(zap.String("step", StepDayOneInlineMedia), zap.Bool("dry_run", opts.DryRun))
	repo := journals.NewRepository(s.db)
	res := &InlineMediaResult{DryRun: opts.DryRun}

	err := s.upgradeInlineMedia(ctx, repo, opts, res, log)
	if !opts.DryRun && s.audit != nil {
		s.audit.LogUpgrade(opts.OwnerID, StepDayOneInlineMedia, res.Updated, err)
	}
	if err != nil {
		return res, err
	}

	log.Info("upgrade finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("updated", res.Updated),
		zap.Int("resolved", res.Resolved),
		zap.Int("unresolved", res.Unresolved))
	return res, nil
}

func (s *TransferService) upgradeInlineMedia(ctx context.Context, repo *journals.Repository, opts InlineMediaOptions, res *InlineMediaResult, log *zap.Logger) error {
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := repo.ListEntriesWithPlaceholders(opts.OwnerID, afterID, opts.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			entry := &batch[i]
			afterID = entry.ID
			if !fromDayOne(entry) || !hasTextPlaceholder(entry.ContentDelta) {
				continue
			}
			res.Scanned++

			doc, resolved, unresolved := inlineEntryMedia(entry)
			res.Resolved += resolved
			res.Unresolved += unresolved
			if resolved == 0 {
				continue
			}
			res.Updated++
			if opts.DryRun {
				continue
			}

			plain := delta.PlainText(doc)
			if err := repo.UpdateEntryContent(entry.ID, doc, plain, delta.WordCount(doc)); err != nil {
				return fmt.Errorf("failed to update entry %s: %w", entry.ID, err)
			}
		}
		log.Debug("upgrade batch done", zap.String("last_id", afterID), zap.Int("updated", res.Updated))
	}
}

// inlineEntryMedia rewrites the text placeholders of one entry. Embeds
// already in the document are left alone.
func inlineEntryMedia(entry *entities.Entry) (*delta.Document, int, int) {
	refs := placeholderRefs(entry)
	refs.DeclareOrdinals(entry.ContentDelta)

	embeds := entry.ContentDelta.Embeds()
	existing := make(map[string]bool, len(embeds))
	for _, e := range embeds {
		existing[e.Ref] = true
	}
	resolver := rewrite.ResolverFunc(func(kind, ref string) (string, bool) {
		if existing[ref] {
			return ref, true
		}
		return refs.Resolve(kind, ref)
	})

	doc, unresolved := rewrite.Rewrite(entry.ContentDelta, resolver, rewrite.DayOneNotation)
	resolved := len(doc.Embeds()) - len(embeds)
	return doc, resolved, len(unresolved)
}

// placeholderRefs indexes an entry's media under every name a DayOne
// placeholder may use for it.
func placeholderRefs(entry *entities.Entry) *rewrite.TokenMap {
	refs := rewrite.NewTokenMap()
	byMD5 := map[string]string{}
	for _, m := range entry.Media {
		ref := rewrite.MediaRef{NewID: m.ID, Ordinal: m.OrderInEntry}
		if m.ExternalAssetID != nil {
			ref.Identifiers = append(ref.Identifiers, *m.ExternalAssetID)
		}
		if id, ok := m.ExternalMetadata["identifier"].(string); ok {
			ref.Identifiers = append(ref.Identifiers, id)
		}
		if sum, ok := m.ExternalMetadata["md5"].(string); ok && sum != "" {
			ref.Hashes = append(ref.Hashes, sum)
			byMD5[strings.ToLower(sum)] = m.ID
		}
		if sum := md5Candidate(m.Filename); sum != "" {
			ref.Hashes = append(ref.Hashes, sum)
			byMD5[sum] = m.ID
		}
		refs.Add(ref)
	}

	// The raw DayOne entry pairs identifiers with the md5 the media file
	// was named after.
	raw, _ := entry.ImportMetadata["raw_dayone"].(map[string]any)
	for _, key := range []string{"photos", "videos", "audios"} {
		items, _ := raw[key].([]any)
		for _, item := range items {
			obj, _ := item.(map[string]any)
			identifier, _ := obj["identifier"].(string)
			sum, _ := obj["md5"].(string)
			if id, ok := byMD5[strings.ToLower(sum)]; ok && identifier != "" {
				refs.Add(rewrite.MediaRef{NewID: id, Identifiers: []string{identifier}})
			}
		}
	}
	return refs
}

func fromDayOne(entry *entities.Entry) bool {
	source, _ := entry.ImportMetadata["source"].(string)
	return source == readers.FormatDayOne
}

func hasTextPlaceholder(doc *delta.Document) bool {
	if doc == nil {
		return false
	}
	for _, op := range doc.Ops {
		if !op.IsEmbed() && delta.HasPlaceholder(op.Insert) {
			return true
		}
	}
	return false
}

// md5Candidate returns the md5 a DayOne media file name carries, or "".
func md5Candidate(filename string) string {
	if stem := strings.TrimSuffix(filename, path.Ext(filename)); md5Stem.MatchString(stem) {
		return strings.ToLower(stem)
	}
	return strings.ToLower(md5Within.FindString(filename))
}
