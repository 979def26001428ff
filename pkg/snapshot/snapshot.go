package snapshot

import (
	"strings"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
)

// Entry is the last-known state of one identity in the profiles table
type Entry struct {
	// Row is the one-based row number in the profiles tab
	Row int
	// Values is the field-value tuple in declared field order
	Values []string
}

// Index maps normalized identities to their snapshot entries. At most one
// entry per identity exists at any time.
type Index struct {
	entries map[string]Entry
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Locate returns the entry for an identity, if present
func (idx *Index) Locate(identity string) (Entry, bool) {
	e, ok := idx.entries[normalize(identity)]
	return e, ok
}

// Record inserts or overwrites the entry for an identity
func (idx *Index) Record(identity string, row int, values []string) {
	stored := make([]string, len(values))
	copy(stored, values)
	idx.entries[normalize(identity)] = Entry{Row: row, Values: stored}
}

// Len returns the number of known identities
func (idx *Index) Len() int {
	return len(idx.entries)
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ValueReader reads all cell values of a tab
type ValueReader interface {
	GetValues(tabRange string) ([][]string, error)
}

// Store loads the persisted table state once per run
type Store struct {
	reader      ValueReader
	profilesTab string
	tagsTab     string
	logger      logger.Logger
}

// NewStore creates a snapshot store over the given reader
func NewStore(reader ValueReader, profilesTab, tagsTab string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		reader:      reader,
		profilesTab: profilesTab,
		tagsTab:     tagsTab,
		logger:      log,
	}
}

// Load reads the whole profiles tab and builds the identity index. The
// header row is skipped; rows with an empty identity are skipped, not
// errors. A read failure is fatal for the run: reconciling without a
// baseline would duplicate every identity as new.
func (s *Store) Load() (*Index, error) {
	rows, err := s.reader.GetValues(s.profilesTab)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeFatalSetup, "failed to load snapshot: %v", err)
	}

	idx := NewIndex()
	identityCol, _ := profile.IndexOf(profile.FieldNickname)

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) <= identityCol {
			continue
		}
		identity := normalize(row[identityCol])
		if identity == "" {
			continue
		}
		idx.Record(identity, i+1, padRow(row))
	}

	s.logger.InfoWithFields("snapshot loaded", map[string]interface{}{
		"tab":      s.profilesTab,
		"profiles": idx.Len(),
	})

	return idx, nil
}

// LoadTags reads the tags tab into an identity to tag-list mapping. The
// tab's header row holds the tag names; each column lists the nicknames
// carrying that tag. A missing tab is not an error.
func (s *Store) LoadTags() map[string]string {
	tags := make(map[string]string)

	if s.tagsTab == "" {
		return tags
	}

	rows, err := s.reader.GetValues(s.tagsTab)
	if err != nil {
		s.logger.WithError(err).Warn("tags loading failed")
		return tags
	}
	if len(rows) < 2 {
		return tags
	}

	headers := rows[0]
	for colIdx, tagName := range headers {
		tagName = strings.TrimSpace(tagName)
		if tagName == "" {
			continue
		}
		for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
			if colIdx >= len(rows[rowIdx]) {
				continue
			}
			nickname := normalize(rows[rowIdx][colIdx])
			if nickname == "" {
				continue
			}
			if existing, ok := tags[nickname]; ok {
				tags[nickname] = existing + ", " + tagName
			} else {
				tags[nickname] = tagName
			}
		}
	}

	s.logger.InfoWithFields("tags loaded", map[string]interface{}{
		"tab":  s.tagsTab,
		"tags": len(tags),
	})

	return tags
}

// padRow extends a short row to the full schema width
func padRow(row []string) []string {
	out := make([]string, profile.FieldCount())
	copy(out, row)
	return out
}
