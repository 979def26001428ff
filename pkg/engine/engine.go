package engine

import (
	"fmt"
	"strings"

	"profilesync/pkg/audit"
	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
	"profilesync/pkg/snapshot"
)

// OutcomeKind classifies a single reconciliation
type OutcomeKind int

const (
	// OutcomeNew means the record was appended as a fresh row
	OutcomeNew OutcomeKind = iota
	// OutcomeUpdated means an existing row was overwritten
	OutcomeUpdated
	// OutcomeUnchanged means the stored row already matched, no write issued
	OutcomeUnchanged
	// OutcomeFailed means the record could not be applied
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNew:
		return "new"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports what one reconciliation did
type Outcome struct {
	Kind          OutcomeKind
	Identity      string
	Row           int
	ChangedFields []string
	Err           error
}

// SyncContext holds all reconciliation state for one run. It is built
// fresh per run and is not safe for concurrent use: the engine assumes a
// single writer, which is what keeps the in-memory index authoritative
// between records.
type SyncContext struct {
	index       *snapshot.Index
	writer      RowWriter
	audit       ChangeLogger
	profilesTab string
	logger      logger.Logger
}

// NewSyncContext assembles a run-scoped reconciliation context
func NewSyncContext(index *snapshot.Index, writer RowWriter, sink ChangeLogger, profilesTab string, log logger.Logger) *SyncContext {
	if log == nil {
		log = logger.GetLogger()
	}
	return &SyncContext{
		index:       index,
		writer:      writer,
		audit:       sink,
		profilesTab: profilesTab,
		logger:      log,
	}
}

// Known returns whether an identity is already present in the index
func (sc *SyncContext) Known(identity string) bool {
	_, ok := sc.index.Locate(identity)
	return ok
}

// IndexSize returns the number of identities currently tracked
func (sc *SyncContext) IndexSize() int {
	return sc.index.Len()
}

// Reconcile applies one normalized record against the snapshot index.
// Unknown identities are appended, known ones are diffed field by field
// and overwritten in full when anything changed. The index is updated
// after every successful write, so a later record with the same identity
// in the same run lands on the same row (last write wins). Every outcome,
// unchanged ones included, produces an audit entry.
func (sc *SyncContext) Reconcile(rec *profile.Record) Outcome {
	identity := rec.Identity()
	if identity == "" {
		out := Outcome{Kind: OutcomeFailed, Err: fmt.Errorf("record has no nickname")}
		sc.audit.LogChange("(blank)", audit.ChangeFailed, nil, map[string]string{}, fullSnapshot(rec))
		return out
	}

	entry, known := sc.index.Locate(identity)
	if !known {
		return sc.appendNew(identity, rec)
	}
	return sc.applyExisting(identity, entry, rec)
}

func (sc *SyncContext) appendNew(identity string, rec *profile.Record) Outcome {
	row := rec.RowValues()
	rowNum, err := sc.writer.AppendRow(sc.profilesTab, row)
	if err != nil {
		sc.audit.LogChange(identity, audit.ChangeFailed, nil, map[string]string{}, fullSnapshot(rec))
		return Outcome{Kind: OutcomeFailed, Identity: identity, Err: err}
	}

	sc.index.Record(identity, rowNum, row)

	if err := sc.writeLinkFormulas(rowNum, rec); err != nil {
		sc.audit.LogChange(identity, audit.ChangeFailed, nil, map[string]string{}, fullSnapshot(rec))
		return Outcome{Kind: OutcomeFailed, Identity: identity, Row: rowNum, Err: err}
	}

	sc.audit.LogChange(identity, audit.ChangeNew, profile.FieldNames(), map[string]string{}, fullSnapshot(rec))
	sc.logger.WithField("nickname", identity).WithField("row", rowNum).Debug("appended new profile")
	return Outcome{Kind: OutcomeNew, Identity: identity, Row: rowNum, ChangedFields: profile.FieldNames()}
}

func (sc *SyncContext) applyExisting(identity string, entry snapshot.Entry, rec *profile.Record) Outcome {
	row := rec.RowValues()

	// Keep the stored spelling of the identity cell: the row was matched
	// case-insensitively and the key is never rewritten
	if idIdx, ok := profile.IndexOf(profile.FieldNickname); ok {
		if idIdx < len(entry.Values) && strings.TrimSpace(entry.Values[idIdx]) != "" {
			row[idIdx] = entry.Values[idIdx]
		}
	}

	changed, before, after := diffRows(entry.Values, row)

	if len(changed) == 0 {
		// The full record still goes to the log: an unchanged entry is
		// evidence the profile was checked, not an empty event
		sc.audit.LogChange(identity, audit.ChangeUnchanged, nil, map[string]string{}, fullSnapshot(rec))
		return Outcome{Kind: OutcomeUnchanged, Identity: identity, Row: entry.Row}
	}

	if err := sc.writer.OverwriteRow(sc.profilesTab, entry.Row, row); err != nil {
		sc.audit.LogChange(identity, audit.ChangeFailed, changed, before, after)
		return Outcome{Kind: OutcomeFailed, Identity: identity, Row: entry.Row, Err: err}
	}

	sc.index.Record(identity, entry.Row, row)

	if err := sc.writeLinkFormulas(entry.Row, rec); err != nil {
		sc.audit.LogChange(identity, audit.ChangeFailed, changed, before, after)
		return Outcome{Kind: OutcomeFailed, Identity: identity, Row: entry.Row, Err: err}
	}

	sc.audit.LogChange(identity, audit.ChangeUpdated, changed, before, after)
	sc.logger.WithField("nickname", identity).WithField("fields", strings.Join(changed, ", ")).Debug("updated profile")
	return Outcome{Kind: OutcomeUpdated, Identity: identity, Row: entry.Row, ChangedFields: changed}
}

// writeLinkFormulas installs the formula cells after the value row lands,
// in schema order, one cell per non-empty link field
func (sc *SyncContext) writeLinkFormulas(rowNum int, rec *profile.Record) error {
	links := rec.Links()
	for _, name := range profile.LinkFieldNames() {
		url, ok := links[name]
		if !ok || url == "" {
			continue
		}
		colIdx, _ := profile.IndexOf(name)
		if err := sc.writer.SetFormula(sc.profilesTab, colIdx, rowNum, profile.LinkFormula(name, url)); err != nil {
			return err
		}
	}
	return nil
}

// diffRows compares a stored row against an incoming one field by field.
// The identity column is excluded because it is the match key and is never
// altered; the scrape timestamp column is excluded because it changes
// every run and would otherwise make every record look updated. A blank
// stored cell and a blank incoming value are treated as equal regardless
// of whitespace.
func diffRows(stored, incoming []string) (changed []string, before, after map[string]string) {
	before = make(map[string]string)
	after = make(map[string]string)
	for i, f := range profile.Schema {
		if f.Kind == profile.FieldCapture || f.Kind == profile.FieldIdentity {
			continue
		}
		old := ""
		if i < len(stored) {
			old = stored[i]
		}
		cur := ""
		if i < len(incoming) {
			cur = incoming[i]
		}
		if valuesEqual(old, cur) {
			continue
		}
		changed = append(changed, f.Name)
		before[f.Name] = old
		after[f.Name] = cur
	}
	return changed, before, after
}

func valuesEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" && b == "" {
		return true
	}
	return a == b
}

func fullSnapshot(rec *profile.Record) map[string]string {
	values := rec.RowValues()
	snap := make(map[string]string, len(values))
	for i, f := range profile.Schema {
		if i < len(values) && values[i] != "" {
			snap[f.Name] = values[i]
		}
	}
	return snap
}
