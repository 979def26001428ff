package targets

import (
	"fmt"
	"strings"
	"unicode"

	"profilesync/pkg/logger"
)

// Target is one nickname queued for processing
type Target struct {
	Nickname string
	// Row is the one-based queue row the target came from, zero when the
	// target was not read from the queue tab
	Row    int
	Source string
}

// Status cell values written back to the queue tab
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValueReader reads all cell values of a tab
type ValueReader interface {
	GetValues(tabRange string) ([][]string, error)
}

// CellWriter updates a single cell of a tab
type CellWriter interface {
	UpdateCell(tab, cell, value string) error
}

// Queue reads pending targets from the queue tab and writes status
// transitions back. Column A holds the nickname, B the status, C remarks.
type Queue struct {
	reader    ValueReader
	writer    CellWriter
	tab       string
	maxPerRun int
	logger    logger.Logger
}

// NewQueue creates a queue over the given tab. maxPerRun zero means no cap.
func NewQueue(reader ValueReader, writer CellWriter, tab string, maxPerRun int, log logger.Logger) *Queue {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Queue{
		reader:    reader,
		writer:    writer,
		tab:       tab,
		maxPerRun: maxPerRun,
		logger:    log,
	}
}

// defaultSource labels targets whose origin cell is blank
const defaultSource = "Manual"

// Pending returns the queued targets whose status cell starts with
// "pending", compared case-insensitively so decorated variants like
// "Pending 🚨" still match. The origin label comes from column D,
// defaulting when blank. The header row is skipped. The result is
// capped at the per-run limit.
func (q *Queue) Pending() ([]Target, error) {
	rows, err := q.reader.GetValues(q.tab)
	if err != nil {
		return nil, fmt.Errorf("reading target queue: %w", err)
	}

	var pending []Target
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 {
			continue
		}
		nickname := strings.TrimSpace(row[0])
		if nickname == "" {
			continue
		}
		status := ""
		if len(row) > 1 {
			status = row[1]
		}
		if !isPending(status) {
			continue
		}
		source := defaultSource
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			source = strings.TrimSpace(row[3])
		}
		pending = append(pending, Target{Nickname: nickname, Row: i + 1, Source: source})
		if q.maxPerRun > 0 && len(pending) >= q.maxPerRun {
			break
		}
	}

	q.logger.WithField("count", len(pending)).Debug("collected pending targets")
	return pending, nil
}

// MarkProcessing sets the target's status cell before work begins so an
// interrupted run leaves a visible trail
func (q *Queue) MarkProcessing(t Target) error {
	return q.setStatus(t, StatusProcessing, "")
}

// MarkCompleted sets the status cell and records the outcome in remarks
func (q *Queue) MarkCompleted(t Target, note string) error {
	return q.setStatus(t, StatusCompleted, note)
}

// MarkFailed sets the status cell and records the failure reason
func (q *Queue) MarkFailed(t Target, reason string) error {
	return q.setStatus(t, StatusFailed, reason)
}

func (q *Queue) setStatus(t Target, status, remark string) error {
	if t.Row == 0 {
		return nil
	}
	cell := fmt.Sprintf("B%d", t.Row)
	if err := q.writer.UpdateCell(q.tab, cell, status); err != nil {
		return fmt.Errorf("updating status for %s: %w", t.Nickname, err)
	}
	if remark != "" {
		if err := q.writer.UpdateCell(q.tab, fmt.Sprintf("C%d", t.Row), remark); err != nil {
			return fmt.Errorf("updating remarks for %s: %w", t.Nickname, err)
		}
	}
	return nil
}

func isPending(status string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(status)), StatusPending)
}

// NameLister supplies currently online nicknames from the site
type NameLister interface {
	OnlineNicknames() ([]string, error)
}

// OnlineSource turns the site's online-users listing into a target list.
// Junk entries are filtered out and duplicates collapse to the first
// occurrence.
type OnlineSource struct {
	lister    NameLister
	maxPerRun int
	logger    logger.Logger
}

// NewOnlineSource creates an online sweep source. maxPerRun zero means no cap.
func NewOnlineSource(lister NameLister, maxPerRun int, log logger.Logger) *OnlineSource {
	if log == nil {
		log = logger.GetLogger()
	}
	return &OnlineSource{lister: lister, maxPerRun: maxPerRun, logger: log}
}

// Pending lists the online users worth scraping
func (s *OnlineSource) Pending() ([]Target, error) {
	names, err := s.lister.OnlineNicknames()
	if err != nil {
		return nil, fmt.Errorf("listing online users: %w", err)
	}

	seen := make(map[string]bool, len(names))
	var targets []Target
	for _, name := range names {
		name = strings.TrimSpace(name)
		if !ValidNickname(name) {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, Target{Nickname: name, Source: "Online"})
		if s.maxPerRun > 0 && len(targets) >= s.maxPerRun {
			break
		}
	}

	s.logger.WithField("count", len(targets)).Debug("collected online targets")
	return targets, nil
}

// ValidNickname rejects listing artifacts that are not real usernames:
// too short, purely numeric, or letterless strings
func ValidNickname(name string) bool {
	if len(name) < 3 {
		return false
	}
	hasLetter := false
	allDigits := true
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	return hasLetter && !allDigits
}
