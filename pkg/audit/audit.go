package audit

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
)

// ChangeKind is the audited classification of one reconciliation
type ChangeKind string

const (
	ChangeNew       ChangeKind = "NEW"
	ChangeUpdated   ChangeKind = "UPDATED"
	ChangeUnchanged ChangeKind = "UNCHANGED"
	ChangeFailed    ChangeKind = "FAILED"
)

// LogHeaders is the change log tab's column layout
var LogHeaders = []string{"Timestamp", "Nickname", "Change Type", "Fields", "Before", "After"}

// DashboardHeaders is the metrics tab's column layout
var DashboardHeaders = []string{"Run#", "Timestamp", "Profiles", "Success", "Failed", "New", "Updated", "Unchanged"}

// maxPayload bounds the serialized before/after snapshots per log row
const maxPayload = 500

// RunMetrics aggregates one run's counters
type RunMetrics struct {
	RunNumber int
	Timestamp string
	Processed int
	Success   int
	Failed    int
	New       int
	Updated   int
	Unchanged int
}

// TabWriter is the slice of the write executor the sink needs
type TabWriter interface {
	AppendLog(tab string, row []string) error
	ClearTab(tab string) error
}

// ValueReader reads all cell values of a tab
type ValueReader interface {
	GetValues(tabRange string) ([][]string, error)
}

// Sink appends change log entries and per-run metrics rows. Change log
// rows are written for every outcome, including unchanged ones, so no-op
// runs stay auditable. Rows are never mutated after they are written.
type Sink struct {
	writer       TabWriter
	reader       ValueReader
	logTab       string
	dashboardTab string
	logger       logger.Logger
	now          func() time.Time
}

// NewSink creates an audit sink over the given writer and reader
func NewSink(writer TabWriter, reader ValueReader, logTab, dashboardTab string, log logger.Logger) *Sink {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Sink{
		writer:       writer,
		reader:       reader,
		logTab:       logTab,
		dashboardTab: dashboardTab,
		logger:       log,
		now:          profile.Now,
	}
}

// SetClock overrides the sink's clock (tests)
func (s *Sink) SetClock(now func() time.Time) {
	s.now = now
}

// LogChange appends one change log entry. Failures are logged and
// swallowed: a lost audit row must not fail the record it describes.
func (s *Sink) LogChange(identity string, kind ChangeKind, changedFields []string, before, after map[string]string) {
	if s.logTab == "" {
		return
	}

	fieldsText := "-"
	if len(changedFields) > 0 {
		fieldsText = strings.Join(changedFields, ", ")
	}

	row := []string{
		s.now().In(profile.PKT).Format(profile.TimestampFormat),
		identity,
		string(kind),
		fieldsText,
		marshalPayload(before),
		marshalPayload(after),
	}

	if err := s.writer.AppendLog(s.logTab, row); err != nil {
		s.logger.WithError(err).WithField("nickname", identity).Warn("change logging failed")
	}
}

// RecordRun appends one metrics row. When the stored dashboard header does
// not match the expected schema the tab is cleared and the header is
// rewritten, which drops prior rows: the dashboard is a rolling view, the
// change log is the authoritative history. A failed read is returned as-is;
// a transient outage must not wipe the stored rows. The run number is read
// from the last stored row and incremented.
func (s *Sink) RecordRun(m RunMetrics) error {
	if s.dashboardTab == "" {
		return nil
	}

	lastRun := 0
	rows, err := s.reader.GetValues(s.dashboardTab)
	if err != nil {
		return err
	}
	if len(rows) == 0 || !headerMatches(rows[0]) {
		if clearErr := s.writer.ClearTab(s.dashboardTab); clearErr != nil {
			return clearErr
		}
		if headerErr := s.writer.AppendLog(s.dashboardTab, DashboardHeaders); headerErr != nil {
			return headerErr
		}
	} else if len(rows) > 1 {
		last := rows[len(rows)-1]
		if len(last) > 0 {
			lastRun, _ = strconv.Atoi(strings.TrimSpace(last[0]))
		}
	}

	if m.RunNumber == 0 {
		m.RunNumber = lastRun + 1
	}
	if m.Timestamp == "" {
		m.Timestamp = s.now().In(profile.PKT).Format(profile.TimestampFormat)
	}

	row := []string{
		strconv.Itoa(m.RunNumber),
		m.Timestamp,
		strconv.Itoa(m.Processed),
		strconv.Itoa(m.Success),
		strconv.Itoa(m.Failed),
		strconv.Itoa(m.New),
		strconv.Itoa(m.Updated),
		strconv.Itoa(m.Unchanged),
	}

	return s.writer.AppendLog(s.dashboardTab, row)
}

func headerMatches(header []string) bool {
	if len(header) != len(DashboardHeaders) {
		return false
	}
	for i, h := range DashboardHeaders {
		if header[i] != h {
			return false
		}
	}
	return true
}

// marshalPayload serializes a field snapshot, truncated to the payload
// budget so log rows cannot grow without bound
func marshalPayload(snapshot map[string]string) string {
	if snapshot == nil {
		snapshot = map[string]string{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "{}"
	}
	text := string(data)
	if len(text) > maxPayload {
		text = text[:maxPayload]
	}
	return text
}
