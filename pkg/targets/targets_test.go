package targets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilesync/pkg/logger"
)

type fakeReader struct {
	rows [][]string
	err  error
}

func (f *fakeReader) GetValues(tabRange string) ([][]string, error) {
	return f.rows, f.err
}

type fakeCellWriter struct {
	cells map[string]string
	err   error
}

func newFakeCellWriter() *fakeCellWriter {
	return &fakeCellWriter{cells: make(map[string]string)}
}

func (f *fakeCellWriter) UpdateCell(tab, cell, value string) error {
	if f.err != nil {
		return f.err
	}
	f.cells[tab+"!"+cell] = value
	return nil
}

func queueRows() [][]string {
	return [][]string{
		{"Nickname", "Status", "Remarks", "Source"},
		{"amna", "Pending"},
		{"bilal", "pending 🚨", "", "Friend referral"},
		{"sana", "✅ Completed", "done"},
		{"zara", "PENDING", "", "  "},
		{"", "pending"},
		{"omar"}, // no status cell
	}
}

func TestQueuePending(t *testing.T) {
	q := NewQueue(&fakeReader{rows: queueRows()}, newFakeCellWriter(), "Target", 0, logger.NewNopLogger())

	pending, err := q.Pending()
	require.NoError(t, err)

	require.Len(t, pending, 3)
	assert.Equal(t, Target{Nickname: "amna", Row: 2, Source: "Manual"}, pending[0], "missing origin cell gets the default label")
	assert.Equal(t, Target{Nickname: "bilal", Row: 3, Source: "Friend referral"}, pending[1], "decorated pending variants match; origin comes from column D")
	assert.Equal(t, Target{Nickname: "zara", Row: 5, Source: "Manual"}, pending[2], "matching is case-insensitive; blank origin falls back")
}

func TestQueuePendingCap(t *testing.T) {
	q := NewQueue(&fakeReader{rows: queueRows()}, newFakeCellWriter(), "Target", 2, logger.NewNopLogger())

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "amna", pending[0].Nickname)
	assert.Equal(t, "bilal", pending[1].Nickname)
}

func TestQueuePendingReadFailure(t *testing.T) {
	q := NewQueue(&fakeReader{err: errors.New("backend down")}, newFakeCellWriter(), "Target", 0, logger.NewNopLogger())

	_, err := q.Pending()
	require.Error(t, err)
}

func TestQueueStatusTransitions(t *testing.T) {
	writer := newFakeCellWriter()
	q := NewQueue(&fakeReader{}, writer, "Target", 0, logger.NewNopLogger())
	target := Target{Nickname: "amna", Row: 4}

	require.NoError(t, q.MarkProcessing(target))
	assert.Equal(t, StatusProcessing, writer.cells["Target!B4"])

	require.NoError(t, q.MarkCompleted(target, "Updated: CITY @ 02:30 PM"))
	assert.Equal(t, StatusCompleted, writer.cells["Target!B4"])
	assert.Equal(t, "Updated: CITY @ 02:30 PM", writer.cells["Target!C4"])

	require.NoError(t, q.MarkFailed(target, "Error: not found @ 02:31 PM"))
	assert.Equal(t, StatusFailed, writer.cells["Target!B4"])
}

func TestQueueStatusSkipsUnrowedTargets(t *testing.T) {
	writer := newFakeCellWriter()
	q := NewQueue(&fakeReader{}, writer, "Target", 0, logger.NewNopLogger())

	require.NoError(t, q.MarkCompleted(Target{Nickname: "amna", Row: 0}, "note"))
	assert.Empty(t, writer.cells, "targets without a queue row have no status cell")
}

type fakeLister struct {
	names []string
	err   error
}

func (f *fakeLister) OnlineNicknames() ([]string, error) {
	return f.names, f.err
}

func TestOnlineSourcePending(t *testing.T) {
	lister := &fakeLister{names: []string{
		"amna", "Amna", "ab", "12345", "bilal_7", " zara ", "...",
	}}
	source := NewOnlineSource(lister, 0, logger.NewNopLogger())

	pending, err := source.Pending()
	require.NoError(t, err)

	var names []string
	for _, target := range pending {
		names = append(names, target.Nickname)
	}
	assert.Equal(t, []string{"amna", "bilal_7", "zara"}, names)
	for _, target := range pending {
		assert.Equal(t, "Online", target.Source)
		assert.Zero(t, target.Row)
	}
}

func TestOnlineSourceCap(t *testing.T) {
	lister := &fakeLister{names: []string{"amna", "bilal", "zara"}}
	source := NewOnlineSource(lister, 2, logger.NewNopLogger())

	pending, err := source.Pending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestValidNickname(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"amna", true},
		{"ab", false},
		{"12345", false},
		{"a1c", true},
		{"...", false},
		{"user_99", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidNickname(tt.name))
		})
	}
}
