package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
)

type fakeReader struct {
	tabs map[string][][]string
	errs map[string]error
}

func (f *fakeReader) GetValues(tabRange string) ([][]string, error) {
	if err, ok := f.errs[tabRange]; ok {
		return nil, err
	}
	return f.tabs[tabRange], nil
}

func headerRow() []string {
	return profile.FieldNames()
}

func profileRow(nickname, city string) []string {
	row := make([]string, profile.FieldCount())
	nickIdx, _ := profile.IndexOf(profile.FieldNickname)
	cityIdx, _ := profile.IndexOf(profile.FieldCity)
	row[nickIdx] = nickname
	row[cityIdx] = city
	return row
}

func TestLoadBuildsIndex(t *testing.T) {
	reader := &fakeReader{tabs: map[string][][]string{
		"Profiles": {
			headerRow(),
			profileRow("Amna", "Karachi"),
			profileRow("Bilal", "Lahore"),
		},
	}}

	store := NewStore(reader, "Profiles", "", logger.NewNopLogger())
	idx, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len())

	entry, ok := idx.Locate("amna")
	require.True(t, ok)
	assert.Equal(t, 2, entry.Row, "row numbers are one-based sheet positions")

	entry, ok = idx.Locate("BILAL")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, 3, entry.Row)
}

func TestLoadSkipsHeaderAndBlankIdentities(t *testing.T) {
	reader := &fakeReader{tabs: map[string][][]string{
		"Profiles": {
			headerRow(),
			profileRow("", "Karachi"),
			profileRow("   ", "Multan"),
			profileRow("amna", "Lahore"),
		},
	}}

	store := NewStore(reader, "Profiles", "", logger.NewNopLogger())
	idx, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
	_, ok := idx.Locate(profile.FieldNickname)
	assert.False(t, ok, "the header row must not be indexed")

	entry, _ := idx.Locate("amna")
	assert.Equal(t, 4, entry.Row, "skipped rows keep their sheet positions")
}

func TestLoadPadsShortRows(t *testing.T) {
	short := []string{"", "amna", "vip"}
	reader := &fakeReader{tabs: map[string][][]string{
		"Profiles": {headerRow(), short},
	}}

	store := NewStore(reader, "Profiles", "", logger.NewNopLogger())
	idx, err := store.Load()
	require.NoError(t, err)

	entry, ok := idx.Locate("amna")
	require.True(t, ok)
	assert.Len(t, entry.Values, profile.FieldCount())
}

func TestLoadReadFailureIsFatal(t *testing.T) {
	reader := &fakeReader{errs: map[string]error{"Profiles": errors.New("backend down")}}

	store := NewStore(reader, "Profiles", "", logger.NewNopLogger())
	_, err := store.Load()

	require.Error(t, err)
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeFatalSetup, apiErr.Type)
}

func TestIndexRecordCopiesValues(t *testing.T) {
	idx := NewIndex()
	values := []string{"a", "b"}
	idx.Record("amna", 2, values)

	values[0] = "mutated"

	entry, _ := idx.Locate("amna")
	assert.Equal(t, "a", entry.Values[0], "the index must not alias caller slices")
}

func TestLoadTags(t *testing.T) {
	reader := &fakeReader{tabs: map[string][][]string{
		"Tags": {
			{"VIP", "Friends", ""},
			{"Amna", "amna", "ignored"},
			{"Bilal", "", ""},
		},
	}}

	store := NewStore(reader, "Profiles", "Tags", logger.NewNopLogger())
	tags := store.LoadTags()

	assert.Equal(t, "VIP, Friends", tags["amna"], "one nickname under several tags joins them")
	assert.Equal(t, "VIP", tags["bilal"])
}

func TestLoadTagsFailuresDegrade(t *testing.T) {
	reader := &fakeReader{errs: map[string]error{"Tags": errors.New("missing tab")}}

	store := NewStore(reader, "Profiles", "Tags", logger.NewNopLogger())
	tags := store.LoadTags()

	assert.Empty(t, tags, "tag loading is best-effort")
}
