package fetcher

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return store
}

func TestSessionStoreRoundtrip(t *testing.T) {
	store := newTestSessionStore(t)

	err := store.Save(&Session{Cookies: []SessionCookie{
		{Name: "sessionid", Value: "abc123", Domain: "damadam.pk", Path: "/"},
	}})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, "sessionid", loaded.Cookies[0].Name)
	assert.Equal(t, "abc123", loaded.Cookies[0].Value)
	assert.Equal(t, sessionVersion, loaded.Version)
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestSessionStoreLoadMissing(t *testing.T) {
	store := newTestSessionStore(t)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionStoreClear(t *testing.T) {
	store := newTestSessionStore(t)
	require.NoError(t, store.Save(&Session{Cookies: []SessionCookie{{Name: "sessionid", Value: "abc"}}}))

	require.NoError(t, store.Clear())
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())
}

func TestSessionStoreRestore(t *testing.T) {
	store := newTestSessionStore(t)
	siteURL, _ := url.Parse("https://damadam.pk")

	require.NoError(t, store.Save(&Session{Cookies: []SessionCookie{
		{Name: "sessionid", Value: "live", Path: "/", Expires: time.Now().Add(24 * time.Hour)},
		{Name: "stale", Value: "dead", Path: "/", Expires: time.Now().Add(-time.Hour)},
	}}))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	restored, err := store.Restore(jar, siteURL)
	require.NoError(t, err)
	assert.True(t, restored)

	cookies := jar.Cookies(siteURL)
	require.Len(t, cookies, 1, "expired cookies are dropped on restore")
	assert.Equal(t, "sessionid", cookies[0].Name)
	assert.Equal(t, "live", cookies[0].Value)
}

func TestSessionStoreRestoreNothingUsable(t *testing.T) {
	store := newTestSessionStore(t)
	siteURL, _ := url.Parse("https://damadam.pk")

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	restored, err := store.Restore(jar, siteURL)
	require.NoError(t, err)
	assert.False(t, restored, "no session file means nothing to restore")

	require.NoError(t, store.Save(&Session{Cookies: []SessionCookie{
		{Name: "stale", Value: "dead", Expires: time.Now().Add(-time.Hour)},
	}}))
	restored, err = store.Restore(jar, siteURL)
	require.NoError(t, err)
	assert.False(t, restored, "a session of only expired cookies is unusable")
}

func TestSessionStoreCapture(t *testing.T) {
	store := newTestSessionStore(t)
	siteURL, _ := url.Parse("https://damadam.pk")

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(siteURL, []*http.Cookie{{Name: "sessionid", Value: "abc123", Path: "/"}})

	require.NoError(t, store.Capture(jar, siteURL))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, "sessionid", loaded.Cookies[0].Name)
}
