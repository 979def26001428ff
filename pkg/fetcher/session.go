package fetcher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Session is the persisted login state: the site cookies plus when they
// were captured
type Session struct {
	Cookies []SessionCookie `json:"cookies"`
	SavedAt time.Time       `json:"saved_at"`
	Version int             `json:"version"`
}

// SessionCookie is the subset of cookie attributes worth persisting
type SessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

const sessionVersion = 1

// SessionStore persists the login session to disk so restarts do not need
// a fresh login. Saves go through a temp file and rename so a crash never
// leaves a torn session file.
type SessionStore struct {
	path string
}

// NewSessionStore creates a session store at the given file path. An empty
// path resolves to the default location under the user data directory.
func NewSessionStore(path string) (*SessionStore, error) {
	if path == "" {
		dataDir, err := dataDirectory()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dataDir, "session.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &SessionStore{path: path}, nil
}

// Load reads the stored session. A missing file returns (nil, nil).
func (s *SessionStore) Load() (*Session, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var session Session
	if err := json.NewDecoder(file).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	return &session, nil
}

// Save writes the session atomically
func (s *SessionStore) Save(session *Session) error {
	session.SavedAt = time.Now()
	session.Version = sessionVersion

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(session); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize session file: %w", err)
	}
	return nil
}

// Clear removes the stored session
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Restore loads the stored cookies into a jar for the given site URL.
// Returns false when no usable session exists.
func (s *SessionStore) Restore(jar http.CookieJar, siteURL *url.URL) (bool, error) {
	session, err := s.Load()
	if err != nil {
		return false, err
	}
	if session == nil || len(session.Cookies) == 0 {
		return false, nil
	}

	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(session.Cookies))
	for _, c := range session.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	if len(cookies) == 0 {
		return false, nil
	}
	jar.SetCookies(siteURL, cookies)
	return true, nil
}

// Capture persists the jar's cookies for the given site URL
func (s *SessionStore) Capture(jar http.CookieJar, siteURL *url.URL) error {
	cookies := jar.Cookies(siteURL)
	session := &Session{Cookies: make([]SessionCookie, 0, len(cookies))}
	for _, c := range cookies {
		session.Cookies = append(session.Cookies, SessionCookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	return s.Save(session)
}

func dataDirectory() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "profilesync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "profilesync"), nil
}
