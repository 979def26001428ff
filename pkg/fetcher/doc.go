// Package fetcher retrieves and parses profile pages from the scraped site.
//
// The Fetcher is the only component that talks to the site. It:
//   - Maintains a logged-in HTTP session with persisted cookies
//   - Routes every page request through the shared token bucket
//   - Parses profile markup into the record schema's field names
//   - Lists currently online users for the sweep mode
//
// Sessions:
//
// Login state is persisted to disk between runs. EnsureSession restores the
// stored cookies and probes the home page; only when the session is gone or
// stale does it log in fresh. ResetSession discards everything and logs in
// again, which the runner uses after a fetch that looks like an expired
// login.
//
// Usage:
//
//	sessions, err := fetcher.NewSessionStore("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f, err := fetcher.New("https://damadam.pk", userAgent, 30*time.Second,
//	    ratelimit.NewTokenBucket(60, time.Minute), sessions, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := f.EnsureSession(username, password); err != nil {
//	    log.Fatal(err)
//	}
//	raw, err := f.Fetch("nickname")
//
// Parsing:
//
// Profile pages are parsed with targeted expressions rather than a full DOM
// walk; the site's markup is stable and the fields of interest are few. A
// failed recent-post lookup degrades to empty cells, never to a record
// failure.
package fetcher
