package fetcher

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
	"profilesync/pkg/ratelimit"
)

const (
	loginPath       = "/login/"
	profilePathFmt  = "/users/%s/"
	postsPathFmt    = "/profile/public/%s"
	onlineUsersPath = "/online/"
)

var (
	csrfTokenRe    = regexp.MustCompile(`name="csrfmiddlewaretoken"\s+value="([^"]+)"`)
	suspendedRe    = regexp.MustCompile(`(?i)account suspended`)
	unverifiedRe   = regexp.MustCompile(`background:\s*tomato`)
	unfollowRe     = regexp.MustCompile(`action="/follow/remove/"|unfollow\.svg`)
	followRe       = regexp.MustCompile(`follow\.svg`)
	introRe        = regexp.MustCompile(`(?is)<span class="cl sp lsp nos"[^>]*>(.*?)</span>`)
	followersRe    = regexp.MustCompile(`(?is)<span class="cl sp clb"[^>]*>(.*?)</span>`)
	postsCountRe   = regexp.MustCompile(`(?is)<a[^>]+href="[^"]*/profile/public/[^"]*"[^>]*>.*?<div[^>]*>[^<]*?(\d+)`)
	avatarRe       = regexp.MustCompile(`src="([^"]*avatar[^"]*)"`)
	cloudfrontRe   = regexp.MustCompile(`src="([^"]*cloudfront\.net[^"]*)"`)
	articleRe      = regexp.MustCompile(`(?is)<article class="mbl".*?</article>`)
	contentLinkRe  = regexp.MustCompile(`href="([^"]*/content/[^"]*)"`)
	textCommentRe  = regexp.MustCompile(`/comments/text/(\d+)/`)
	imageCommentRe = regexp.MustCompile(`/comments/image/(\d+)/`)
	publishedRe    = regexp.MustCompile(`(?is)itemprop="datePublished"[^>]*>(.*?)<`)
	timeTagRe      = regexp.MustCompile(`(?is)<time[^>]*>(.*?)</time>`)
	postTimeRe     = regexp.MustCompile(`(?is)<span class="cxs cgy"[^>]*>(.*?)</span>`)
	profileHrefRe  = regexp.MustCompile(`href="/users/([^/"]+)/"`)
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
	digitsRe       = regexp.MustCompile(`\d+`)
)

// labeledFieldRes maps record fields to the site's labeled profile rows
var labeledFieldRes = map[string]*regexp.Regexp{
	profile.FieldCity:    labeledRe("City:"),
	profile.FieldGender:  labeledRe("Gender:"),
	profile.FieldMarried: labeledRe("Married:"),
	profile.FieldAge:     labeledRe("Age:"),
	profile.FieldJoined:  labeledRe("Joined:"),
}

func labeledRe(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<b[^>]*>\s*` + regexp.QuoteMeta(label) + `\s*</b>\s*<span[^>]*>(.*?)</span>`)
}

// Fetcher retrieves profile pages over plain HTTP with a persistent
// session. Page requests go through the token bucket so the site never
// sees request bursts.
type Fetcher struct {
	client    *http.Client
	baseURL   *url.URL
	userAgent string
	limiter   ratelimit.Limiter
	sessions  *SessionStore
	logger    logger.Logger
}

// New creates a fetcher for the given site
func New(baseURL, userAgent string, timeout time.Duration, limiter ratelimit.Limiter, sessions *SessionStore, log logger.Logger) (*Fetcher, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeFatalSetup, "invalid site URL %q: %v", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeFatalSetup, "cookie jar: %v", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL:   parsed,
		userAgent: userAgent,
		limiter:   limiter,
		sessions:  sessions,
		logger:    log,
	}, nil
}

// EnsureSession restores the stored session when one exists and still
// works, otherwise performs a fresh login
func (f *Fetcher) EnsureSession(username, password string) error {
	if f.sessions != nil {
		restored, err := f.sessions.Restore(f.client.Jar, f.baseURL)
		if err != nil {
			f.logger.WithError(err).Warn("stored session unreadable, logging in fresh")
		} else if restored && f.loggedIn() {
			f.logger.Debug("session restored from disk")
			return nil
		}
	}
	return f.Login(username, password)
}

// Login posts the login form and persists the resulting session
func (f *Fetcher) Login(username, password string) error {
	if username == "" || password == "" {
		return errs.New(errs.ErrorTypeAuth, "site credentials not configured")
	}

	body, finalURL, err := f.get(loginPath)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("nick", username)
	form.Set("pass", password)
	if m := csrfTokenRe.FindStringSubmatch(body); m != nil {
		form.Set("csrfmiddlewaretoken", m[1])
	}

	req, err := http.NewRequest(http.MethodPost, f.baseURL.JoinPath(loginPath).String(), strings.NewReader(form.Encode()))
	if err != nil {
		return errs.Newf(errs.ErrorTypeNetwork, "building login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", finalURL)
	f.setCommonHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return errs.Newf(errs.ErrorTypeNetwork, "login request failed: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if strings.Contains(strings.ToLower(resp.Request.URL.Path), "login") {
		return errs.New(errs.ErrorTypeAuth, "login rejected")
	}

	f.logger.WithField("username", username).Info("logged in")
	if f.sessions != nil {
		if err := f.sessions.Capture(f.client.Jar, f.baseURL); err != nil {
			f.logger.WithError(err).Warn("failed to persist session")
		}
	}
	return nil
}

// ResetSession discards the current session and logs in again. Used after
// a fetch that looks like an expired login.
func (f *Fetcher) ResetSession(username, password string) error {
	if f.sessions != nil {
		if err := f.sessions.Clear(); err != nil {
			f.logger.WithError(err).Warn("failed to clear stored session")
		}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return errs.Newf(errs.ErrorTypeFatalSetup, "cookie jar: %v", err)
	}
	f.client.Jar = jar
	return f.Login(username, password)
}

// loggedIn probes the home page for authenticated-only markup
func (f *Fetcher) loggedIn() bool {
	body, _, err := f.get("/")
	if err != nil {
		return false
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "logout") || strings.Contains(lower, "settings")
}

// Fetch retrieves and parses one profile page. The returned map uses the
// record schema's field names and feeds straight into record
// normalization. A missing profile is a not-found record failure.
func (f *Fetcher) Fetch(nickname string) (map[string]string, error) {
	profileURL := fmt.Sprintf(profilePathFmt, url.PathEscape(nickname))
	body, _, err := f.get(profileURL)
	if err != nil {
		return nil, err
	}

	data := f.parseProfile(body, nickname)

	if posts := data[profile.FieldPosts]; posts != "" && posts != "0" {
		postURL, postTime := f.fetchRecentPost(nickname)
		data[profile.FieldLastPost] = postURL
		data[profile.FieldLastPostTime] = postTime
	}

	f.logger.WithField("nickname", nickname).
		WithField("status", data[profile.FieldStatus]).
		Debug("profile fetched")
	return data, nil
}

func (f *Fetcher) parseProfile(body, nickname string) map[string]string {
	data := map[string]string{
		profile.FieldNickname:    nickname,
		profile.FieldProfileLink: f.baseURL.JoinPath(fmt.Sprintf(profilePathFmt, nickname)).String(),
		profile.FieldScrapedAt:   profile.Now().Format(profile.TimestampFormat),
	}

	switch {
	case suspendedRe.MatchString(body):
		data[profile.FieldStatus] = "Suspended"
	case unverifiedRe.MatchString(body):
		data[profile.FieldStatus] = "Unverified"
	default:
		data[profile.FieldStatus] = "Verified"
	}

	switch {
	case unfollowRe.MatchString(body):
		data[profile.FieldFriend] = "Yes"
	case followRe.MatchString(body):
		data[profile.FieldFriend] = "No"
	}

	if m := introRe.FindStringSubmatch(body); m != nil {
		data[profile.FieldIntro] = stripMarkup(m[1])
	}

	for field, re := range labeledFieldRes {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		value := stripMarkup(m[1])
		if value == "" {
			continue
		}
		switch field {
		case profile.FieldGender:
			data[field] = profile.GenderGlyph(value)
		case profile.FieldMarried:
			data[field] = profile.MarriedGlyph(value)
		default:
			data[field] = value
		}
	}

	if m := followersRe.FindStringSubmatch(body); m != nil {
		if digits := digitsRe.FindString(stripMarkup(m[1])); digits != "" {
			data[profile.FieldFollowers] = digits
		}
	}

	if m := postsCountRe.FindStringSubmatch(body); m != nil {
		data[profile.FieldPosts] = m[1]
	}

	if src := avatarURL(body); src != "" {
		data[profile.FieldImage] = src
	}

	return data
}

// fetchRecentPost pulls the newest post's URL and relative time from the
// public posts page. Failures here degrade to empty cells, never to a
// record failure.
func (f *Fetcher) fetchRecentPost(nickname string) (postURL, postTime string) {
	body, _, err := f.get(fmt.Sprintf(postsPathFmt, url.PathEscape(nickname)))
	if err != nil {
		f.logger.WithError(err).WithField("nickname", nickname).Debug("recent post fetch failed")
		return "", ""
	}

	article := articleRe.FindString(body)
	if article == "" {
		return "", ""
	}

	base := f.baseURL.String()
	if m := contentLinkRe.FindStringSubmatch(article); m != nil {
		postURL = profile.AbsoluteURL(base, html.UnescapeString(m[1]))
	} else if m := textCommentRe.FindStringSubmatch(article); m != nil {
		postURL = strings.TrimRight(profile.AbsoluteURL(base, "/comments/text/"+m[1]+"/"), "/")
	} else if m := imageCommentRe.FindStringSubmatch(article); m != nil {
		postURL = profile.AbsoluteURL(base, "/content/"+m[1]+"/g/")
	}

	for _, re := range []*regexp.Regexp{publishedRe, timeTagRe, postTimeRe} {
		if m := re.FindStringSubmatch(article); m != nil {
			if text := stripMarkup(m[1]); text != "" {
				postTime = text
				break
			}
		}
	}
	return postURL, postTime
}

// OnlineNicknames lists the users currently shown on the online page, in
// page order, extracted from their profile links
func (f *Fetcher) OnlineNicknames() ([]string, error) {
	body, _, err := f.get(onlineUsersPath)
	if err != nil {
		return nil, err
	}

	matches := profileHrefRe.FindAllStringSubmatch(body, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if name, err := url.PathUnescape(m[1]); err == nil {
			names = append(names, name)
		}
	}
	f.logger.WithField("count", len(names)).Debug("online users listed")
	return names, nil
}

// get issues a rate-limited GET and returns the body plus the final URL
// after redirects
func (f *Fetcher) get(path string) (string, string, error) {
	if f.limiter != nil {
		f.limiter.Wait()
	}

	req, err := http.NewRequest(http.MethodGet, f.baseURL.JoinPath(path).String(), nil)
	if err != nil {
		return "", "", errs.Newf(errs.ErrorTypeNetwork, "building request for %s: %v", path, err)
	}
	f.setCommonHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", errs.Newf(errs.ErrorTypeNetwork, "request for %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		e := errs.Newf(errs.TypeForStatusCode(resp.StatusCode), "unexpected status %d for %s", resp.StatusCode, path)
		e.Code = resp.StatusCode
		return "", "", e
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", errs.Newf(errs.ErrorTypeNetwork, "reading %s: %v", path, err)
	}
	return string(body), resp.Request.URL.String(), nil
}

func (f *Fetcher) setCommonHeaders(req *http.Request) {
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

func avatarURL(body string) string {
	m := avatarRe.FindStringSubmatch(body)
	if m == nil {
		m = cloudfrontRe.FindStringSubmatch(body)
	}
	if m == nil {
		return ""
	}
	return strings.Replace(html.UnescapeString(m[1]), "/thumbnail/", "/", 1)
}

func stripMarkup(fragment string) string {
	return profile.CleanText(html.UnescapeString(htmlTagRe.ReplaceAllString(fragment, " ")))
}
