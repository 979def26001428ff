package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/profile"
)

const profilePageFixture = `
<html>
<body>
<img src="https://d1abc.cloudfront.net/avatar/thumbnail/amna.jpg">
<form action="/follow/remove/"><img src="/static/unfollow.svg"></form>
<span class="cl sp lsp nos">Tea &amp; books.<br>Lahore girl</span>
<table>
<tr><b>City:</b> <span>Lahore</span></tr>
<tr><b>Gender:</b> <span>Female</span></tr>
<tr><b>Married:</b> <span>No</span></tr>
<tr><b>Age:</b> <span>24</span></tr>
<tr><b>Joined:</b> <span>2 years ago</span></tr>
</table>
<span class="cl sp clb">Followers: 152</span>
<a href="/profile/public/amna"><div>Posts 37</div></a>
</body>
</html>`

func newTestFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	f, err := New(baseURL, "profilesync-test", 5*time.Second, nil, nil, logger.NewNopLogger())
	require.NoError(t, err)
	return f
}

func TestParseProfile(t *testing.T) {
	f := newTestFetcher(t, "https://damadam.pk")

	data := f.parseProfile(profilePageFixture, "amna")

	assert.Equal(t, "amna", data[profile.FieldNickname])
	assert.Equal(t, "https://damadam.pk/users/amna/", data[profile.FieldProfileLink])
	assert.Equal(t, "Verified", data[profile.FieldStatus])
	assert.Equal(t, "Yes", data[profile.FieldFriend])
	assert.Equal(t, "Tea & books. Lahore girl", data[profile.FieldIntro])
	assert.Equal(t, "Lahore", data[profile.FieldCity])
	assert.Equal(t, "\U0001F483", data[profile.FieldGender])
	assert.Equal(t, "❎", data[profile.FieldMarried])
	assert.Equal(t, "24", data[profile.FieldAge])
	assert.Equal(t, "2 years ago", data[profile.FieldJoined])
	assert.Equal(t, "152", data[profile.FieldFollowers])
	assert.Equal(t, "37", data[profile.FieldPosts])
	assert.Equal(t, "https://d1abc.cloudfront.net/avatar/amna.jpg", data[profile.FieldImage],
		"thumbnail path segment is stripped for the full-size image")
	assert.NotEmpty(t, data[profile.FieldScrapedAt])
}

func TestParseProfileStatus(t *testing.T) {
	f := newTestFetcher(t, "https://damadam.pk")

	tests := []struct {
		name   string
		body   string
		status string
	}{
		{"suspended", `<h1>Account Suspended</h1>`, "Suspended"},
		{"unverified", `<div style="background: tomato">amna</div>`, "Unverified"},
		{"verified", profilePageFixture, "Verified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := f.parseProfile(tt.body, "amna")
			assert.Equal(t, tt.status, data[profile.FieldStatus])
		})
	}
}

func TestParseProfileNotFriend(t *testing.T) {
	f := newTestFetcher(t, "https://damadam.pk")

	data := f.parseProfile(`<form action="/follow/add/"><img src="/static/follow.svg"></form>`, "amna")
	assert.Equal(t, "No", data[profile.FieldFriend])
}

func TestFetchRecentPost(t *testing.T) {
	tests := []struct {
		name     string
		article  string
		wantPath string
	}{
		{
			name:     "content link",
			article:  `<article class="mbl"><a href="/content/991/">post</a><time>3 hours ago</time></article>`,
			wantPath: "/content/991/",
		},
		{
			name:     "text comment link keeps comment path",
			article:  `<article class="mbl"><a href="/comments/text/456/">post</a><time>3 hours ago</time></article>`,
			wantPath: "/comments/text/456",
		},
		{
			name:     "image comment link rewrites to gallery",
			article:  `<article class="mbl"><a href="/comments/image/789/">post</a><time>3 hours ago</time></article>`,
			wantPath: "/content/789/g/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>"+tt.article+"</html>")
			}))
			defer server.Close()

			f := newTestFetcher(t, server.URL)
			postURL, postTime := f.fetchRecentPost("amna")
			assert.Equal(t, server.URL+tt.wantPath, postURL)
			assert.Equal(t, "3 hours ago", postTime)
		})
	}
}

func TestFetchRecentPostDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><p>no posts here</p></html>")
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	postURL, postTime := f.fetchRecentPost("amna")
	assert.Empty(t, postURL)
	assert.Empty(t, postTime)
}

func TestFetchCollectsRecentPostWhenPostsExist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/amna/":
			fmt.Fprint(w, profilePageFixture)
		case "/profile/public/amna":
			fmt.Fprint(w, `<article class="mbl"><a href="/content/991/">p</a><span class="cxs cgy">1 hour ago</span></article>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	data, err := f.Fetch("amna")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/content/991/", data[profile.FieldLastPost])
	assert.Equal(t, "1 hour ago", data[profile.FieldLastPostTime])
}

func TestFetchMissingProfile(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	_, err := f.Fetch("ghost")
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeNotFound, apiErr.Type)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
}

func TestFetchThrottledIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	_, err := f.Fetch("amna")
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeRateLimit, apiErr.Type)
	assert.True(t, errs.IsRetryable(apiErr.Type))
}

func TestOnlineNicknames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/online/", r.URL.Path)
		fmt.Fprint(w, `
<ul>
<li><a href="/users/amna/">amna</a></li>
<li><a href="/users/bilal_7/">bilal_7</a></li>
<li><a href="/users/sana%20k/">sana k</a></li>
</ul>`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	names, err := f.OnlineNicknames()
	require.NoError(t, err)
	assert.Equal(t, []string{"amna", "bilal_7", "sana k"}, names)
}

func TestLogin(t *testing.T) {
	var postedForm map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, r.ParseForm())
			postedForm = map[string]string{
				"nick":                r.PostFormValue("nick"),
				"pass":                r.PostFormValue("pass"),
				"csrfmiddlewaretoken": r.PostFormValue("csrfmiddlewaretoken"),
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		fmt.Fprint(w, `<form><input name="csrfmiddlewaretoken" value="tok123"></form>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/logout/">Logout</a>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	require.NoError(t, f.Login("amna", "secret"))
	assert.Equal(t, map[string]string{
		"nick":                "amna",
		"pass":                "secret",
		"csrfmiddlewaretoken": "tok123",
	}, postedForm)
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Failed logins land back on the login form.
		fmt.Fprint(w, `<form><input name="csrfmiddlewaretoken" value="tok123"></form>`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	err := f.Login("amna", "wrong")
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
}

func TestLoginWithoutCredentials(t *testing.T) {
	f := newTestFetcher(t, "https://damadam.pk")
	err := f.Login("", "")
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
}
