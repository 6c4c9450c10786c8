package http

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	authhttp "github.com/microblog-go/microblog/internal/auth/http"
	authservice "github.com/microblog-go/microblog/internal/auth/service"
	"github.com/microblog-go/microblog/internal/auth/session"
	"github.com/microblog-go/microblog/internal/common/clock"
	commoncrypto "github.com/microblog-go/microblog/internal/common/crypto"
	commonhttp "github.com/microblog-go/microblog/internal/common/http"
	"github.com/microblog-go/microblog/internal/common/logger"
	postrepo "github.com/microblog-go/microblog/internal/post/repository"
	postservice "github.com/microblog-go/microblog/internal/post/service"
	userrepo "github.com/microblog-go/microblog/internal/user/repository"
	"github.com/microblog-go/microblog/internal/web"
)

type testApp struct {
	server *httptest.Server
	client *http.Client
	clock  *clock.MockClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := logger.NewWriter(io.Discard, "test", "error")
	mockClock := clock.NewMockClock(time.Now().UTC())
	users := userrepo.NewMemoryRepository()
	posts := postrepo.NewMemoryRepository(nil)

	credentials := authservice.NewCredentialStore(commoncrypto.NewBcryptHasher(bcrypt.MinCost), "")
	auth := authservice.NewAuthService(authservice.AuthServiceDeps{
		Repo:        users,
		Credentials: credentials,
		IDGenerator: commoncrypto.NewUUIDGenerator(),
		Clock:       mockClock,
		Log:         log,
	})
	postSvc := postservice.NewPostService(posts, commoncrypto.NewUUIDGenerator(), mockClock, log)
	resolver := authservice.NewIdentityResolver(users, mockClock, log, authservice.IdentityResolverConfig{})
	sessions := session.NewManager(session.Config{Secret: "blog-test-secret-with-32-bytes!!!!"}, mockClock)

	renderer, err := web.NewRenderer(log, credentials)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	eh := commonhttp.NewErrorHandler(log, renderer.ErrorPage)
	identity := authhttp.NewIdentityMiddleware(sessions, resolver, eh, log)

	mux := http.NewServeMux()
	authhttp.NewHandler(auth, sessions, identity, renderer, eh, log).Routes(mux)
	NewHandler(auth, postSvc, identity, renderer, eh).Routes(mux)

	server := httptest.NewServer(commonhttp.BuildBaseHandler(log, eh, time.Second, mux))
	t.Cleanup(server.Close)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{server: server, client: client, clock: mockClock}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (a *testApp) signUpAndLogin(t *testing.T, username, email string) {
	t.Helper()
	a.post(t, "/register", url.Values{
		"username":  {username},
		"email":     {email},
		"password":  {"pw1"},
		"password2": {"pw1"},
	})
	resp, _ := a.post(t, "/login", url.Values{"username": {username}, "password": {"pw1"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login %s: expected 303, got %d", username, resp.StatusCode)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestProtectedPagesRequireLogin(t *testing.T) {
	app := newTestApp(t)

	for path, want := range map[string]string{
		"/":             "/login?next=%2F",
		"/index":        "/login?next=%2Findex",
		"/edit_profile": "/login?next=%2Fedit_profile",
		"/user/alice":   "/login?next=%2Fuser%2Falice",
	} {
		resp, _ := app.get(t, path)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != want {
			t.Errorf("%s: expected redirect to %s, got %d %s", path, want, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestIndexPostsNewestFirst(t *testing.T) {
	app := newTestApp(t)
	app.signUpAndLogin(t, "alice", "alice@x.com")

	resp, body := app.get(t, "/index")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Hi, alice!") {
		t.Fatalf("unexpected index %d", resp.StatusCode)
	}

	resp, _ = app.post(t, "/index", url.Values{"post": {"first post"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("post: expected 303, got %d", resp.StatusCode)
	}
	app.clock.Advance(time.Minute)
	app.post(t, "/index", url.Values{"post": {"second post"}})

	_, body = app.get(t, "/index")
	first, second := strings.Index(body, "first post"), strings.Index(body, "second post")
	if first < 0 || second < 0 || second > first {
		t.Fatalf("expected both posts, newest first")
	}
	if !strings.Contains(body, "Your post is now live!") {
		t.Error("expected post flash")
	}
}

func TestIndexPostValidation(t *testing.T) {
	app := newTestApp(t)
	app.signUpAndLogin(t, "alice", "alice@x.com")

	resp, body := app.post(t, "/index", url.Values{"post": {strings.Repeat("x", 141)}})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Field cannot be longer than 140 characters.") {
		t.Fatalf("expected length error, got %d", resp.StatusCode)
	}
}

func TestUserPage(t *testing.T) {
	app := newTestApp(t)
	app.signUpAndLogin(t, "alice", "alice@x.com")
	app.post(t, "/index", url.Values{"post": {"hello from alice"}})

	resp, body := app.get(t, "/user/alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"User: alice", "hello from alice", "Edit your profile", "https://www.gravatar.com/avatar/"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on profile", want)
		}
	}

	resp, _ = app.get(t, "/user/nobody")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
}

func TestEditProfile(t *testing.T) {
	app := newTestApp(t)
	app.signUpAndLogin(t, "bob", "bob@x.com")
	app.get(t, "/logout")
	app.signUpAndLogin(t, "alice", "alice@x.com")

	_, body := app.get(t, "/edit_profile")
	if !strings.Contains(body, `value="alice"`) {
		t.Fatal("edit form should be prefilled with the current username")
	}

	_, body = app.post(t, "/edit_profile", url.Values{"username": {"bob"}, "about_me": {"x"}})
	if !strings.Contains(body, "Please use a different username.") {
		t.Fatal("expected username collision")
	}

	resp, _ := app.post(t, "/edit_profile", url.Values{"username": {"alice"}, "about_me": {"I like Go"}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/edit_profile" {
		t.Fatalf("expected redirect back to edit_profile, got %d", resp.StatusCode)
	}

	_, body = app.get(t, "/user/alice")
	if !strings.Contains(body, "I like Go") {
		t.Error("about_me should be saved")
	}

	resp, _ = app.post(t, "/edit_profile", url.Values{"username": {"alicia"}, "about_me": {"I like Go"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("rename: expected 303, got %d", resp.StatusCode)
	}
	resp, _ = app.get(t, "/user/alicia")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("renamed profile should exist, got %d", resp.StatusCode)
	}
}
