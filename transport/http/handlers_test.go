package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forumhub/gatekeeper/adapters/hasher"
	"github.com/forumhub/gatekeeper/adapters/store/memory"
	"github.com/forumhub/gatekeeper/adapters/tokenizer"
	"github.com/forumhub/gatekeeper/core"
	"github.com/forumhub/gatekeeper/internal/cookies"
	"github.com/forumhub/gatekeeper/internal/csrf"
	"github.com/forumhub/gatekeeper/service"
)

type noopPublisher struct{}

func (noopPublisher) PublishRegistered(context.Context, string, string) error { return nil }
func (noopPublisher) PublishLoggedIn(context.Context, string) error           { return nil }
func (noopPublisher) PublishLoggedOut(context.Context, string) error          { return nil }
func (noopPublisher) PublishPasswordChanged(context.Context, string) error    { return nil }

type testApp struct {
	router    *gin.Engine
	tokenizer *tokenizer.JWETokenizer
	codec     *cookies.Codec
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tk, err := tokenizer.NewJWETokenizer(
		[]byte("test-signing-key"),
		[]byte("0123456789abcdef0123456789abcdef"),
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := csrf.NewIssuer([]byte("csrf-secret"))
	codec := cookies.NewCodec([]byte("cookie-secret"), false)

	svc := service.NewAuthService(
		memory.NewCredentialStore(),
		hasher.NewBcryptHasher(),
		tk,
		issuer,
		noopPublisher{},
		logger,
		time.Hour,
	)

	return &testApp{
		router:    SetupRouter(svc, issuer, codec, logger, Options{}),
		tokenizer: tk.(*tokenizer.JWETokenizer),
		codec:     codec,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// register creates a user and returns nothing; login returns the session
// cookies plus the raw CSRF token for header echo.
func (a *testApp) register(t *testing.T, username, email, password string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", gin.H{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (a *testApp) login(t *testing.T, email, password string) ([]*http.Cookie, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	csrfToken, _ := body["csrf_token"].(string)
	require.NotEmpty(t, csrfToken)
	return rec.Result().Cookies(), csrfToken
}

func withSession(sessionCookies []*http.Cookie, csrfToken string) func(*http.Request) {
	return func(req *http.Request) {
		for _, c := range sessionCookies {
			req.AddCookie(c)
		}
		if csrfToken != "" {
			req.Header.Set(CSRFHeader, csrfToken)
		}
	}
}

func TestRegisterEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/auth/register", gin.H{
		"username": "alice",
		"email":    "a@x.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "user registered", body["message"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotEmpty(t, user["id"])

	// No hash material may ever reach the client.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestRegisterEndpoint_Validation(t *testing.T) {
	app := newTestApp(t)

	cases := map[string]gin.H{
		"short username": {"username": "ab", "email": "a@x.com", "password": "Secret123!"},
		"bad email":      {"username": "alice", "email": "not-an-email", "password": "Secret123!"},
		"short password": {"username": "alice", "email": "a@x.com", "password": "short"},
		"empty body":     {},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/auth/register", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterEndpoint_Duplicate(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodPost, "/auth/register", gin.H{
		"username": "bob",
		"email":    "a@x.com",
		"password": "Another123!",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username or email already in use", decodeBody(t, rec)["message"])
}

func TestLoginEndpoint_SetsCookies(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "a@x.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	byName := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c
	}

	auth := byName[cookies.AuthTokenName]
	require.NotNil(t, auth)
	assert.True(t, auth.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, auth.SameSite)

	csrfCookie := byName[cookies.CSRFTokenName]
	require.NotNil(t, csrfCookie)
	assert.False(t, csrfCookie.HttpOnly)

	// The body token is the raw half of the signed cookie value.
	raw, _ := decodeBody(t, rec)["csrf_token"].(string)
	assert.Contains(t, csrfCookie.Value, raw+".")
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")

	unknown := app.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "nobody@x.com", "password": "Secret123!",
	})
	wrong := app.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "a@x.com", "password": "WrongPassword!",
	})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")
	sessionCookies, _ := app.login(t, "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodGet, "/api/me", nil, withSession(sessionCookies, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, core.RoleUser, body["role"])
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestMeEndpoint_Unauthenticated(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication required", decodeBody(t, rec)["message"])
}

func TestMeEndpoint_TamperedCookie(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")
	sessionCookies, _ := app.login(t, "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodGet, "/api/me", nil, func(req *http.Request) {
		for _, c := range sessionCookies {
			if c.Name == cookies.AuthTokenName {
				c = &http.Cookie{Name: c.Name, Value: "x" + c.Value}
			}
			req.AddCookie(c)
		}
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication required", decodeBody(t, rec)["message"])
}

func TestMeEndpoint_ExpiredToken(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")

	token, err := app.tokenizer.Issue(&core.SessionClaim{
		SubjectID: "8e296a06-7fc5-4a15-9a7c-8bdbf2d5f2cb",
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	rec := app.do(t, http.MethodGet, "/api/me", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: cookies.AuthTokenName, Value: app.codec.Seal(token)})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expiry is a server-side log detail, not a client-visible one.
	assert.NotContains(t, rec.Body.String(), "expired")
	assert.Equal(t, "authentication required", decodeBody(t, rec)["message"])
}

func TestChangePasswordEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")
	sessionCookies, csrfToken := app.login(t, "a@x.com", "Secret123!")

	payload := gin.H{"currentPassword": "Secret123!", "newPassword": "NewSecret456!"}

	t.Run("missing CSRF header", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/auth/change-password", payload, withSession(sessionCookies, ""))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "invalid or missing CSRF token", decodeBody(t, rec)["message"])
	})

	t.Run("mismatched CSRF header", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/auth/change-password", payload,
			withSession(sessionCookies, "0000000000000000000000000000000000000000000000000000000000000000"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("full double-submit", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/auth/change-password", payload, withSession(sessionCookies, csrfToken))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "password updated", decodeBody(t, rec)["message"])

		// The old password is dead, the new one works.
		old := app.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "Secret123!"})
		assert.Equal(t, http.StatusUnauthorized, old.Code)
		app.login(t, "a@x.com", "NewSecret456!")
	})
}

func TestChangePasswordEndpoint_WrongCurrent(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")
	sessionCookies, csrfToken := app.login(t, "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodPut, "/auth/change-password",
		gin.H{"currentPassword": "WrongCurrent!", "newPassword": "NewSecret456!"},
		withSession(sessionCookies, csrfToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "current password is incorrect", decodeBody(t, rec)["message"])
}

func TestLogoutEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")
	sessionCookies, csrfToken := app.login(t, "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodPost, "/auth/logout", nil, withSession(sessionCookies, csrfToken))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookies.AuthTokenName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestLogoutEndpoint_RequiresSessionAndCSRF(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "alice", "a@x.com", "Secret123!")
	sessionCookies, _ := app.login(t, "a@x.com", "Secret123!")

	rec := app.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/logout", nil, withSession(sessionCookies, ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPingEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", decodeBody(t, rec)["message"])
}

func TestNoRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "the requested resource does not exist", decodeBody(t, rec)["message"])
}
