package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echochat-backend/internal/models"
)

const (
	testLoginPath = "/api/auth/login"
	testHomePath  = "/"
)

// newTestServer wires the session and remember-me middleware in front of a few
// probe handlers.
func newTestServer(t *testing.T, d *testDeps) (*echo.Echo, *SessionManager) {
	t.Helper()

	manager := NewSessionManager(d.sessions, 30*time.Minute, false, discardLogger())

	e := echo.New()
	e.Use(manager.Middleware())
	e.Use(RememberMe(d.svc, RememberMeConfig{LoginPath: testLoginPath, HomePath: testHomePath}, discardLogger()))

	e.GET("/whoami", func(c echo.Context) error {
		session := GetSessionFromContext(c)
		return c.JSON(http.StatusOK, map[string]any{"user_id": session.UserID, "username": session.Username})
	})
	e.GET(testLoginPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"authenticated": false})
	})
	e.POST("/signin/:username", func(c echo.Context) error {
		user, err := d.users.GetByUsername(c.Request().Context(), c.Param("username"))
		if err != nil {
			return err
		}
		GetSessionFromContext(c).SignIn(user)
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/signout", func(c echo.Context) error {
		GetSessionFromContext(c).Destroy()
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, GetUserFromContext(c))
	}, RequireAuth(d.svc))

	return e, manager
}

func doRequest(e *echo.Echo, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func createUser(t *testing.T, d *testDeps, username string) *models.User {
	t.Helper()
	user, err := d.svc.CreateUser(context.Background(), username, "Str0ngP@ss", username+"@x.com")
	require.NoError(t, err)
	return user
}

func TestSessionManager_AnonymousRequestsAreNotPersisted(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)

	rec := doRequest(e, http.MethodGet, "/whoami")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, findCookie(rec, SessionCookieName))
}

func TestSessionManager_SignInPersistsSession(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)
	user := createUser(t, d, "alice")

	rec := doRequest(e, http.MethodPost, "/signin/alice")
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := findCookie(rec, SessionCookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	session, err := d.sessions.GetByTokenHash(context.Background(), HashToken(cookie.Value))
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	rec = doRequest(e, http.MethodGet, "/protected", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestSessionManager_SignInRotatesSessionID(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)
	createUser(t, d, "alice")
	createUser(t, d, "bob")

	first := findCookie(doRequest(e, http.MethodPost, "/signin/alice"), SessionCookieName)
	require.NotNil(t, first)

	rec := doRequest(e, http.MethodPost, "/signin/bob", first)
	second := findCookie(rec, SessionCookieName)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	// the old id no longer works
	rec = doRequest(e, http.MethodGet, "/protected", first)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionManager_Destroy(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)
	createUser(t, d, "alice")

	cookie := findCookie(doRequest(e, http.MethodPost, "/signin/alice"), SessionCookieName)
	require.NotNil(t, cookie)

	rec := doRequest(e, http.MethodPost, "/signout", cookie)
	cleared := findCookie(rec, SessionCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	rec = doRequest(e, http.MethodGet, "/protected", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionManager_SlidingExpiry(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)
	createUser(t, d, "alice")
	ctx := context.Background()

	cookie := findCookie(doRequest(e, http.MethodPost, "/signin/alice"), SessionCookieName)
	require.NotNil(t, cookie)

	session, err := d.sessions.GetByTokenHash(ctx, HashToken(cookie.Value))
	require.NoError(t, err)
	session.ExpiresAt = time.Now().Add(time.Minute)
	require.NoError(t, d.sessions.Save(ctx, session))

	doRequest(e, http.MethodGet, "/whoami", cookie)

	session, err = d.sessions.GetByTokenHash(ctx, HashToken(cookie.Value))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), session.ExpiresAt, time.Minute)
}

func TestSessionManager_UnknownCookieStartsFreshSession(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)

	rec := doRequest(e, http.MethodGet, "/whoami", &http.Cookie{Name: SessionCookieName, Value: "bogus"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":0,"username":""}`, rec.Body.String())
}

func TestRequireAuth_Anonymous(t *testing.T) {
	d := setupTest(t)
	e, _ := newTestServer(t, d)

	rec := doRequest(e, http.MethodGet, "/protected")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}
