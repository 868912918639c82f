package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echochat-backend/internal/models"
)

func TestCSRFProtection_Tokens(t *testing.T) {
	p := NewCSRFProtection()

	token, err := p.GenerateToken(1)
	require.NoError(t, err)

	assert.True(t, p.ValidateToken(token, 1))
	assert.False(t, p.ValidateToken(token, 2), "bound to the issuing session")
	assert.False(t, p.ValidateToken("unknown", 1))

	p.InvalidateSession(1)
	assert.False(t, p.ValidateToken(token, 1))
}

func TestCSRFProtection_Middleware(t *testing.T) {
	p := NewCSRFProtection()
	token, err := p.GenerateToken(5)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		session  *models.Session
		header   string
		wantCode int
	}{
		{name: "safe method", method: http.MethodGet, session: &models.Session{ID: 5, UserID: 1}, wantCode: http.StatusOK},
		{name: "anonymous", method: http.MethodPost, session: &models.Session{}, wantCode: http.StatusOK},
		{name: "missing token", method: http.MethodPost, session: &models.Session{ID: 5, UserID: 1}, wantCode: http.StatusForbidden},
		{name: "wrong session", method: http.MethodDelete, session: &models.Session{ID: 6, UserID: 1}, header: token, wantCode: http.StatusForbidden},
		{name: "valid token", method: http.MethodPost, session: &models.Session{ID: 5, UserID: 1}, header: token, wantCode: http.StatusOK},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.header != "" {
				req.Header.Set(CSRFHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.Set(ContextKeySession, tt.session)

			handler := p.Middleware()(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
