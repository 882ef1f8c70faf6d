package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	t.Parallel()

	token, expiresAt, err := GenerateToken("admin", "secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
}

func TestParseTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, _, err := GenerateToken("admin", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenExpired(t *testing.T) {
	t.Parallel()

	token, _, err := GenerateToken("admin", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTMiddlewareGuardsRoutes(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(JWTMiddleware("secret", func(c echo.Context) bool {
		return c.Request().URL.Path == "/open"
	}))
	e.GET("/open", func(c echo.Context) error {
		return c.String(http.StatusOK, "open")
	})
	e.GET("/guarded", func(c echo.Context) error {
		subject, _ := c.Get("subject").(string)
		return c.String(http.StatusOK, subject)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not.a.jwt")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := GenerateToken("admin", "secret", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}
