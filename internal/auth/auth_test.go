package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/logging"
	"grahalia-estates/internal/ratelimit"
)

func newAuth(t *testing.T, limiter *ratelimit.RateLimiter) *Authenticator {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := New(config.AdminConfig{
		PasswordHash:  string(hash),
		SessionSecret: "test-secret",
		SessionDays:   7,
	}, false, limiter, logging.Discard())
	require.NoError(t, err)
	return a
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	a := newAuth(t, nil)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	token, expires, err := a.Login("1.2.3.4", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), expires)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)

	a.now = func() time.Time { return now.Add(8 * 24 * time.Hour) }
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession, "expired")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := newAuth(t, nil)
	_, _, err := a.Login("1.2.3.4", "nope")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestLoginWithoutPassword(t *testing.T) {
	a, err := New(config.AdminConfig{SessionDays: 7}, false, nil, logging.Discard())
	require.NoError(t, err)
	_, _, err = a.Login("1.2.3.4", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewRejectsMalformedHash(t *testing.T) {
	_, err := New(config.AdminConfig{PasswordHash: "plain"}, false, nil, logging.Discard())
	assert.Error(t, err)
}

func TestLoginThrottled(t *testing.T) {
	a := newAuth(t, ratelimit.NewRateLimiter(2, 10, true))
	for i := 0; i < 2; i++ {
		_, _, err := a.Login("9.9.9.9", "wrong")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}
	_, _, err := a.Login("9.9.9.9", "s3cret")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	_, _, err = a.Login("8.8.8.8", "s3cret")
	assert.NoError(t, err, "other clients are unaffected")
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	a := newAuth(t, nil)

	other := newAuth(t, nil)
	other.secret = []byte("another-secret")
	token, _, err := other.Login("1.2.3.4", "s3cret")
	require.NoError(t, err)
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = a.Verify("")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func newRouter(a *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", a.RequireAdmin(), func(c *gin.Context) { c.String(http.StatusOK, "dashboard") })
	r.GET("/api/admin/ping", a.RequireAdminAPI(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestMiddleware(t *testing.T) {
	a := newAuth(t, nil)
	r := newRouter(a)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	token, exp, err := a.Login("1.2.3.4", "s3cret")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	a.SetSessionCookie(ctx, token, exp)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	for _, path := range []string{"/admin", "/api/admin/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
