package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LoginPath is where unauthenticated admin pages are sent
const LoginPath = "/admin/login"

const claimsKey = "admin_claims"

// SetSessionCookie stores token in the httpOnly session cookie
func (a *Authenticator) SetSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(a.ttl.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", a.secure, true)
}

// ClearSessionCookie expires the session cookie
func (a *Authenticator) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", a.secure, true)
}

// Authenticated reports whether the request carries a valid session
func (a *Authenticator) Authenticated(c *gin.Context) bool {
	token, err := c.Cookie(CookieName)
	if err != nil {
		return false
	}
	claims, err := a.Verify(token)
	if err != nil {
		return false
	}
	c.Set(claimsKey, claims)
	return true
}

// RequireAdmin redirects requests without a valid session to the login page
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticated(c) {
			c.Redirect(http.StatusSeeOther, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdminAPI answers 401 JSON to requests without a valid session
func (a *Authenticator) RequireAdminAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticated(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
