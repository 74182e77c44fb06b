package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grahalia-estates/internal/i18n"
)

const (
	// RequestIDHeader carries the request trace id in both directions
	RequestIDHeader = "X-Request-ID"
	// LangCookie remembers the visitor's language
	LangCookie = "lang"

	requestIDKey  = "request_id"
	langKey       = "lang"
	langCookieAge = 365 * 24 * 60 * 60
)

// RequestID reuses a valid incoming X-Request-ID or generates one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request with status and duration
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request finished", attrs...)
		case len(c.Errors) > 0:
			logger.Warn("request finished", append(attrs, "errors", c.Errors.String())...)
		default:
			logger.Info("request finished", attrs...)
		}
	}
}

// Locale validates the :lang segment. Unsupported values are redirected to
// the negotiated language, keeping the rest of the path.
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.Param("lang")
		if !isLang(lang) {
			if !isPagePath(c.Request.URL.Path) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			redirectToLocale(c, c.Request.URL.Path)
			c.Abort()
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(LangCookie, lang, langCookieAge, "/", "", false, false)
		c.Set(langKey, lang)
		c.Next()
	}
}

func isLang(s string) bool {
	return i18n.IsSupported(s)
}

// negotiate picks the language for a request without one in the path
func negotiate(c *gin.Context) string {
	cookie, _ := c.Cookie(LangCookie)
	return i18n.Negotiate(cookie, c.GetHeader("Accept-Language"))
}

func redirectToLocale(c *gin.Context, path string) {
	target := "/" + negotiate(c)
	if path != "/" {
		target += path
	}
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// currentLang returns the language set by Locale, or the path parameter
func currentLang(c *gin.Context) string {
	if lang := c.GetString(langKey); lang != "" {
		return lang
	}
	return i18n.Normalize(c.Param("lang"))
}

// splitList splits a comma separated query value, also accepting the key
// repeated.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
