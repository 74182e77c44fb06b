// Package auth guards the back office: a single admin password checked with
// bcrypt, and a signed session cookie issued on login.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/ratelimit"
)

const (
	// CookieName is the session cookie set on login
	CookieName = "admin_session"

	adminSubject = "admin"
	issuer       = "grahalia-estates"
)

var (
	ErrNotConfigured   = errors.New("admin password is not configured")
	ErrInvalidPassword = errors.New("invalid password")
	ErrTooManyAttempts = errors.New("too many login attempts")
	ErrInvalidSession  = errors.New("invalid session")
)

// Claims is the payload of a session token
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator checks the admin password and issues session tokens
type Authenticator struct {
	hash    []byte
	secret  []byte
	ttl     time.Duration
	secure  bool
	limiter *ratelimit.RateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// New builds an authenticator from the admin config. A bcrypt hash takes
// precedence over a plain password, which is hashed here and never kept.
// secure marks the cookie Secure (production over HTTPS).
func New(cfg config.AdminConfig, secure bool, limiter *ratelimit.RateLimiter, logger *slog.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{
		ttl:     cfg.SessionTTL(),
		secure:  secure,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
	if a.ttl <= 0 {
		a.ttl = 7 * 24 * time.Hour
	}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("failed to read admin password hash: %w", err)
		}
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		a.hash = hash
	default:
		logger.Warn("ADMIN_PASSWORD is not set, admin login is disabled")
	}

	if cfg.SessionSecret != "" {
		a.secret = []byte(cfg.SessionSecret)
	} else {
		logger.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
		a.secret = []byte(uuid.NewString() + uuid.NewString())
	}
	return a, nil
}

// HashPassword returns the bcrypt hash to put in ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks password for a client and returns a signed session token
// with its expiry.
func (a *Authenticator) Login(clientIP, password string) (string, time.Time, error) {
	if a.limiter != nil && !a.limiter.Allow(clientIP) {
		a.logger.Warn("admin login throttled", "ip", clientIP)
		return "", time.Time{}, ErrTooManyAttempts
	}
	if len(a.hash) == 0 {
		return "", time.Time{}, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		a.logger.Warn("admin login failed", "ip", clientIP)
		return "", time.Time{}, ErrInvalidPassword
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			Issuer:    issuer,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	a.logger.Info("admin logged in", "ip", clientIP)
	return token, expiresAt, nil
}

// Verify parses a session token and checks its signature and expiry
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithIssuer(issuer), jwt.WithSubject(adminSubject))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != adminSubject {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
