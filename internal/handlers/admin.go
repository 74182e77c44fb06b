package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"grahalia-estates/internal/auth"
	"grahalia-estates/internal/scheduler"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// LoginPage reports whether the visitor is already signed in
func (h *Handler) LoginPage(c *gin.Context) {
	if h.svc.Auth.Authenticated(c) {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false, "error": c.Query("error")})
}

// Login checks the admin password and sets the session cookie
func (h *Handler) Login(c *gin.Context) {
	token, expiresAt, err := h.svc.Auth.Login(c.ClientIP(), c.PostForm("password"))
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	case errors.Is(err, auth.ErrNotConfigured):
		h.logger.Error("admin login attempted without a configured password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Admin login is not configured"})
		return
	case errors.Is(err, auth.ErrInvalidPassword):
		h.logger.Warn("admin login failed", "client_ip", c.ClientIP())
		c.Redirect(http.StatusSeeOther, auth.LoginPath+"?error=invalid")
		return
	case err != nil:
		h.internalError(c, "failed to log in", err)
		return
	}

	h.svc.Auth.SetSessionCookie(c, token, expiresAt)
	h.logger.Info("admin logged in", "client_ip", c.ClientIP())
	c.Redirect(http.StatusSeeOther, "/admin")
}

// Logout clears the session cookie
func (h *Handler) Logout(c *gin.Context) {
	h.svc.Auth.ClearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

// Dashboard returns back office statistics
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	stats := make(map[string]interface{})

	properties, err := h.svc.Listings.Counts(ctx)
	if err != nil {
		h.internalError(c, "failed to count properties", err)
		return
	}
	stats["properties"] = properties

	leadCounts, err := h.svc.Leads.Counts(ctx)
	if err != nil {
		h.internalError(c, "failed to count leads", err)
		return
	}
	stats["leads"] = leadCounts

	// The remaining sections are informative; a failing one is left out.
	if recent, err := h.svc.History.CountSince(ctx, time.Now().AddDate(0, 0, -7)); err != nil {
		h.logger.Warn("failed to count recent changes", "error", err)
	} else {
		stats["changes"] = gin.H{"last_7_days": recent}
	}

	if h.svc.Cleanup != nil {
		if deletions, err := h.svc.Cleanup.GetDeleteStats(ctx); err != nil {
			h.logger.Warn("failed to get delete stats", "error", err)
		} else {
			stats["deletions"] = deletions
		}
	}

	if h.svc.Outbox != nil {
		if queue, err := h.svc.Outbox.Stats(ctx); err != nil {
			h.logger.Warn("failed to get queue stats", "error", err)
		} else {
			notifications := gin.H{"queue": queue}
			if h.svc.Worker != nil {
				notifications["breaker"] = h.svc.Worker.BreakerStatus()
			}
			stats["notifications"] = notifications
		}
	}

	stats["search_enabled"] = h.svc.Search != nil && h.svc.Search.Enabled()
	c.JSON(http.StatusOK, stats)
}

// DeleteLogs returns the latest deletion audit entries
func (h *Handler) DeleteLogs(c *gin.Context) {
	if h.svc.Cleanup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cleanup service is not available"})
		return
	}
	limit := queryLimit(c)
	logs, err := h.svc.Cleanup.GetRecentDeleteLogs(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "failed to get delete logs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs), "limit": limit})
}

// RecentChanges returns the latest listing edits, optionally for one property
func (h *Handler) RecentChanges(c *gin.Context) {
	ctx := c.Request.Context()
	limit := queryLimit(c)

	if raw := c.Query("property_id"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property_id"})
			return
		}
		changes, err := h.svc.History.ForProperty(ctx, id, limit)
		if err != nil {
			h.internalError(c, "failed to get property history", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"property_id": id, "changes": changes, "count": len(changes)})
		return
	}

	changes, err := h.svc.History.Recent(ctx, limit)
	if err != nil {
		h.internalError(c, "failed to get recent changes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes, "count": len(changes)})
}

// RunMaintenance runs the maintenance job now and returns its report
func (h *Handler) RunMaintenance(c *gin.Context) {
	if h.svc.Scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not available"})
		return
	}

	report, err := h.svc.Scheduler.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "Maintenance is already running"})
		return
	}
	if err != nil {
		h.internalError(c, "maintenance run failed", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// queryLimit reads ?limit= clamped to [1, maxLogLimit]
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit < 1 {
		return defaultLogLimit
	}
	if limit > maxLogLimit {
		return maxLogLimit
	}
	return limit
}
