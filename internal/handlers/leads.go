package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"grahalia-estates/internal/leads"
)

var leadErrorMessages = map[error]string{
	leads.ErrMissingFields:     "Missing required fields",
	leads.ErrInvalidEmail:      "Invalid email",
	leads.ErrInvalidLang:       "Invalid lang",
	leads.ErrInvalidPropertyID: "Invalid property_id",
}

// SubmitLead stores a contact form submission
func (h *Handler) SubmitLead(c *gin.Context) {
	var in leads.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	_, err := h.svc.Leads.Submit(c.Request.Context(), c.ClientIP(), in)
	if err != nil {
		for target, msg := range leadErrorMessages {
			if errors.Is(err, target) {
				c.JSON(http.StatusBadRequest, gin.H{"error": msg})
				return
			}
		}
		if errors.Is(err, leads.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		h.logger.Error("failed to submit lead", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminLeads lists leads filtered by status and search text
func (h *Handler) AdminLeads(c *gin.Context) {
	f := leads.ParseFilter(c.Query("status"), c.Query("q"))
	ctx := c.Request.Context()

	list, err := h.svc.Leads.List(ctx, f)
	if err != nil {
		h.internalError(c, "failed to list leads", err)
		return
	}
	counts, err := h.svc.Leads.Counts(ctx)
	if err != nil {
		h.internalError(c, "failed to count leads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filter": f,
		"counts": counts,
		"leads":  list,
	})
}

// AdminLead shows one lead
func (h *Handler) AdminLead(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin/leads")
		return
	}
	lead, err := h.svc.Leads.Get(c.Request.Context(), id)
	if errors.Is(err, leads.ErrNotFound) {
		c.Redirect(http.StatusSeeOther, "/admin/leads")
		return
	}
	if err != nil {
		h.internalError(c, "failed to get lead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// MarkLeadProcessed flags a lead as handled and returns to the page the
// form was posted from.
func (h *Handler) MarkLeadProcessed(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin/leads")
		return
	}

	changed, err := h.svc.Leads.MarkProcessed(c.Request.Context(), id)
	if errors.Is(err, leads.ErrNotFound) {
		c.Redirect(http.StatusSeeOther, "/admin/leads")
		return
	}
	if err != nil {
		h.internalError(c, "failed to mark lead processed", err)
		return
	}
	if changed {
		h.logger.Info("lead processed", "lead_id", id)
	}

	if c.PostForm("from") == "detail" {
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/admin/leads/%d", id))
		return
	}
	c.Redirect(http.StatusSeeOther, leadListURL(c.PostForm("status"), c.PostForm("q")))
}

// ExportLeads downloads the filtered leads as CSV
func (h *Handler) ExportLeads(c *gin.Context) {
	f := leads.ParseFilter(c.Query("status"), c.Query("q"))

	var buf bytes.Buffer
	exp, err := h.svc.Leads.ExportCSV(c.Request.Context(), f, &buf)
	if err != nil {
		h.internalError(c, "failed to export leads", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Filename))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Export-Rows", strconv.Itoa(exp.Rows))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// leadListURL rebuilds the lead list address keeping non-empty filters
func leadListURL(status, q string) string {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if q != "" {
		params.Set("q", q)
	}
	if len(params) == 0 {
		return "/admin/leads"
	}
	return "/admin/leads?" + params.Encode()
}

// parseID parses a positive numeric path id
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
