package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grahalia-estates/internal/catalog"
	"grahalia-estates/internal/i18n"
	"grahalia-estates/internal/search"
)

// RootRedirect sends / to the negotiated language home
func (h *Handler) RootRedirect(c *gin.Context) {
	redirectToLocale(c, "/")
}

// Home returns the newest published listings
func (h *Handler) Home(c *gin.Context) {
	lang := currentLang(c)
	items, err := h.svc.Catalog.Featured(c.Request.Context(), lang, h.opts.FeaturedLimit)
	if err != nil {
		h.internalError(c, "failed to load featured properties", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lang": lang, "items": items})
}

// Properties returns one page of the filtered catalog
func (h *Handler) Properties(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	q := catalog.Query{
		Lang: currentLang(c),
		Page: page,
		Filters: catalog.Filters{
			Type:        c.Query("type"),
			Deal:        c.Query("deal"),
			FeatureKeys: splitList(c.QueryArray("features")),
		},
	}

	result, err := h.svc.Catalog.List(c.Request.Context(), q)
	if err != nil {
		h.internalError(c, "failed to list properties", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PropertyDetail returns one published property by slug
func (h *Handler) PropertyDetail(c *gin.Context) {
	lang := currentLang(c)
	detail, err := h.svc.Catalog.Detail(c.Request.Context(), lang, c.Param("slug"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": i18n.T(lang, "not_found")})
		return
	}
	if err != nil {
		h.internalError(c, "failed to load property", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Features lists the amenity filter options
func (h *Handler) Features(c *gin.Context) {
	lang := currentLang(c)
	features, err := h.svc.Catalog.FeatureOptions(c.Request.Context(), lang)
	if err != nil {
		h.internalError(c, "failed to list features", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lang": lang, "features": features})
}

// Search runs a full-text query and returns catalog cards in rank order
func (h *Handler) Search(c *gin.Context) {
	lang := c.Param("lang")
	if !isLang(lang) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lang"})
		return
	}
	if h.svc.Search == nil || !h.svc.Search.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not available"})
		return
	}

	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	req := search.Request{
		Query:    c.Query("q"),
		Lang:     lang,
		Deal:     c.Query("deal"),
		Features: splitList(c.QueryArray("features")),
		Limit:    limit,
	}

	ctx := c.Request.Context()
	ids, total, err := h.svc.Search.Search(ctx, req)
	if errors.Is(err, search.ErrDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not available"})
		return
	}
	if err != nil {
		h.internalError(c, "search failed", err)
		return
	}

	items, err := h.svc.Catalog.ByIDs(ctx, lang, ids)
	if err != nil {
		h.internalError(c, "failed to load search results", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lang":  lang,
		"query": req.Query,
		"total": total,
		"items": items,
	})
}

// internalError logs err and answers a generic 500
func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", c.Request.URL.Path, "request_id", c.GetString(requestIDKey))
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
