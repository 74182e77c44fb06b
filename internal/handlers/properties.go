package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"grahalia-estates/internal/gallery"
	"grahalia-estates/internal/listing"
)

const (
	propertiesPath = "/admin/properties"
	historyLimit   = 20
)

// AdminProperties lists every property, newest first
func (h *Handler) AdminProperties(c *gin.Context) {
	deal := c.Query("deal")
	rows, err := h.svc.Listings.List(c.Request.Context(), deal)
	if err != nil {
		h.internalError(c, "failed to list properties", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal, "count": len(rows), "properties": rows})
}

// NewProperty returns what the create form needs
func (h *Handler) NewProperty(c *gin.Context) {
	options, err := h.svc.Listings.FeatureOptions(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list features", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": options, "error": c.Query("error")})
}

// CreateProperty handles the create form
func (h *Handler) CreateProperty(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		redirectWithError(c, propertiesPath+"/new", "invalid form")
		return
	}
	p, err := h.svc.Listings.Create(c.Request.Context(), listing.ParseForm(c.Request.PostForm))
	if errors.Is(err, listing.ErrValidation) {
		redirectWithError(c, propertiesPath+"/new", err.Error())
		return
	}
	if err != nil {
		h.internalError(c, "failed to create property", err)
		return
	}
	h.logger.Info("property created", "property_id", p.ID, "slug", p.Slug)
	c.Redirect(http.StatusSeeOther, propertiesPath)
}

// EditProperty returns one property with its gallery and history
func (h *Handler) EditProperty(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.Redirect(http.StatusSeeOther, propertiesPath)
		return
	}
	ctx := c.Request.Context()

	detail, err := h.svc.Listings.Get(ctx, id)
	if errors.Is(err, listing.ErrNotFound) {
		c.Redirect(http.StatusSeeOther, propertiesPath)
		return
	}
	if err != nil {
		h.internalError(c, "failed to load property", err)
		return
	}
	options, err := h.svc.Listings.FeatureOptions(ctx)
	if err != nil {
		h.internalError(c, "failed to list features", err)
		return
	}
	changes, err := h.svc.History.ForProperty(ctx, id, historyLimit)
	if err != nil {
		h.internalError(c, "failed to load property history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"property":    detail.Property,
		"images":      detail.Images,
		"feature_ids": detail.FeatureIDs,
		"features":    options,
		"history":     changes,
		"error":       c.Query("error"),
	})
}

// UpdateProperty saves the edit form, or deletes the property when the
// form overrides the method.
func (h *Handler) UpdateProperty(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.Redirect(http.StatusSeeOther, propertiesPath)
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		redirectWithError(c, editPath(id), "invalid form")
		return
	}
	ctx := c.Request.Context()

	if methodOverride(c) == "delete" {
		err := h.svc.Listings.Delete(ctx, id)
		if err != nil && !errors.Is(err, listing.ErrNotFound) {
			h.internalError(c, "failed to delete property", err)
			return
		}
		c.Redirect(http.StatusSeeOther, propertiesPath)
		return
	}

	_, err := h.svc.Listings.Update(ctx, id, listing.ParseForm(c.Request.PostForm))
	switch {
	case errors.Is(err, listing.ErrNotFound):
		c.Redirect(http.StatusSeeOther, propertiesPath)
	case errors.Is(err, listing.ErrValidation):
		redirectWithError(c, editPath(id), err.Error())
	case err != nil:
		h.internalError(c, "failed to update property", err)
	default:
		c.Redirect(http.StatusSeeOther, editPath(id))
	}
}

// PropertyImages handles the gallery form: upload, delete, setCover and
// move share one endpoint selected by _method.
func (h *Handler) PropertyImages(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad id"})
		return
	}
	ctx := c.Request.Context()

	method := methodOverride(c)
	if method == "" || method == "upload" {
		files, err := h.formFiles(c, "files")
		if err != nil {
			h.internalError(c, "failed to read uploads", err)
			return
		}
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No files (field name must be 'files')"})
			return
		}
		uploads := make([]gallery.File, len(files))
		for i, f := range files {
			uploads[i] = gallery.File{Name: f.Name, Data: f.Data}
		}
		if _, err := h.svc.Gallery.Upload(ctx, id, uploads); err != nil {
			if errors.Is(err, gallery.ErrPropertyNotFound) {
				c.Redirect(http.StatusSeeOther, propertiesPath)
				return
			}
			h.internalError(c, "failed to upload images", err)
			return
		}
		c.Redirect(http.StatusSeeOther, editPath(id))
		return
	}

	imageID, ok := parseID(c.PostForm("imageId"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad imageId"})
		return
	}

	var err error
	switch method {
	case "delete":
		err = h.svc.Gallery.Delete(ctx, id, imageID)
	case "setcover":
		err = h.svc.Gallery.SetCover(ctx, id, imageID)
	case "move":
		dir := strings.ToLower(strings.TrimSpace(c.PostForm("dir")))
		if dir != string(gallery.Up) && dir != string(gallery.Down) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bad move params"})
			return
		}
		err = h.svc.Gallery.Move(ctx, id, imageID, gallery.ParseDirection(dir))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
		return
	}

	if errors.Is(err, gallery.ErrImageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err != nil {
		h.internalError(c, "failed to update gallery", err)
		return
	}
	c.Redirect(http.StatusSeeOther, editPath(id))
}

// PropertyPlans uploads or removes the floor plans PDF
func (h *Handler) PropertyPlans(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad id"})
		return
	}
	ctx := c.Request.Context()

	var err error
	if methodOverride(c) == "delete" {
		err = h.svc.Listings.RemovePlans(ctx, id)
	} else {
		var files []listing.File
		files, err = h.formFiles(c, "file")
		if err == nil {
			var f listing.File
			if len(files) > 0 {
				f = files[0]
			}
			_, err = h.svc.Listings.SetPlans(ctx, id, f)
		}
	}

	switch {
	case errors.Is(err, listing.ErrNoFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file (field name must be 'file')"})
	case errors.Is(err, listing.ErrNotPDF):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF allowed"})
	case errors.Is(err, listing.ErrNotFound):
		c.Redirect(http.StatusSeeOther, propertiesPath)
	case err != nil:
		h.internalError(c, "failed to update plans", err)
	default:
		c.Redirect(http.StatusSeeOther, editPath(id))
	}
}

// formFiles reads every file posted under field into memory
func (h *Handler) formFiles(c *gin.Context, field string) ([]listing.File, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	var files []listing.File
	for _, header := range form.File[field] {
		data, err := readPart(header)
		if err != nil {
			return nil, err
		}
		files = append(files, listing.File{Name: header.Filename, Data: data})
	}
	return files, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}
	return data, nil
}

// methodOverride returns the lower-cased hidden _method field
func methodOverride(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.PostForm("_method")))
}

func editPath(id uint) string {
	return fmt.Sprintf("%s/%d", propertiesPath, id)
}

func redirectWithError(c *gin.Context, path, msg string) {
	c.Redirect(http.StatusSeeOther, path+"?error="+url.QueryEscape(msg))
}
