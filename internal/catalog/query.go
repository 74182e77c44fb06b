package catalog

import (
	"math"
	"strings"

	"grahalia-estates/internal/i18n"
	"grahalia-estates/internal/models"
)

// Page size bounds
const (
	DefaultPageSize = 12
	MaxPageSize     = 48
)

// DealAll disables the deal type filter
const DealAll = "all"

// Filters narrows the public listing
type Filters struct {
	Type        string   `json:"type,omitempty"`
	Deal        string   `json:"deal"`
	FeatureKeys []string `json:"features,omitempty"`
}

// Query is a catalog page request
type Query struct {
	Lang     string
	Page     int
	PageSize int
	Filters  Filters
}

// Normalize clamps every field of q to an accepted value. defaultPageSize
// replaces a non-positive page size.
func Normalize(q Query, defaultPageSize int) Query {
	q.Lang = i18n.Normalize(q.Lang)

	if q.Page < 1 {
		q.Page = 1
	}
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	deal := models.ParseDealType(q.Filters.Deal)
	if deal == "" {
		q.Filters.Deal = DealAll
	} else {
		q.Filters.Deal = string(deal)
	}

	q.Filters.Type = strings.ToLower(strings.TrimSpace(q.Filters.Type))
	q.Filters.FeatureKeys = NormalizeFeatureKeys(q.Filters.FeatureKeys)
	return q
}

// NormalizeFeatureKeys trims, lower-cases and deduplicates keys, keeping
// first-seen order and dropping empty values.
func NormalizeFeatureKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// paginate returns the clamped page, the page count and the row offset
func paginate(total int64, page, pageSize int) (int, int, int) {
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page, totalPages, (page - 1) * pageSize
}
