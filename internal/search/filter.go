package search

import (
	"fmt"
	"strings"

	"grahalia-estates/internal/models"
)

// Request is a full-text query over published listings
type Request struct {
	Query    string
	Lang     string
	Deal     string
	Features []string
	Limit    int64
}

// Filter builds the Meilisearch filter expression for req. Only known deal
// types and sanitized feature keys reach the expression.
func (req Request) Filter() string {
	var filters []string

	if deal := models.ParseDealType(req.Deal); deal != "" {
		filters = append(filters, fmt.Sprintf("deal_type = '%s'", deal))
	}

	for _, key := range req.Features {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || strings.ContainsAny(key, "'\"\\ ") {
			continue
		}
		filters = append(filters, fmt.Sprintf("features = '%s'", key))
	}

	return strings.Join(filters, " AND ")
}
