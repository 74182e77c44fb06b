package leads

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
)

// Status filter values
const (
	StatusAll       = "all"
	StatusNew       = "new"
	StatusProcessed = "processed"
)

// Filter narrows the admin lead list and the export
type Filter struct {
	Status string `json:"status"`
	Q      string `json:"q"`
}

// ParseFilter normalizes query string values: unknown statuses mean all,
// q is trimmed and cut to 80 characters.
func ParseFilter(status, q string) Filter {
	f := Filter{Status: strings.ToLower(strings.TrimSpace(status)), Q: truncate(strings.TrimSpace(q), maxQuery)}
	if f.Status != StatusNew && f.Status != StatusProcessed {
		f.Status = StatusAll
	}
	return f
}

// likeEscaper makes LIKE wildcards in search text match literally. '!' is
// used as the escape character since backslash quoting differs between
// MySQL and Postgres.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// apply adds the filter predicates to a leads query. "new" matches every
// lead that is not processed.
func (f Filter) apply(db *gorm.DB) *gorm.DB {
	switch f.Status {
	case StatusNew:
		db = db.Where("status <> ?", models.LeadStatusProcessed)
	case StatusProcessed:
		db = db.Where("status = ?", models.LeadStatusProcessed)
	}
	if f.Q != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(f.Q)) + "%"
		db = db.Where(`(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'
			OR LOWER(phone) LIKE ? ESCAPE '!' OR LOWER(COALESCE(property_slug, '')) LIKE ? ESCAPE '!'
			OR LOWER(COALESCE(page_url, '')) LIKE ? ESCAPE '!')`,
			like, like, like, like, like)
	}
	return db
}

// List returns leads matching f, newest first
func (s *Service) List(ctx context.Context, f Filter) ([]models.Lead, error) {
	return s.find(ctx, ParseFilter(f.Status, f.Q), s.cfg.ListLimit)
}

func (s *Service) find(ctx context.Context, f Filter, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	if err := f.apply(s.db.WithContext(ctx).Model(&models.Lead{})).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}
