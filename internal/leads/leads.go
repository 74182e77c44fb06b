// Package leads handles contact form submissions and their back office
// workflow: listing, marking processed and CSV export.
package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"grahalia-estates/internal/config"
	"grahalia-estates/internal/i18n"
	"grahalia-estates/internal/models"
	"grahalia-estates/internal/notify"
)

// Submission errors. Each maps to one client-facing message.
var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidLang       = errors.New("invalid lang")
	ErrInvalidPropertyID = errors.New("invalid property_id")
	ErrRateLimited       = errors.New("too many requests")
	ErrNotFound          = errors.New("lead not found")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Column widths of the leads table
const (
	maxName    = 120
	maxPhone   = 60
	maxEmail   = 200
	maxSlug    = 255
	maxMessage = 5000
	maxPageURL = 2000
	maxQuery   = 80
)

// Input is the JSON body of POST /api/leads
type Input struct {
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Message      string          `json:"message"`
	Lang         string          `json:"lang"`
	PageURL      string          `json:"page_url"`
	PropertyID   json.RawMessage `json:"property_id"`
	PropertySlug string          `json:"property_slug"`
}

// Limiter caps submissions per client IP
type Limiter interface {
	Allow(ctx context.Context, ip string) (bool, error)
}

// Notifier queues outgoing mail
type Notifier interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

// Service implements lead intake and the admin lead workflow
type Service struct {
	db         *gorm.DB
	limiter    Limiter
	notifier   Notifier
	cfg        config.LeadsConfig
	adminEmail string
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a lead service. notifier may be nil to disable mail.
func NewService(db *gorm.DB, limiter Limiter, notifier Notifier, cfg config.LeadsConfig, adminEmail string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 200
	}
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = 5000
	}
	return &Service{
		db:         db,
		limiter:    limiter,
		notifier:   notifier,
		cfg:        cfg,
		adminEmail: strings.TrimSpace(adminEmail),
		logger:     logger,
		now:        time.Now,
	}
}

// Validate normalizes in into a lead row without touching the database
func Validate(in Input) (*models.Lead, error) {
	lead := &models.Lead{
		Name:         truncate(strings.TrimSpace(in.Name), maxName),
		Phone:        truncate(strings.TrimSpace(in.Phone), maxPhone),
		Email:        truncate(strings.TrimSpace(in.Email), maxEmail),
		Message:      truncate(strings.TrimSpace(in.Message), maxMessage),
		Lang:         strings.TrimSpace(in.Lang),
		PageURL:      truncate(strings.TrimSpace(in.PageURL), maxPageURL),
		PropertySlug: truncate(strings.TrimSpace(in.PropertySlug), maxSlug),
		Status:       models.LeadStatusNew,
		Source:       models.LeadSourceWebsite,
	}

	if lead.Name == "" || lead.Phone == "" || lead.Email == "" || lead.Lang == "" || lead.PageURL == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(lead.Email) {
		return nil, ErrInvalidEmail
	}
	if !i18n.IsSupported(lead.Lang) {
		return nil, ErrInvalidLang
	}

	id, err := parsePropertyID(in.PropertyID)
	if err != nil {
		return nil, err
	}
	lead.PropertyID = id
	return lead, nil
}

// parsePropertyID accepts a JSON number, a numeric string or null
func parsePropertyID(raw json.RawMessage) (*uint, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, ErrInvalidPropertyID
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return nil, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return nil, ErrInvalidPropertyID
	}
	id := uint(n)
	return &id, nil
}

// Submit validates and stores a lead from ip, then queues the sales alert.
// Validation runs before the rate limit so malformed posts do not consume
// the allowance.
func (s *Service) Submit(ctx context.Context, ip string, in Input) (*models.Lead, error) {
	lead, err := Validate(in)
	if err != nil {
		return nil, err
	}

	if ip == "" {
		ip = "unknown"
	}
	allowed, err := s.limiter.Allow(ctx, ip)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Warn("lead rate limited", "ip", ip)
		return nil, ErrRateLimited
	}

	lead.CreatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}
	s.logger.Info("lead received", "lead_id", lead.ID, "lang", lead.Lang, "property_slug", lead.PropertySlug)

	if to := strings.TrimSpace(s.cfg.NotifyTo); to != "" && s.notifier != nil {
		if err := s.notifier.Enqueue(ctx, notify.LeadAlert(lead, to)); err != nil {
			s.logger.Error("failed to queue lead notification", "lead_id", lead.ID, "error", err)
		}
	}
	return lead, nil
}

// Get returns one lead
func (s *Service) Get(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	result := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&lead)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get lead: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &lead, nil
}

// MarkProcessed flags a lead as handled. It reports whether the lead
// changed; marking an already processed lead keeps its processed_at.
func (s *Service) MarkProcessed(ctx context.Context, id uint) (bool, error) {
	result := s.db.WithContext(ctx).Exec(
		"UPDATE leads SET status = ?, processed_at = ? WHERE id = ? AND status <> ?",
		models.LeadStatusProcessed, s.now().UTC(), id, models.LeadStatusProcessed,
	)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark lead processed: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// Counts summarizes leads by status
type Counts struct {
	New       int64 `json:"new"`
	Processed int64 `json:"processed"`
	Total     int64 `json:"total"`
}

// Counts returns lead totals for the dashboard
func (s *Service) Counts(ctx context.Context) (*Counts, error) {
	db := s.db.WithContext(ctx)
	c := &Counts{}
	if err := db.Model(&models.Lead{}).Count(&c.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	if err := db.Model(&models.Lead{}).Where("status = ?", models.LeadStatusProcessed).Count(&c.Processed).Error; err != nil {
		return nil, fmt.Errorf("failed to count processed leads: %w", err)
	}
	c.New = c.Total - c.Processed
	return c, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
