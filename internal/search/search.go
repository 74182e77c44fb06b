// Package search mirrors published listings into a full-text index.
//
// The index is optional: with no backend configured every write is a no-op
// and Search reports ErrDisabled, so callers never need to check.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"grahalia-estates/internal/config"
)

const (
	DefaultLimit   = 20
	MaxLimit       = 100
	maxQueryLength = 200
	reindexBatch   = 500
)

// ErrDisabled is returned by Search when no backend is configured
var ErrDisabled = errors.New("search is disabled")

// Service keeps the index in step with the database
type Service struct {
	db      *gorm.DB
	backend Backend
	logger  *slog.Logger
}

// New creates a service backed by Meilisearch when cfg enables it
func New(db *gorm.DB, cfg config.MeilisearchConfig, logger *slog.Logger) *Service {
	var backend Backend
	if cfg.Enabled && cfg.Host != "" {
		backend = NewMeiliClient(cfg.Host, cfg.APIKey, cfg.Index)
	}
	return NewService(db, backend, logger)
}

// NewService creates a service writing to backend, which may be nil
func NewService(db *gorm.DB, backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, backend: backend, logger: logger}
}

// Enabled reports whether a backend is configured
func (s *Service) Enabled() bool {
	return s.backend != nil
}

// Init prepares the index
func (s *Service) Init() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Init()
}

// IndexProperty writes the current state of one property. Unpublished or
// missing properties are removed from the index.
func (s *Service) IndexProperty(ctx context.Context, propertyID uint) error {
	if s.backend == nil {
		return nil
	}
	docs, err := LoadDocuments(ctx, s.db, []uint{propertyID})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return s.backend.Delete(propertyID)
	}
	return s.backend.Upsert(docs)
}

// DeleteProperty removes one property from the index
func (s *Service) DeleteProperty(_ context.Context, propertyID uint) error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Delete(propertyID)
}

// Reindex rebuilds the index from every published property and returns
// how many documents were written.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.backend == nil {
		return 0, nil
	}
	docs, err := LoadDocuments(ctx, s.db, nil)
	if err != nil {
		return 0, err
	}
	if err := s.backend.DeleteAll(); err != nil {
		return 0, err
	}

	for start := 0; start < len(docs); start += reindexBatch {
		end := start + reindexBatch
		if end > len(docs) {
			end = len(docs)
		}
		if err := s.backend.Upsert(docs[start:end]); err != nil {
			return start, err
		}
	}

	s.logger.Info("search index rebuilt", "documents", len(docs))
	return len(docs), nil
}

// Search returns matching property ids, best match first, and the estimated
// total number of hits.
func (s *Service) Search(_ context.Context, req Request) ([]uint, int64, error) {
	if s.backend == nil {
		return nil, 0, ErrDisabled
	}

	req.Query = strings.TrimSpace(req.Query)
	if r := []rune(req.Query); len(r) > maxQueryLength {
		req.Query = string(r[:maxQueryLength])
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	return s.backend.Search(req)
}
