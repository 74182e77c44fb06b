// Package history records audited edits of listings: price, rent, status,
// deal type and publication changes made from the back office.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"grahalia-estates/internal/models"
)

// Service reads and writes property change rows
type Service struct {
	db *gorm.DB
}

// NewService creates a new history service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// DetectChanges compares the stored state of a property with its edited
// state. A nil old value means the property was just created.
func DetectChanges(old, cur *models.Property, at time.Time) []models.PropertyChange {
	if old == nil {
		return []models.PropertyChange{{
			PropertyID: cur.ID,
			ChangeType: models.ChangeTypeNew,
			NewValue:   cur.Slug,
			DetectedAt: at,
		}}
	}

	changes := []models.PropertyChange{}

	if !float64PtrEqual(old.Price, cur.Price) {
		changes = append(changes, priceChange(cur.ID, models.ChangeTypePrice, old.Price, cur.Price, at))
	}
	if !float64PtrEqual(old.RentPrice, cur.RentPrice) {
		changes = append(changes, priceChange(cur.ID, models.ChangeTypeRentPrice, old.RentPrice, cur.RentPrice, at))
	}

	if old.Status != cur.Status {
		changes = append(changes, models.PropertyChange{
			PropertyID: cur.ID,
			ChangeType: models.ChangeTypeStatus,
			OldValue:   string(old.Status),
			NewValue:   string(cur.Status),
			DetectedAt: at,
		})
	}

	if old.DealType != cur.DealType {
		changes = append(changes, models.PropertyChange{
			PropertyID: cur.ID,
			ChangeType: models.ChangeTypeDeal,
			OldValue:   string(old.DealType),
			NewValue:   string(cur.DealType),
			DetectedAt: at,
		})
	}

	if old.IsPublished != cur.IsPublished {
		changeType := models.ChangeTypeUnpublished
		if cur.IsPublished {
			changeType = models.ChangeTypePublished
		}
		changes = append(changes, models.PropertyChange{
			PropertyID: cur.ID,
			ChangeType: changeType,
			DetectedAt: at,
		})
	}

	return changes
}

func priceChange(propertyID uint, changeType string, old, cur *float64, at time.Time) models.PropertyChange {
	change := models.PropertyChange{
		PropertyID: propertyID,
		ChangeType: changeType,
		OldValue:   formatPrice(old),
		NewValue:   formatPrice(cur),
		DetectedAt: at,
	}
	if old != nil && cur != nil {
		magnitude := *cur - *old
		change.ChangeMagnitude = &magnitude
	}
	return change
}

func formatPrice(v *float64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Record saves changes using db, which may be a transaction
func Record(db *gorm.DB, changes []models.PropertyChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := db.Create(&changes).Error; err != nil {
		return fmt.Errorf("failed to save property changes: %w", err)
	}
	return nil
}

// ForProperty returns the changes of one property, newest first
func (s *Service) ForProperty(ctx context.Context, propertyID uint, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to get property history: %w", err)
	}

	return changes, nil
}

// Recent returns the latest changes across all properties
func (s *Service) Recent(ctx context.Context, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.WithContext(ctx).Order("detected_at DESC, id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent changes: %w", err)
	}

	return changes, nil
}

// CountSince returns how many changes were detected at or after since
func (s *Service) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.PropertyChange{}).
		Where("detected_at >= ?", since.UTC()).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count recent changes: %w", err)
	}
	return n, nil
}

func float64PtrEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
