// Package gallery maintains the ordered image gallery of each property:
// uploads, cover selection, reordering and removal.
//
// Invariants kept by every operation:
//   - sort_order is unique per property (enforced by idx_property_images_sort)
//   - a property has at most one cover image
//   - deleting the cover promotes the image with the lowest (sort_order, id)
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grahalia-estates/internal/models"
	"grahalia-estates/internal/storage"
)

var (
	// ErrPropertyNotFound is returned when the target property does not exist
	ErrPropertyNotFound = errors.New("property not found")
	// ErrImageNotFound is returned when an image does not exist or belongs
	// to another property
	ErrImageNotFound = errors.New("image not found")
)

// Direction is a reorder step
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection returns Up or Down, defaulting to Down like the admin form
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Up)) {
		return Up
	}
	return Down
}

// File is an uploaded file held in memory
type File struct {
	Name string
	Data []byte
}

// Service performs gallery mutations
type Service struct {
	db     *gorm.DB
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a gallery service writing files to store
func NewService(db *gorm.DB, store *storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, store: store, logger: logger, now: time.Now}
}

// List returns the images of a property in gallery order
func (s *Service) List(ctx context.Context, propertyID uint) ([]models.PropertyImage, error) {
	var images []models.PropertyImage
	if err := s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("sort_order, id").
		Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// Upload appends the image files to the end of the gallery and returns how
// many were stored. Files whose content is not an image are skipped. The
// first stored image becomes the cover when the property has none.
func (s *Service) Upload(ctx context.Context, propertyID uint, files []File) (int, error) {
	var written []string
	stored := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", propertyID).Limit(1).Find(&property)
		if result.Error != nil {
			return fmt.Errorf("failed to lock property: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPropertyNotFound
		}

		var maxOrder int
		if err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ?", propertyID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("failed to read max sort order: %w", err)
		}

		var covers int64
		if err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ? AND is_cover = ?", propertyID, true).
			Count(&covers).Error; err != nil {
			return fmt.Errorf("failed to check cover: %w", err)
		}
		needsCover := covers == 0

		stamp := s.now().UnixMilli()
		for _, f := range files {
			mt := mimetype.Detect(f.Data)
			if len(f.Data) == 0 || !strings.HasPrefix(mt.String(), "image/") {
				s.logger.Debug("skipping non-image upload", "property_id", propertyID, "file", f.Name, "type", mt.String())
				continue
			}

			name := fmt.Sprintf("property-%d-%d-%d-%s", propertyID, stamp, stored, storage.SafeName(f.Name))
			url, err := s.store.Save(storage.DirProperties, name, f.Data)
			if err != nil {
				return err
			}
			written = append(written, url)

			img := models.PropertyImage{
				PropertyID: propertyID,
				URL:        url,
				SortOrder:  maxOrder + stored + 1,
				IsCover:    needsCover && stored == 0,
			}
			if err := tx.Create(&img).Error; err != nil {
				return fmt.Errorf("failed to insert image: %w", err)
			}
			stored++
		}
		return nil
	})
	if err != nil {
		for _, url := range written {
			if rmErr := s.store.Remove(url); rmErr != nil {
				s.logger.Warn("failed to remove upload after rollback", "url", url, "error", rmErr)
			}
		}
		return 0, err
	}

	s.logger.Info("images uploaded", "property_id", propertyID, "stored", stored, "skipped", len(files)-stored)
	return stored, nil
}

// SetCover makes imageID the only cover of the property
func (s *Service) SetCover(ctx context.Context, propertyID, imageID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findImage(tx, propertyID, imageID); err != nil {
			return err
		}
		if err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ?", propertyID).
			Update("is_cover", false).Error; err != nil {
			return fmt.Errorf("failed to clear covers: %w", err)
		}
		if err := tx.Model(&models.PropertyImage{}).
			Where("id = ?", imageID).
			Update("is_cover", true).Error; err != nil {
			return fmt.Errorf("failed to set cover: %w", err)
		}
		return nil
	})
}

// Move swaps the image with its neighbour in direction dir. Moving the
// first image up or the last one down changes nothing.
func (s *Service) Move(ctx context.Context, propertyID, imageID uint, dir Direction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := findImage(tx, propertyID, imageID)
		if err != nil {
			return err
		}

		q := tx.Where("property_id = ? AND id <> ?", propertyID, cur.ID)
		if dir == Up {
			q = q.Where("(sort_order < ? OR (sort_order = ? AND id < ?))", cur.SortOrder, cur.SortOrder, cur.ID).
				Order("sort_order DESC, id DESC")
		} else {
			q = q.Where("(sort_order > ? OR (sort_order = ? AND id > ?))", cur.SortOrder, cur.SortOrder, cur.ID).
				Order("sort_order, id")
		}

		var neighbor models.PropertyImage
		result := q.Limit(1).Find(&neighbor)
		if result.Error != nil {
			return fmt.Errorf("failed to find neighbour: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		// Park the moving image on a negative slot so the unique
		// (property_id, sort_order) index holds between the two updates.
		steps := []struct {
			id    uint
			order int
		}{
			{cur.ID, -int(cur.ID)},
			{neighbor.ID, cur.SortOrder},
			{cur.ID, neighbor.SortOrder},
		}
		for _, st := range steps {
			if err := tx.Model(&models.PropertyImage{}).
				Where("id = ?", st.id).
				Update("sort_order", st.order).Error; err != nil {
				return fmt.Errorf("failed to swap sort order: %w", err)
			}
		}
		return nil
	})
}

// Delete removes an image. When it was the cover, the image with the lowest
// (sort_order, id) becomes the cover. The stored file is removed after the
// commit; failures there are logged only.
func (s *Service) Delete(ctx context.Context, propertyID, imageID uint) error {
	var removed models.PropertyImage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		img, err := findImage(tx, propertyID, imageID)
		if err != nil {
			return err
		}
		removed = *img

		if err := tx.Delete(&models.PropertyImage{}, img.ID).Error; err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if !img.IsCover {
			return nil
		}

		var next models.PropertyImage
		result := tx.Where("property_id = ?", propertyID).Order("sort_order, id").Limit(1).Find(&next)
		if result.Error != nil {
			return fmt.Errorf("failed to find next cover: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Model(&models.PropertyImage{}).
			Where("id = ?", next.ID).
			Update("is_cover", true).Error; err != nil {
			return fmt.Errorf("failed to promote cover: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.RemoveFile(removed.URL)
	return nil
}

// RemoveFile deletes a stored upload, logging instead of failing
func (s *Service) RemoveFile(url string) {
	if url == "" {
		return
	}
	if err := s.store.Remove(url); err != nil {
		s.logger.Warn("failed to remove stored file", "url", url, "error", err)
	}
}

func findImage(tx *gorm.DB, propertyID, imageID uint) (*models.PropertyImage, error) {
	var img models.PropertyImage
	result := tx.Where("id = ? AND property_id = ?", imageID, propertyID).Limit(1).Find(&img)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get image: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrImageNotFound
	}
	return &img, nil
}
