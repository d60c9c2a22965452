package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// DrawingRepository handles monthly drawing database operations.
type DrawingRepository struct {
	db *DB
}

// NewDrawingRepository creates a new drawing repository.
func NewDrawingRepository(db *DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

// Create creates a new drawing record. The composite unique index on
// (month, year, tier) rejects a second record for the same period;
// gorm.ErrDuplicatedKey is returned unwrapped so callers can treat it
// as already-exists.
func (r *DrawingRepository) Create(drawing *models.MonthlyDrawing) error {
	return r.db.Create(drawing).Error
}

// Update updates an existing drawing record.
func (r *DrawingRepository) Update(drawing *models.MonthlyDrawing) error {
	return r.db.Save(drawing).Error
}

// GetByPeriod retrieves the drawing for a (month, year, tier) period.
// Returns (nil, nil) when no record exists.
func (r *DrawingRepository) GetByPeriod(month, year int, tier string) (*models.MonthlyDrawing, error) {
	var drawing models.MonthlyDrawing
	err := r.db.
		Where("month = ? AND year = ? AND tier = ?", month, year, tier).
		First(&drawing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &drawing, nil
}

// HasCompleted reports whether a completed drawing already exists for a
// (month, year, tier) period.
func (r *DrawingRepository) HasCompleted(month, year int, tier string) (bool, error) {
	var count int64
	err := r.db.Model(&models.MonthlyDrawing{}).
		Where("month = ? AND year = ? AND tier = ? AND is_completed = ?", month, year, tier, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
