package repository

import (
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// EmailLogRepository handles email delivery log database operations.
type EmailLogRepository struct {
	db *DB
}

// NewEmailLogRepository creates a new email log repository.
func NewEmailLogRepository(db *DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// Record stores one send attempt.
func (r *EmailLogRepository) Record(log *models.EmailLog) error {
	return r.db.Create(log).Error
}

// GetFailedSince retrieves failed sends at or after the given time, for
// the ops dashboard.
func (r *EmailLogRepository) GetFailedSince(since time.Time) ([]models.EmailLog, error) {
	var logs []models.EmailLog
	err := r.db.
		Where("status = ? AND created_at >= ?", models.EmailStatusFailed, since).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}
