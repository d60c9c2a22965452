package repository

import (
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// SubmissionRepository handles submission-related database operations.
type SubmissionRepository struct {
	db *DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create creates a new submission in the database.
func (r *SubmissionRepository) Create(submission *models.Submission) error {
	return r.db.Create(submission).Error
}

// GetByUser retrieves a user's full submission history ordered by
// creation time ascending, the order the stats aggregator requires.
func (r *SubmissionRepository) GetByUser(userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&submissions).Error
	return submissions, err
}

// GetByUserSince retrieves a user's submissions created at or after the
// given time, ordered by creation time ascending.
func (r *SubmissionRepository) GetByUserSince(userID uint, since time.Time) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&submissions).Error
	return submissions, err
}

// GetRankedByContest retrieves all submissions for a contest ordered by
// votes descending, used for result digests.
func (r *SubmissionRepository) GetRankedByContest(contestID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.
		Where("contest_id = ?", contestID).
		Preload("User").
		Order("votes DESC").
		Find(&submissions).Error
	return submissions, err
}

// CountSince returns the number of submissions created at or after the
// given time across the whole platform.
func (r *SubmissionRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Submission{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// TotalVotesForUser returns the lifetime vote total across all of a
// user's submissions.
func (r *SubmissionRepository) TotalVotesForUser(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(votes), 0)").
		Scan(&total).Error
	return total, err
}
