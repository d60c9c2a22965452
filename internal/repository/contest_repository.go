package repository

import (
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// ContestRepository handles contest-related database operations.
type ContestRepository struct {
	db *DB
}

// NewContestRepository creates a new contest repository.
func NewContestRepository(db *DB) *ContestRepository {
	return &ContestRepository{db: db}
}

// Create creates a new contest in the database.
func (r *ContestRepository) Create(contest *models.Contest) error {
	return r.db.Create(contest).Error
}

// GetByID retrieves a contest by its ID.
func (r *ContestRepository) GetByID(id uint) (*models.Contest, error) {
	var contest models.Contest
	err := r.db.First(&contest, id).Error
	if err != nil {
		return nil, err
	}
	return &contest, nil
}

// GetActiveCreatedSince retrieves active contests created at or after
// the given time, used for announcement emails.
func (r *ContestRepository) GetActiveCreatedSince(since time.Time) ([]models.Contest, error) {
	var contests []models.Contest
	err := r.db.
		Where("is_active = ? AND created_at >= ?", true, since).
		Order("created_at ASC").
		Find(&contests).Error
	return contests, err
}

// GetVotingEndedSince retrieves contests that are no longer active and
// whose voting window closed at or after the given time, used for
// result digests.
func (r *ContestRepository) GetVotingEndedSince(since time.Time) ([]models.Contest, error) {
	now := time.Now()
	var contests []models.Contest
	err := r.db.
		Where("is_active = ? AND voting_ends_at >= ? AND voting_ends_at <= ?", false, since, now).
		Order("voting_ends_at ASC").
		Find(&contests).Error
	return contests, err
}

// CountActive returns the number of currently active contests.
func (r *ContestRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.Contest{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}
