package repository

import (
	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// SubscriptionRepository handles subscription database operations.
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create creates a new subscription in the database.
func (r *SubscriptionRepository) Create(subscription *models.Subscription) error {
	return r.db.Create(subscription).Error
}

// GetEligibleForDrawing retrieves active subscriptions for a tier and
// period with submission allowance remaining, with the owning user
// preloaded. Users without an email or who opted out of reward
// notifications are filtered out by the caller.
func (r *SubscriptionRepository) GetEligibleForDrawing(tier string, month, year int) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := r.db.
		Where("tier = ? AND month = ? AND year = ? AND is_active = ? AND remaining_submissions > 0",
			tier, month, year, true).
		Preload("User").
		Order("id ASC").
		Find(&subscriptions).Error
	return subscriptions, err
}
