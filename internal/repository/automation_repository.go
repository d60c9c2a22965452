package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// AutomationRepository handles automation config database operations.
type AutomationRepository struct {
	db *DB
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(db *DB) *AutomationRepository {
	return &AutomationRepository{db: db}
}

// Create creates a new automation in the database.
func (r *AutomationRepository) Create(automation *models.Automation) error {
	return r.db.Create(automation).Error
}

// GetByID retrieves an automation by its ID.
func (r *AutomationRepository) GetByID(id uint) (*models.Automation, error) {
	var automation models.Automation
	err := r.db.First(&automation, id).Error
	if err != nil {
		return nil, err
	}
	return &automation, nil
}

// GetAll retrieves all automations.
func (r *AutomationRepository) GetAll() ([]models.Automation, error) {
	var automations []models.Automation
	err := r.db.Order("id ASC").Find(&automations).Error
	return automations, err
}

// GetActive retrieves all active automations, the set loaded into the
// scheduler at startup.
func (r *AutomationRepository) GetActive() ([]models.Automation, error) {
	var automations []models.Automation
	err := r.db.
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&automations).Error
	return automations, err
}

// GetActiveByTriggerType retrieves the first active automation for a
// trigger type, used by event-driven triggers like winner_reward.
func (r *AutomationRepository) GetActiveByTriggerType(triggerType string) (*models.Automation, error) {
	var automation models.Automation
	err := r.db.
		Where("trigger_type = ? AND is_active = ?", triggerType, true).
		First(&automation).Error
	if err != nil {
		return nil, err
	}
	return &automation, nil
}

// Update updates an existing automation in the database.
func (r *AutomationRepository) Update(automation *models.Automation) error {
	return r.db.Save(automation).Error
}

// MarkTriggered records a successful run: sets last_triggered to now
// and adds the number of emails dispatched to total_sent.
func (r *AutomationRepository) MarkTriggered(id uint, sentCount int) error {
	now := time.Now()
	return r.db.Model(&models.Automation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_triggered": now,
			"total_sent":     gorm.Expr("total_sent + ?", sentCount),
		}).Error
}
