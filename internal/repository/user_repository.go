package repository

import (
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// OptOutByToken flags the user holding an unsubscribe token as opted
// out of campaign email. Returns gorm.ErrRecordNotFound for an unknown
// token.
func (r *UserRepository) OptOutByToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("unsubscribe_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	user.EmailOptOut = true
	if err := r.db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSubscribed retrieves all users with a non-empty email address who
// have not opted out of campaign email.
func (r *UserRepository) ListSubscribed() ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("email <> '' AND email_opt_out = ?", false).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

// CountCreatedSince returns the number of users who joined at or after
// the given time.
func (r *UserRepository) CountCreatedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}
