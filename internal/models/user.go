// Package models defines domain models for the ColorCompete platform.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered ColorCompete member.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name             string    `gorm:"size:255" json:"name"`
	EmailOptOut      bool      `gorm:"default:false" json:"email_opt_out"`
	RewardOptIn      bool      `gorm:"default:true" json:"reward_opt_in"` // allows drawing / gift card notifications
	UnsubscribeToken string    `gorm:"index;size:64" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an unsubscribe token so every user can be linked
// from campaign email without exposing their numeric id.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UnsubscribeToken == "" {
		u.UnsubscribeToken = uuid.NewString()
	}
	return nil
}

// WantsEmail reports whether the user can receive campaign email.
func (u *User) WantsEmail() bool {
	return u.Email != "" && !u.EmailOptOut
}

// Subscription tiers.
const (
	TierLite  = "lite"
	TierPro   = "pro"
	TierChamp = "champ"
)

// Subscription represents a user's paid plan for a given calendar month.
type Subscription struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	User                 User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tier                 string    `gorm:"size:20;not null;index" json:"tier"` // 'lite', 'pro', 'champ'
	Month                int       `gorm:"not null" json:"month"`
	Year                 int       `gorm:"not null" json:"year"`
	RemainingSubmissions int       `gorm:"default:0" json:"remaining_submissions"`
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName specifies the table name for Subscription model.
func (Subscription) TableName() string {
	return "subscriptions"
}
