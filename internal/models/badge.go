package models

import (
	"encoding/json"
	"time"
)

// Badge criteria types.
const (
	CriteriaWins                   = "wins"
	CriteriaConsecutiveWins        = "consecutive_wins"
	CriteriaVotes                  = "votes"
	CriteriaTotalVotes             = "total_votes"
	CriteriaTopVotes               = "top_votes"
	CriteriaSubmissions            = "submissions"
	CriteriaConsecutiveSubmissions = "consecutive_submissions"
	CriteriaSubmissionStreak       = "submission_streak"
)

// Badge represents an achievement that can be earned by users.
type Badge struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Icon        string          `gorm:"size:50" json:"icon"`
	Color       string          `gorm:"size:20" json:"color"`
	Category    string          `gorm:"size:50" json:"category"` // 'win', 'achievement', 'participation', 'milestone'
	Criteria    json.RawMessage `gorm:"type:jsonb" json:"criteria"`
	IsActive    *bool           `json:"is_active"` // nil is treated as active
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// Active reports whether the badge should be evaluated. A missing flag
// counts as active.
func (b *Badge) Active() bool {
	return b.IsActive == nil || *b.IsActive
}

// BadgeCriteria represents the criteria for earning a badge.
// Timeframe is descriptive copy shown to users; it is not enforced.
type BadgeCriteria struct {
	Type      string `json:"type"`
	Threshold int    `json:"threshold"`
	Timeframe string `json:"timeframe,omitempty"`
}

// UserBadge represents a badge earned by a user. The composite unique
// index makes the database the arbiter of the one-grant-per-(user,badge)
// invariant: a duplicate insert fails instead of racing.
type UserBadge struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	User      User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeID   uint            `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge     Badge           `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	Metadata  json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	EarnedAt  time.Time       `gorm:"not null" json:"earned_at"`
	IsVisible bool            `gorm:"default:true" json:"is_visible"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}
