package models

import (
	"time"
)

// Contest represents a daily coloring contest.
type Contest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"not null;size:255" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	LineArtURL   string     `gorm:"type:text" json:"line_art_url"`
	IsActive     bool       `gorm:"default:true;index" json:"is_active"`
	VotingEndsAt *time.Time `gorm:"index" json:"voting_ends_at"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relationships
	Submissions []Submission `gorm:"foreignKey:ContestID" json:"submissions,omitempty"`
}

// TableName specifies the table name for Contest model.
func (Contest) TableName() string {
	return "contests"
}

// Submission represents a colored entry submitted to a contest.
// Submissions are append-only from the engine's point of view: the badge
// and automation subsystems only ever read them.
type Submission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ContestID uint      `gorm:"not null;index" json:"contest_id"`
	Contest   Contest   `gorm:"foreignKey:ContestID" json:"contest,omitempty"`
	ImageURL  string    `gorm:"type:text" json:"image_url"`
	Votes     int       `gorm:"default:0" json:"votes"`
	IsWinner  bool      `gorm:"default:false;index" json:"is_winner"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Submission model.
func (Submission) TableName() string {
	return "submissions"
}
