package models

import (
	"encoding/json"
	"time"
)

// Automation trigger types.
const (
	TriggerContestAnnouncement = "contest_announcement"
	TriggerVotingResults       = "voting_results"
	TriggerWeeklySummary       = "weekly_summary"
	TriggerMonthlyDrawingLite  = "monthly_drawing_lite"
	TriggerMonthlyDrawingPro   = "monthly_drawing_pro"
	TriggerMonthlyDrawingChamp = "monthly_drawing_champ"
	TriggerWinnerReward        = "winner_reward"
	TriggerAdminBroadcast      = "admin_broadcast"
	TriggerCommentFeedback     = "comment_feedback"
)

// EmailTemplate holds the raw template text rendered before each send.
type EmailTemplate struct {
	Subject     string `gorm:"size:500" json:"subject"`
	HTMLContent string `gorm:"type:text" json:"html_content"`
	TextContent string `gorm:"type:text" json:"text_content"`
}

// Schedule describes when a recurring automation fires.
type Schedule struct {
	Time      string `gorm:"size:5" json:"time"` // "HH:MM"
	DayOfWeek *int   `json:"day_of_week"`        // 0 = Sunday, weekly triggers only
	Timezone  string `gorm:"size:64" json:"timezone"`
}

// DrawingSettings holds monthly drawing specifics.
type DrawingSettings struct {
	DrawingDate *int `json:"drawing_date"` // day of month the drawing runs
}

// RewardSettings holds gift card configuration for reward triggers.
type RewardSettings struct {
	GiftCardAmount  float64 `json:"gift_card_amount"`
	GiftCardMessage string  `gorm:"type:text" json:"gift_card_message"`
}

// Automation represents a persisted email automation configuration.
// Created and edited by the admin UI; the engine reads it, registers a
// recurring trigger from the schedule, and updates TotalSent and
// LastTriggered after each successful run.
type Automation struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"not null;size:255" json:"name"`
	IsActive    bool          `gorm:"default:true;index" json:"is_active"`
	TriggerType string        `gorm:"not null;size:50;index" json:"trigger_type"`
	Template    EmailTemplate `gorm:"embedded;embeddedPrefix:template_" json:"template"`
	// LoserTemplate is the secondary template sent to non-winning drawing
	// participants.
	LoserTemplate EmailTemplate   `gorm:"embedded;embeddedPrefix:loser_template_" json:"loser_template"`
	Schedule      Schedule        `gorm:"embedded;embeddedPrefix:schedule_" json:"schedule"`
	Drawing       DrawingSettings `gorm:"embedded;embeddedPrefix:drawing_" json:"drawing"`
	Reward        RewardSettings  `gorm:"embedded;embeddedPrefix:reward_" json:"reward"`
	TotalSent     int             `gorm:"default:0" json:"total_sent"`
	LastTriggered *time.Time      `json:"last_triggered"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Automation model.
func (Automation) TableName() string {
	return "automations"
}

// DrawingTier maps a monthly drawing trigger type to its subscription
// tier. Returns "" for non-drawing triggers.
func (a *Automation) DrawingTier() string {
	switch a.TriggerType {
	case TriggerMonthlyDrawingLite:
		return TierLite
	case TriggerMonthlyDrawingPro:
		return TierPro
	case TriggerMonthlyDrawingChamp:
		return TierChamp
	default:
		return ""
	}
}

// DrawingParticipant is a snapshot of one eligible entrant at draw time.
type DrawingParticipant struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// MonthlyDrawing represents one prize drawing for a (month, year, tier)
// period. The composite unique index keeps concurrent trigger firings
// from creating two records for the same period.
type MonthlyDrawing struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	AutomationID      uint            `gorm:"index" json:"automation_id"`
	Month             int             `gorm:"not null;uniqueIndex:idx_drawing_period" json:"month"`
	Year              int             `gorm:"not null;uniqueIndex:idx_drawing_period" json:"year"`
	Tier              string          `gorm:"not null;size:20;uniqueIndex:idx_drawing_period" json:"tier"`
	PrizeAmount       float64         `json:"prize_amount"`
	DrawingDate       time.Time       `json:"drawing_date"`
	Participants      json.RawMessage `gorm:"type:jsonb" json:"participants"` // []DrawingParticipant snapshot
	WinnerUserID      *uint           `json:"winner_user_id"`
	WinnerEmail       string          `gorm:"size:255" json:"winner_email"`
	WinnerName        string          `gorm:"size:255" json:"winner_name"`
	GiftCardID        string          `gorm:"size:100" json:"gift_card_id"`
	GiftCardCode      string          `gorm:"size:100" json:"gift_card_code"`
	GiftCardRedeemURL string          `gorm:"type:text" json:"gift_card_redeem_url"`
	GiftCardSentAt    *time.Time      `json:"gift_card_sent_at"`
	IsCompleted       bool            `gorm:"default:false" json:"is_completed"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for MonthlyDrawing model.
func (MonthlyDrawing) TableName() string {
	return "monthly_drawings"
}

// Email delivery statuses.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog records each outbound send attempt so delivery failures are
// diagnosable without provider-side access.
type EmailLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AutomationID *uint     `gorm:"index" json:"automation_id"`
	Recipient    string    `gorm:"not null;size:255" json:"recipient"`
	Subject      string    `gorm:"size:500" json:"subject"`
	Status       string    `gorm:"size:20;index" json:"status"` // 'sent', 'failed'
	MessageID    string    `gorm:"size:100" json:"message_id"`
	Error        string    `gorm:"type:text" json:"error"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for EmailLog model.
func (EmailLog) TableName() string {
	return "email_logs"
}
