package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"github.com/colorcompete/colorcompete-backend/internal/config"
	"github.com/colorcompete/colorcompete-backend/internal/email"
	"github.com/colorcompete/colorcompete-backend/internal/giftcard"
	prommetrics "github.com/colorcompete/colorcompete-backend/internal/metrics"
	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/internal/repository"
	"github.com/colorcompete/colorcompete-backend/internal/service/templates"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// AutomationRepository is the config write surface handlers use for the
// post-run bookkeeping (lastTriggered, totalSent).
type AutomationRepository interface {
	GetActiveByTriggerType(triggerType string) (*models.Automation, error)
	MarkTriggered(id uint, sentCount int) error
}

// ContestRepository interface for contest reads.
type ContestRepository interface {
	GetActiveCreatedSince(since time.Time) ([]models.Contest, error)
	GetVotingEndedSince(since time.Time) ([]models.Contest, error)
	CountActive() (int64, error)
}

// UserRepository interface for user reads.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	ListSubscribed() ([]models.User, error)
	CountCreatedSince(since time.Time) (int64, error)
}

// SubmissionRepository interface for submission reads.
type SubmissionRepository interface {
	GetRankedByContest(contestID uint) ([]models.Submission, error)
	GetByUserSince(userID uint, since time.Time) ([]models.Submission, error)
	CountSince(since time.Time) (int64, error)
	TotalVotesForUser(userID uint) (int64, error)
}

// SubscriptionRepository interface for drawing eligibility reads.
type SubscriptionRepository interface {
	GetEligibleForDrawing(tier string, month, year int) ([]models.Subscription, error)
}

// DrawingRepository interface for monthly drawing records.
type DrawingRepository interface {
	Create(drawing *models.MonthlyDrawing) error
	Update(drawing *models.MonthlyDrawing) error
	GetByPeriod(month, year int, tier string) (*models.MonthlyDrawing, error)
	HasCompleted(month, year int, tier string) (bool, error)
}

// EmailLogRepository interface for delivery logging.
type EmailLogRepository interface {
	Record(log *models.EmailLog) error
}

// PeriodLock serializes drawing runs for one period.
type PeriodLock interface {
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}

// Executor runs trigger-specific automation logic. Fan-out loops are
// sequential: one recipient is awaited before the next, which keeps the
// totalSent accounting simple and the email provider happy.
type Executor struct {
	automationRepo   AutomationRepository
	contestRepo      ContestRepository
	userRepo         UserRepository
	submissionRepo   SubmissionRepository
	subscriptionRepo SubscriptionRepository
	drawingRepo      DrawingRepository
	emailLogRepo     EmailLogRepository
	emailClient      email.Sender
	giftCards        giftcard.Sender
	lock             PeriodLock
	baseURL          string
	sendDelay        time.Duration
	log              *logger.Logger

	// Injectable for deterministic tests.
	now      func() time.Time
	randIntN func(n int) int
}

// Deps bundles the executor's collaborators.
type Deps struct {
	AutomationRepo   AutomationRepository
	ContestRepo      ContestRepository
	UserRepo         UserRepository
	SubmissionRepo   SubmissionRepository
	SubscriptionRepo SubscriptionRepository
	DrawingRepo      DrawingRepository
	EmailLogRepo     EmailLogRepository
	EmailClient      email.Sender
	GiftCards        giftcard.Sender
	Lock             PeriodLock
}

// NewExecutor creates a new automation executor from concrete repositories.
func NewExecutor(
	db *ExecutorRepos,
	emailClient email.Sender,
	giftCards giftcard.Sender,
	lock PeriodLock,
	appCfg *config.AppConfig,
	schedCfg *config.SchedulerConfig,
	log *logger.Logger,
) *Executor {
	return NewExecutorWithInterfaces(Deps{
		AutomationRepo:   db.Automations,
		ContestRepo:      db.Contests,
		UserRepo:         db.Users,
		SubmissionRepo:   db.Submissions,
		SubscriptionRepo: db.Subscriptions,
		DrawingRepo:      db.Drawings,
		EmailLogRepo:     db.EmailLogs,
		EmailClient:      emailClient,
		GiftCards:        giftCards,
		Lock:             lock,
	}, appCfg.BaseURL, schedCfg.SendDelay(), log)
}

// ExecutorRepos groups the concrete repositories the executor reads and writes.
type ExecutorRepos struct {
	Automations   *repository.AutomationRepository
	Contests      *repository.ContestRepository
	Users         *repository.UserRepository
	Submissions   *repository.SubmissionRepository
	Subscriptions *repository.SubscriptionRepository
	Drawings      *repository.DrawingRepository
	EmailLogs     *repository.EmailLogRepository
}

// NewExecutorWithInterfaces creates a new executor with interface dependencies (useful for testing).
func NewExecutorWithInterfaces(deps Deps, baseURL string, sendDelay time.Duration, log *logger.Logger) *Executor {
	return &Executor{
		automationRepo:   deps.AutomationRepo,
		contestRepo:      deps.ContestRepo,
		userRepo:         deps.UserRepo,
		submissionRepo:   deps.SubmissionRepo,
		subscriptionRepo: deps.SubscriptionRepo,
		drawingRepo:      deps.DrawingRepo,
		emailLogRepo:     deps.EmailLogRepo,
		emailClient:      deps.EmailClient,
		giftCards:        deps.GiftCards,
		lock:             deps.Lock,
		baseURL:          baseURL,
		sendDelay:        sendDelay,
		log:              log,
		now:              time.Now,
		randIntN:         rand.IntN,
	}
}

// Execute dispatches one automation firing to its handler and, on
// success, records lastTriggered and the number of emails dispatched.
func (e *Executor) Execute(ctx context.Context, automation *models.Automation) error {
	start := time.Now()
	defer func() {
		prommetrics.ObserveAutomationDuration(automation.TriggerType, time.Since(start).Seconds())
	}()

	e.log.Info().
		Uint("automation_id", automation.ID).
		Str("trigger", automation.TriggerType).
		Msg("Running automation")

	var (
		sent int
		err  error
	)

	switch automation.TriggerType {
	case models.TriggerContestAnnouncement:
		sent, err = e.runContestAnnouncements(ctx, automation)
	case models.TriggerVotingResults:
		sent, err = e.runVotingResults(ctx, automation)
	case models.TriggerWeeklySummary:
		sent, err = e.runWeeklySummary(ctx, automation)
	case models.TriggerMonthlyDrawingLite, models.TriggerMonthlyDrawingPro, models.TriggerMonthlyDrawingChamp:
		sent, err = e.RunMonthlyDrawing(ctx, automation)
	default:
		e.log.Debug().
			Str("trigger", automation.TriggerType).
			Msg("Event-based trigger has no scheduled handler")
		return nil
	}

	if err != nil {
		prommetrics.RecordAutomationRun(automation.TriggerType, "error")
		return err
	}

	prommetrics.RecordAutomationRun(automation.TriggerType, "success")
	prommetrics.SetSchedulerLastRun(automation.TriggerType)

	if err := e.automationRepo.MarkTriggered(automation.ID, sent); err != nil {
		e.log.Error().
			Err(err).
			Uint("automation_id", automation.ID).
			Msg("Failed to record automation run")
	}

	e.log.Info().
		Uint("automation_id", automation.ID).
		Str("trigger", automation.TriggerType).
		Int("emails_sent", sent).
		Dur("duration", time.Since(start)).
		Msg("Automation completed")

	return nil
}

// runContestAnnouncements fans an announcement out to every subscribed
// user for each active contest created in the last 24 hours.
func (e *Executor) runContestAnnouncements(ctx context.Context, automation *models.Automation) (int, error) {
	since := e.now().Add(-24 * time.Hour)

	contests, err := e.contestRepo.GetActiveCreatedSince(since)
	if err != nil {
		return 0, fmt.Errorf("failed to find new contests: %w", err)
	}
	if len(contests) == 0 {
		e.log.Debug().Msg("No new contests to announce")
		return 0, nil
	}

	users, err := e.userRepo.ListSubscribed()
	if err != nil {
		return 0, fmt.Errorf("failed to list recipients: %w", err)
	}

	sent := 0
	for i := range contests {
		contest := &contests[i]
		for j := range users {
			user := &users[j]
			vars := map[string]interface{}{
				"first_name":      user.Name,
				"contest_title":   contest.Title,
				"contest_url":     fmt.Sprintf("%s/contests/%d", e.baseURL, contest.ID),
				"line_art_url":    contest.LineArtURL,
				"dashboard_url":   e.baseURL + "/dashboard",
				"unsubscribe_url": e.unsubscribeURL(user),
			}
			if e.send(ctx, automation, &automation.Template, user.Email, user.Name, vars) {
				sent++
			}
		}
	}

	return sent, nil
}

// runVotingResults emails every participant of each contest whose
// voting window closed in the last 24 hours a personalized results
// digest.
func (e *Executor) runVotingResults(ctx context.Context, automation *models.Automation) (int, error) {
	since := e.now().Add(-24 * time.Hour)

	contests, err := e.contestRepo.GetVotingEndedSince(since)
	if err != nil {
		return 0, fmt.Errorf("failed to find closed contests: %w", err)
	}

	sent := 0
	for i := range contests {
		contest := &contests[i]

		ranked, err := e.submissionRepo.GetRankedByContest(contest.ID)
		if err != nil {
			e.log.Error().
				Err(err).
				Uint("contest_id", contest.ID).
				Msg("Failed to load contest submissions")
			continue
		}

		var winners []map[string]interface{}
		for rank, sub := range ranked {
			if sub.IsWinner {
				winners = append(winners, map[string]interface{}{
					"rank":  FormatOrdinal(rank + 1),
					"name":  sub.User.Name,
					"votes": sub.Votes,
				})
			}
		}
		if len(winners) == 0 {
			continue
		}

		// A participant's rank is their best submission's position in
		// the votes-descending ordering.
		type placement struct {
			rank     int
			isWinner bool
		}
		placements := make(map[uint]placement)
		recipients := make([]*models.User, 0, len(ranked))
		for rank := range ranked {
			sub := &ranked[rank]
			if existing, ok := placements[sub.UserID]; ok {
				if sub.IsWinner && !existing.isWinner {
					existing.isWinner = true
					placements[sub.UserID] = existing
				}
				continue
			}
			placements[sub.UserID] = placement{rank: rank + 1, isWinner: sub.IsWinner}
			recipients = append(recipients, &sub.User)
		}

		for _, user := range recipients {
			if !user.WantsEmail() {
				continue
			}
			p := placements[user.ID]
			vars := map[string]interface{}{
				"first_name":      user.Name,
				"contest_title":   contest.Title,
				"winners":         winners,
				"is_winner":       p.isWinner,
				"rank":            FormatOrdinal(p.rank),
				"contest_url":     fmt.Sprintf("%s/contests/%d", e.baseURL, contest.ID),
				"unsubscribe_url": e.unsubscribeURL(user),
			}
			if e.send(ctx, automation, &automation.Template, user.Email, user.Name, vars) {
				sent++
			}
		}
	}

	return sent, nil
}

// runWeeklySummary sends every subscribed user a digest of their
// trailing-7-day activity plus platform-wide numbers.
func (e *Executor) runWeeklySummary(ctx context.Context, automation *models.Automation) (int, error) {
	weekAgo := e.now().Add(-7 * 24 * time.Hour)

	users, err := e.userRepo.ListSubscribed()
	if err != nil {
		return 0, fmt.Errorf("failed to list recipients: %w", err)
	}

	activeContests, err := e.contestRepo.CountActive()
	if err != nil {
		return 0, fmt.Errorf("failed to count active contests: %w", err)
	}
	newMembers, err := e.userRepo.CountCreatedSince(weekAgo)
	if err != nil {
		return 0, fmt.Errorf("failed to count new members: %w", err)
	}
	weekSubmissions, err := e.submissionRepo.CountSince(weekAgo)
	if err != nil {
		return 0, fmt.Errorf("failed to count weekly submissions: %w", err)
	}

	sent := 0
	for i := range users {
		user := &users[i]

		submissions, err := e.submissionRepo.GetByUserSince(user.ID, weekAgo)
		if err != nil {
			e.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Msg("Failed to load weekly submissions")
			continue
		}

		wins := 0
		votes := 0
		for _, sub := range submissions {
			if sub.IsWinner {
				wins++
			}
			votes += sub.Votes
		}

		lifetimeVotes, err := e.submissionRepo.TotalVotesForUser(user.ID)
		if err != nil {
			e.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Msg("Failed to load lifetime votes")
			continue
		}

		vars := map[string]interface{}{
			"first_name":       user.Name,
			"submission_count": len(submissions),
			"win_count":        wins,
			"vote_count":       votes,
			"lifetime_votes":   lifetimeVotes,
			"active_contests":  activeContests,
			"new_members":      newMembers,
			"week_submissions": weekSubmissions,
			"has_submissions":  len(submissions) > 0,
			"dashboard_url":    e.baseURL + "/dashboard",
			"unsubscribe_url":  e.unsubscribeURL(user),
		}
		if e.send(ctx, automation, &automation.Template, user.Email, user.Name, vars) {
			sent++
		}
	}

	return sent, nil
}

// SendWinnerReward sends the contest winner a gift card and, only after
// the card is fulfilled, a congratulations email. Invoked by contest
// close-out logic, not by the scheduler. Failures are logged, not
// retried.
func (e *Executor) SendWinnerReward(ctx context.Context, contest *models.Contest, winnerID uint) error {
	automation, err := e.automationRepo.GetActiveByTriggerType(models.TriggerWinnerReward)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.log.Debug().Msg("No winner reward automation configured")
			return nil
		}
		return fmt.Errorf("failed to load winner reward automation: %w", err)
	}

	user, err := e.userRepo.GetByID(winnerID)
	if err != nil {
		return fmt.Errorf("failed to load winner: %w", err)
	}
	if user.Email == "" {
		e.log.Warn().Uint("user_id", winnerID).Msg("Winner has no email, skipping reward")
		return nil
	}

	amount := automation.Reward.GiftCardAmount
	if amount <= 0 {
		amount = 25
	}

	card, err := e.giftCards.Send(ctx, &giftcard.Request{
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		Amount:         amount,
		Message:        automation.Reward.GiftCardMessage,
		Reference:      fmt.Sprintf("contest:%d:winner:%d", contest.ID, winnerID),
	})
	if err != nil {
		prommetrics.RecordGiftCardOrdered("winner_reward", "error")
		e.log.Error().
			Err(err).
			Uint("user_id", winnerID).
			Msg("Failed to send winner gift card")
		return err
	}
	prommetrics.RecordGiftCardOrdered("winner_reward", "success")

	vars := map[string]interface{}{
		"first_name":     user.Name,
		"contest_title":  contest.Title,
		"prize_amount":   amount,
		"gift_card_code": card.Code,
		"redeem_url":     card.RedeemURL,
		"dashboard_url":  e.baseURL + "/dashboard",
	}
	if e.send(ctx, automation, &automation.Template, user.Email, user.Name, vars) {
		if err := e.automationRepo.MarkTriggered(automation.ID, 1); err != nil {
			e.log.Error().Err(err).Uint("automation_id", automation.ID).Msg("Failed to record automation run")
		}
	}

	return nil
}

// send renders and dispatches one email, recording the attempt in the
// delivery log and metrics. Returns whether the send succeeded.
func (e *Executor) send(
	ctx context.Context,
	automation *models.Automation,
	template *models.EmailTemplate,
	to, toName string,
	vars map[string]interface{},
) bool {
	subject := templates.Render(template.Subject, vars)
	msg := &email.Message{
		To:          to,
		ToName:      toName,
		Subject:     subject,
		HTMLContent: templates.Render(template.HTMLContent, vars),
	}
	if template.TextContent != "" {
		msg.TextContent = templates.Render(template.TextContent, vars)
	}

	result, err := e.emailClient.Send(ctx, msg)

	entry := &models.EmailLog{
		AutomationID: &automation.ID,
		Recipient:    to,
		Subject:      subject,
	}
	if err != nil {
		entry.Status = models.EmailStatusFailed
		entry.Error = err.Error()
		prommetrics.RecordEmailSent(automation.TriggerType, "error")
		e.log.Error().
			Err(err).
			Str("to", to).
			Str("trigger", automation.TriggerType).
			Msg("Failed to send email")
	} else {
		entry.Status = models.EmailStatusSent
		entry.MessageID = result.MessageID
		prommetrics.RecordEmailSent(automation.TriggerType, "success")
	}

	if logErr := e.emailLogRepo.Record(entry); logErr != nil {
		e.log.Error().Err(logErr).Str("to", to).Msg("Failed to record email log")
	}

	return err == nil
}

func (e *Executor) unsubscribeURL(user *models.User) string {
	return fmt.Sprintf("%s/unsubscribe?token=%s", e.baseURL, user.UnsubscribeToken)
}

// ordinal suffixes keyed by n % 100, falling back to n % 10. The teens
// are special-cased: 11th, 12th, 13th.
var (
	ordinalHundreds = map[int]string{11: "th", 12: "th", 13: "th"}
	ordinalTens     = map[int]string{1: "st", 2: "nd", 3: "rd"}
)

// FormatOrdinal renders a 1-based rank as "1st", "2nd", "3rd", "11th",
// "21st" and so on.
func FormatOrdinal(n int) string {
	suffix, ok := ordinalHundreds[n%100]
	if !ok {
		suffix, ok = ordinalTens[n%10]
		if !ok {
			suffix = "th"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
