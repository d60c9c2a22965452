// Package automation provides the email automation engine: a scheduler
// that maps persisted automation configs to recurring cron triggers, and
// the trigger-specific handlers the firings execute.
package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/colorcompete/colorcompete-backend/internal/config"
	prommetrics "github.com/colorcompete/colorcompete-backend/internal/metrics"
	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/internal/repository"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// SchedulerRepository is the automation read/write surface the
// scheduler depends on.
type SchedulerRepository interface {
	GetActive() ([]models.Automation, error)
	GetByID(id uint) (*models.Automation, error)
}

// Runner executes one automation firing.
type Runner interface {
	Execute(ctx context.Context, automation *models.Automation) error
}

// Scheduler owns the set of running triggers, one cron instance per
// automation so each can be stopped and rescheduled independently.
type Scheduler struct {
	automationRepo  SchedulerRepository
	runner          Runner
	defaultTimezone string
	log             *logger.Logger

	mu   sync.Mutex
	jobs map[uint]*cron.Cron
}

// NewScheduler creates a new automation scheduler.
func NewScheduler(
	automationRepo *repository.AutomationRepository,
	runner *Executor,
	cfg *config.SchedulerConfig,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		automationRepo:  automationRepo,
		runner:          runner,
		defaultTimezone: cfg.DefaultTimezone,
		log:             log,
		jobs:            make(map[uint]*cron.Cron),
	}
}

// NewSchedulerWithInterfaces creates a new scheduler with interface dependencies (useful for testing).
func NewSchedulerWithInterfaces(
	automationRepo SchedulerRepository,
	runner Runner,
	defaultTimezone string,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		automationRepo:  automationRepo,
		runner:          runner,
		defaultTimezone: defaultTimezone,
		log:             log,
		jobs:            make(map[uint]*cron.Cron),
	}
}

// Start loads every active automation and registers its trigger. One
// malformed config never prevents the others from loading.
func (s *Scheduler) Start() error {
	automations, err := s.automationRepo.GetActive()
	if err != nil {
		return fmt.Errorf("failed to load active automations: %w", err)
	}

	scheduled := 0
	for i := range automations {
		if err := s.ScheduleAutomation(&automations[i]); err != nil {
			s.log.Warn().
				Err(err).
				Uint("automation_id", automations[i].ID).
				Str("trigger", automations[i].TriggerType).
				Msg("Automation not scheduled")
			continue
		}
		scheduled++
	}

	s.mu.Lock()
	registered := len(s.jobs)
	s.mu.Unlock()
	prommetrics.SetScheduledAutomations(registered)

	s.log.Info().
		Int("loaded", len(automations)).
		Int("registered", registered).
		Msg("Automation scheduler started")

	return nil
}

// ScheduleAutomation registers a recurring trigger for one automation.
// An existing trigger under the same id is stopped and replaced, so
// rescheduling is idempotent. Event-only trigger types register nothing.
func (s *Scheduler) ScheduleAutomation(automation *models.Automation) error {
	s.stopJob(automation.ID)

	expr, recurring, err := buildCronExpression(automation)
	if err != nil {
		return err
	}
	if !recurring {
		s.log.Debug().
			Uint("automation_id", automation.ID).
			Str("trigger", automation.TriggerType).
			Msg("Event-based trigger, no recurrence registered")
		return nil
	}

	location := s.loadLocation(automation.Schedule.Timezone)

	id := automation.ID
	c := cron.New(cron.WithLocation(location))
	if _, err := c.AddFunc(expr, func() {
		s.runAutomation(id)
	}); err != nil {
		return fmt.Errorf("failed to register trigger: %w", err)
	}
	c.Start()

	s.mu.Lock()
	s.jobs[id] = c
	count := len(s.jobs)
	s.mu.Unlock()
	prommetrics.SetScheduledAutomations(count)

	s.log.Info().
		Uint("automation_id", automation.ID).
		Str("trigger", automation.TriggerType).
		Str("schedule", expr).
		Str("timezone", location.String()).
		Msg("Automation scheduled")

	return nil
}

// UpdateAutomation re-fetches a changed config and reschedules it when
// active, or stops its trigger when deactivated.
func (s *Scheduler) UpdateAutomation(id uint) error {
	automation, err := s.automationRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to fetch automation %d: %w", id, err)
	}

	if !automation.IsActive {
		s.stopJob(id)
		s.mu.Lock()
		count := len(s.jobs)
		s.mu.Unlock()
		prommetrics.SetScheduledAutomations(count)
		s.log.Info().Uint("automation_id", id).Msg("Automation trigger stopped")
		return nil
	}

	return s.ScheduleAutomation(automation)
}

// StopAll stops every registered trigger. In-flight executions finish;
// only future firings are prevented.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = make(map[uint]*cron.Cron)
	s.mu.Unlock()

	for _, c := range jobs {
		ctx := c.Stop()
		<-ctx.Done()
	}
	prommetrics.SetScheduledAutomations(0)

	s.log.Info().Int("count", len(jobs)).Msg("All automation triggers stopped")
}

// ScheduledCount returns how many triggers are currently registered.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) stopJob(id uint) {
	s.mu.Lock()
	c, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if ok {
		ctx := c.Stop()
		<-ctx.Done()
	}
}

// runAutomation executes one firing. The config is re-fetched so edits
// made since scheduling take effect without a reschedule.
func (s *Scheduler) runAutomation(id uint) {
	automation, err := s.automationRepo.GetByID(id)
	if err != nil {
		s.log.Error().Err(err).Uint("automation_id", id).Msg("Failed to fetch automation for firing")
		return
	}
	if !automation.IsActive {
		s.log.Debug().Uint("automation_id", id).Msg("Automation deactivated since scheduling, skipping firing")
		return
	}

	if err := s.runner.Execute(context.Background(), automation); err != nil {
		s.log.Error().
			Err(err).
			Uint("automation_id", id).
			Str("trigger", automation.TriggerType).
			Msg("Automation execution failed")
	}
}

// loadLocation resolves an automation's timezone with fallback to the
// configured default, then UTC.
func (s *Scheduler) loadLocation(timezone string) *time.Location {
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		s.log.Warn().
			Str("timezone", timezone).
			Msg("Invalid timezone, falling back to default")
		location, err = time.LoadLocation(s.defaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return location
}

// buildCronExpression maps a trigger type and schedule to a cron
// recurrence. Returns recurring=false for event-only trigger types.
func buildCronExpression(automation *models.Automation) (string, bool, error) {
	switch automation.TriggerType {
	case models.TriggerContestAnnouncement, models.TriggerVotingResults:
		minute, hour, err := parseScheduleTime(automation.Schedule.Time)
		if err != nil {
			return "", false, err
		}
		// Every day at the configured time
		return fmt.Sprintf("%d %d * * *", minute, hour), true, nil

	case models.TriggerWeeklySummary:
		minute, hour, err := parseScheduleTime(automation.Schedule.Time)
		if err != nil {
			return "", false, err
		}
		day := 0 // Sunday
		if automation.Schedule.DayOfWeek != nil {
			day = *automation.Schedule.DayOfWeek
		}
		if day < 0 || day > 6 {
			return "", false, fmt.Errorf("invalid day of week %d", day)
		}
		return fmt.Sprintf("%d %d * * %d", minute, hour, day), true, nil

	case models.TriggerMonthlyDrawingLite, models.TriggerMonthlyDrawingPro, models.TriggerMonthlyDrawingChamp:
		minute, hour, err := parseScheduleTime(automation.Schedule.Time)
		if err != nil {
			return "", false, err
		}
		if automation.Drawing.DrawingDate == nil {
			return "", false, fmt.Errorf("monthly drawing requires a drawing date")
		}
		day := *automation.Drawing.DrawingDate
		if day < 1 || day > 31 {
			return "", false, fmt.Errorf("invalid drawing date %d", day)
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, day), true, nil

	default:
		// admin_broadcast, winner_reward, comment_feedback and unknown
		// types fire on events, not on a schedule.
		return "", false, nil
	}
}

// parseScheduleTime parses an "HH:MM" schedule time.
func parseScheduleTime(value string) (minute, hour int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format %q, expected HH:MM", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", parts[1])
	}

	return minute, hour, nil
}
