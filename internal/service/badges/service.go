// Package badges provides badge evaluation and awarding services.
package badges

import (
	"context"
	"encoding/json"
	"time"

	prommetrics "github.com/colorcompete/colorcompete-backend/internal/metrics"
	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/internal/repository"
	"github.com/colorcompete/colorcompete-backend/internal/service/stats"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetActive() ([]models.Badge, error)
	GetByName(name string) (*models.Badge, error)
	Create(badge *models.Badge) error
	HasUserEarnedBadge(userID, badgeID uint) (bool, error)
	Award(userID, badgeID uint, metadata json.RawMessage) (*models.UserBadge, bool, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
	GetBadgeHoldersCount(badgeID uint) (int64, error)
}

// StatsAggregator interface for snapshot computation.
type StatsAggregator interface {
	ComputeStats(ctx context.Context, userID uint) *stats.Snapshot
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo  BadgeRepository
	aggregator StatsAggregator
	log        *logger.Logger
}

// NewService creates a new badge service.
func NewService(badgeRepo *repository.BadgeRepository, aggregator *stats.Aggregator, log *logger.Logger) *Service {
	return &Service{
		badgeRepo:  badgeRepo,
		aggregator: aggregator,
		log:        log,
	}
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(badgeRepo BadgeRepository, aggregator StatsAggregator, log *logger.Logger) *Service {
	return &Service{
		badgeRepo:  badgeRepo,
		aggregator: aggregator,
		log:        log,
	}
}

// EvaluateAndAward checks every active badge against the user's current
// stats and awards the ones newly qualified for. Callers (submission and
// contest close-out handlers) fire and forget this; per-badge failures
// are logged and never abort the remaining badges.
func (s *Service) EvaluateAndAward(ctx context.Context, userID uint, eventType string) []models.Badge {
	s.log.Debug().
		Uint("user_id", userID).
		Str("event", eventType).
		Msg("Evaluating badges for user")

	badges, err := s.badgeRepo.GetActive()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load badge catalog")
		return nil
	}

	snapshot := s.aggregator.ComputeStats(ctx, userID)

	var newlyEarned []models.Badge

	for _, badge := range badges {
		// Cheap pre-check; the unique index in Award is the real guard.
		hasEarned, err := s.badgeRepo.HasUserEarnedBadge(userID, badge.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Uint("badge_id", badge.ID).
				Msg("Failed to check if user has badge")
			continue
		}
		if hasEarned {
			continue
		}

		criteria, err := parseCriteria(&badge)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("badge", badge.Name).
				Msg("Failed to parse badge criteria")
			continue
		}

		qualifies, err := checkCriteria(criteria, snapshot)
		if err != nil {
			s.log.Error().
				Err(err).
				Str("badge", badge.Name).
				Msg("Failed to evaluate badge criteria")
			continue
		}
		if !qualifies {
			continue
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"event":     eventType,
			"earned_at": time.Now().Format(time.RFC3339),
		})

		created, err := s.Award(ctx, userID, &badge, metadata)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge", badge.Name).
				Msg("Failed to award badge")
			continue
		}
		if !created {
			// Lost the race to a concurrent evaluation; not an award.
			continue
		}

		newlyEarned = append(newlyEarned, badge)
		s.log.Info().
			Uint("user_id", userID).
			Str("badge", badge.Name).
			Msg("Badge awarded")
	}

	return newlyEarned
}

// Award persists one badge grant. Unlike evaluation, write errors are
// returned to the caller: a badge silently lost to a failed write should
// surface for investigation. Returns false when the grant already
// existed.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) Award(ctx context.Context, userID uint, badge *models.Badge, metadata json.RawMessage) (bool, error) {
	_, created, err := s.badgeRepo.Award(userID, badge.ID, metadata)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	prommetrics.RecordBadgeAwarded(badge.Name, badge.Category)

	count, _ := s.badgeRepo.GetBadgeHoldersCount(badge.ID)
	prommetrics.SetActiveBadgeHolders(badge.Name, int(count))

	return true, nil
}

// GetUserBadges retrieves all badges earned by a user.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(userID)
}

// GetCatalog retrieves all badges eligible for evaluation.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) GetCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetActive()
}
