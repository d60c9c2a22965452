// Package stats computes derived statistics over a user's submission history.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/internal/repository"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// Snapshot holds everything the badge evaluator needs about one user.
// It is recomputed in full on every call and never persisted.
type Snapshot struct {
	TotalSubmissions          int  `json:"total_submissions"`
	TotalWins                 int  `json:"total_wins"`
	ConsecutiveWins           int  `json:"consecutive_wins"` // longest unbroken run of winner-flagged submissions
	TotalVotes                int  `json:"total_votes"`
	ConsecutiveSubmissionDays int  `json:"consecutive_submission_days"` // longest run of adjacent calendar days with a submission
	MostVotesInSingleContest  int  `json:"most_votes_in_single_contest"`
	// HasWonMostVotes treats the winner flag as proof of holding the top
	// vote count; voting close-out sets both, so the proxy holds.
	HasWonMostVotes bool `json:"has_won_most_votes"`
}

// SubmissionRepository is the read side the aggregator depends on.
type SubmissionRepository interface {
	GetByUser(userID uint) ([]models.Submission, error)
}

// Aggregator computes user stats snapshots.
type Aggregator struct {
	submissionRepo SubmissionRepository
	log            *logger.Logger
}

// NewAggregator creates a new stats aggregator.
func NewAggregator(submissionRepo *repository.SubmissionRepository, log *logger.Logger) *Aggregator {
	return &Aggregator{submissionRepo: submissionRepo, log: log}
}

// NewAggregatorWithInterfaces creates a new stats aggregator with interface dependencies (useful for testing).
func NewAggregatorWithInterfaces(submissionRepo SubmissionRepository, log *logger.Logger) *Aggregator {
	return &Aggregator{submissionRepo: submissionRepo, log: log}
}

// ComputeStats derives a full snapshot from the user's submission
// history. A fetch failure is logged and yields a zeroed snapshot so
// badge checking never blocks on a read error.
//
//nolint:revive // ctx reserved for future context-aware operations
func (a *Aggregator) ComputeStats(ctx context.Context, userID uint) *Snapshot {
	snapshot := &Snapshot{}

	submissions, err := a.submissionRepo.GetByUser(userID)
	if err != nil {
		a.log.Error().
			Err(err).
			Uint("user_id", userID).
			Msg("Failed to fetch submission history, returning zeroed snapshot")
		return snapshot
	}

	snapshot.TotalSubmissions = len(submissions)

	// Forward pass: vote totals, win totals, running win streak.
	winStreak := 0
	for _, sub := range submissions {
		snapshot.TotalVotes += sub.Votes
		if sub.Votes > snapshot.MostVotesInSingleContest {
			snapshot.MostVotesInSingleContest = sub.Votes
		}

		if sub.IsWinner {
			snapshot.TotalWins++
			snapshot.HasWonMostVotes = true
			winStreak++
			if winStreak > snapshot.ConsecutiveWins {
				snapshot.ConsecutiveWins = winStreak
			}
		} else {
			winStreak = 0
		}
	}

	snapshot.ConsecutiveSubmissionDays = longestDayStreak(submissions)

	return snapshot
}

// longestDayStreak computes the longest run of adjacent calendar days
// with at least one submission. Multiple submissions on one day
// collapse to a single date.
func longestDayStreak(submissions []models.Submission) int {
	if len(submissions) == 0 {
		return 0
	}

	seen := make(map[time.Time]struct{}, len(submissions))
	for _, sub := range submissions {
		y, m, d := sub.CreatedAt.Date()
		seen[time.Date(y, m, d, 0, 0, 0, 0, time.UTC)] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest := 1
	current := 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}

	return longest
}
