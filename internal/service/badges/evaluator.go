package badges

import (
	"encoding/json"
	"fmt"

	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/internal/service/stats"
)

// parseCriteria decodes a badge's stored criteria JSON.
func parseCriteria(badge *models.Badge) (*models.BadgeCriteria, error) {
	var criteria models.BadgeCriteria
	if err := json.Unmarshal(badge.Criteria, &criteria); err != nil {
		return nil, fmt.Errorf("failed to parse badge criteria: %w", err)
	}
	return &criteria, nil
}

// checkCriteria evaluates badge criteria against a stats snapshot.
// Thresholds are inclusive. Unrecognized criteria types are an error so
// the caller can log them; they never qualify.
func checkCriteria(criteria *models.BadgeCriteria, snapshot *stats.Snapshot) (bool, error) {
	switch criteria.Type {
	case models.CriteriaWins:
		return snapshot.TotalWins >= criteria.Threshold, nil
	case models.CriteriaConsecutiveWins:
		return snapshot.ConsecutiveWins >= criteria.Threshold, nil
	case models.CriteriaVotes, models.CriteriaTotalVotes:
		return snapshot.TotalVotes >= criteria.Threshold, nil
	case models.CriteriaTopVotes:
		// Threshold is ignored: holding the top vote count once is enough.
		return snapshot.HasWonMostVotes, nil
	case models.CriteriaSubmissions:
		return snapshot.TotalSubmissions >= criteria.Threshold, nil
	case models.CriteriaConsecutiveSubmissions, models.CriteriaSubmissionStreak:
		return snapshot.ConsecutiveSubmissionDays >= criteria.Threshold, nil
	default:
		return false, fmt.Errorf("unsupported criteria type: %s", criteria.Type)
	}
}
