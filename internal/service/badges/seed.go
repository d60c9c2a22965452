package badges

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Badges []catalogEntry `yaml:"badges"`
}

type catalogEntry struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Icon        string          `yaml:"icon"`
	Color       string          `yaml:"color"`
	Category    string          `yaml:"category"`
	Criteria    catalogCriteria `yaml:"criteria"`
}

type catalogCriteria struct {
	Type      string `yaml:"type"`
	Threshold int    `yaml:"threshold"`
	Timeframe string `yaml:"timeframe"`
}

// SeedDefaults inserts the default badge catalog, looked up by name, on
// every boot. Existing badges are left untouched so admin edits survive
// restarts.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) SeedDefaults(ctx context.Context) error {
	var catalog catalogFile
	if err := yaml.Unmarshal(defaultCatalog, &catalog); err != nil {
		return fmt.Errorf("failed to parse default badge catalog: %w", err)
	}

	seeded := 0
	for _, entry := range catalog.Badges {
		_, err := s.badgeRepo.GetByName(entry.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up badge %q: %w", entry.Name, err)
		}

		criteria, err := json.Marshal(models.BadgeCriteria{
			Type:      entry.Criteria.Type,
			Threshold: entry.Criteria.Threshold,
			Timeframe: entry.Criteria.Timeframe,
		})
		if err != nil {
			return fmt.Errorf("failed to encode criteria for badge %q: %w", entry.Name, err)
		}

		badge := &models.Badge{
			Name:        entry.Name,
			Description: entry.Description,
			Icon:        entry.Icon,
			Color:       entry.Color,
			Category:    entry.Category,
			Criteria:    criteria,
		}
		if err := s.badgeRepo.Create(badge); err != nil {
			return fmt.Errorf("failed to seed badge %q: %w", entry.Name, err)
		}
		seeded++
	}

	if seeded > 0 {
		s.log.Info().Int("count", seeded).Msg("Seeded default badges")
	}

	return nil
}
