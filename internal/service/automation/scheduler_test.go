package automation

import (
	"context"
	"fmt"
	"testing"

	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

type mockSchedulerRepository struct {
	automations map[uint]*models.Automation
}

func newMockSchedulerRepository() *mockSchedulerRepository {
	return &mockSchedulerRepository{automations: make(map[uint]*models.Automation)}
}

func (m *mockSchedulerRepository) GetActive() ([]models.Automation, error) {
	var active []models.Automation
	for _, a := range m.automations {
		if a.IsActive {
			active = append(active, *a)
		}
	}
	return active, nil
}

func (m *mockSchedulerRepository) GetByID(id uint) (*models.Automation, error) {
	if a, ok := m.automations[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("automation %d not found", id)
}

type mockRunner struct {
	executed []uint
}

func (m *mockRunner) Execute(ctx context.Context, automation *models.Automation) error {
	m.executed = append(m.executed, automation.ID)
	return nil
}

func intPtr(n int) *int {
	return &n
}

func TestBuildCronExpression(t *testing.T) {
	tests := []struct {
		name        string
		automation  models.Automation
		expected    string
		recurring   bool
		expectError bool
	}{
		{
			"daily announcement",
			models.Automation{
				TriggerType: models.TriggerContestAnnouncement,
				Schedule:    models.Schedule{Time: "09:00"},
			},
			"0 9 * * *", true, false,
		},
		{
			"daily voting results",
			models.Automation{
				TriggerType: models.TriggerVotingResults,
				Schedule:    models.Schedule{Time: "20:30"},
			},
			"30 20 * * *", true, false,
		},
		{
			"weekly summary defaults to Sunday",
			models.Automation{
				TriggerType: models.TriggerWeeklySummary,
				Schedule:    models.Schedule{Time: "08:15"},
			},
			"15 8 * * 0", true, false,
		},
		{
			"weekly summary explicit day",
			models.Automation{
				TriggerType: models.TriggerWeeklySummary,
				Schedule:    models.Schedule{Time: "08:15", DayOfWeek: intPtr(3)},
			},
			"15 8 * * 3", true, false,
		},
		{
			"weekly summary invalid day",
			models.Automation{
				TriggerType: models.TriggerWeeklySummary,
				Schedule:    models.Schedule{Time: "08:15", DayOfWeek: intPtr(7)},
			},
			"", false, true,
		},
		{
			"monthly drawing",
			models.Automation{
				TriggerType: models.TriggerMonthlyDrawingPro,
				Schedule:    models.Schedule{Time: "12:00"},
				Drawing:     models.DrawingSettings{DrawingDate: intPtr(1)},
			},
			"0 12 1 * *", true, false,
		},
		{
			"monthly drawing missing date",
			models.Automation{
				TriggerType: models.TriggerMonthlyDrawingLite,
				Schedule:    models.Schedule{Time: "12:00"},
			},
			"", false, true,
		},
		{
			"monthly drawing invalid date",
			models.Automation{
				TriggerType: models.TriggerMonthlyDrawingChamp,
				Schedule:    models.Schedule{Time: "12:00"},
				Drawing:     models.DrawingSettings{DrawingDate: intPtr(32)},
			},
			"", false, true,
		},
		{
			"invalid time format",
			models.Automation{
				TriggerType: models.TriggerContestAnnouncement,
				Schedule:    models.Schedule{Time: "9am"},
			},
			"", false, true,
		},
		{
			"missing time",
			models.Automation{
				TriggerType: models.TriggerContestAnnouncement,
			},
			"", false, true,
		},
		{
			"hour out of range",
			models.Automation{
				TriggerType: models.TriggerVotingResults,
				Schedule:    models.Schedule{Time: "24:00"},
			},
			"", false, true,
		},
		{
			"winner reward is event-only",
			models.Automation{TriggerType: models.TriggerWinnerReward},
			"", false, false,
		},
		{
			"admin broadcast is event-only",
			models.Automation{TriggerType: models.TriggerAdminBroadcast},
			"", false, false,
		},
		{
			"comment feedback is event-only",
			models.Automation{TriggerType: models.TriggerCommentFeedback},
			"", false, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, recurring, err := buildCronExpression(&tt.automation)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if recurring != tt.recurring {
				t.Errorf("Expected recurring=%v, got %v", tt.recurring, recurring)
			}
			if expr != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, expr)
			}
		})
	}
}

func TestScheduleAutomation_RescheduleIsIdempotent(t *testing.T) {
	repo := newMockSchedulerRepository()
	scheduler := NewSchedulerWithInterfaces(repo, &mockRunner{}, "UTC", logger.Nop())
	defer scheduler.StopAll()

	automation := &models.Automation{
		ID:          1,
		IsActive:    true,
		TriggerType: models.TriggerContestAnnouncement,
		Schedule:    models.Schedule{Time: "09:00"},
	}

	if err := scheduler.ScheduleAutomation(automation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := scheduler.ScheduleAutomation(automation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if count := scheduler.ScheduledCount(); count != 1 {
		t.Errorf("Expected 1 scheduled trigger, got %d", count)
	}
}

func TestScheduleAutomation_EventOnlyRegistersNothing(t *testing.T) {
	repo := newMockSchedulerRepository()
	scheduler := NewSchedulerWithInterfaces(repo, &mockRunner{}, "UTC", logger.Nop())
	defer scheduler.StopAll()

	automation := &models.Automation{ID: 2, IsActive: true, TriggerType: models.TriggerWinnerReward}
	if err := scheduler.ScheduleAutomation(automation); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if count := scheduler.ScheduledCount(); count != 0 {
		t.Errorf("Expected 0 scheduled triggers, got %d", count)
	}
}

func TestStart_MalformedConfigDoesNotBlockOthers(t *testing.T) {
	repo := newMockSchedulerRepository()
	repo.automations[1] = &models.Automation{
		ID:          1,
		IsActive:    true,
		TriggerType: models.TriggerContestAnnouncement,
		Schedule:    models.Schedule{Time: "not-a-time"},
	}
	repo.automations[2] = &models.Automation{
		ID:          2,
		IsActive:    true,
		TriggerType: models.TriggerVotingResults,
		Schedule:    models.Schedule{Time: "20:00"},
	}

	scheduler := NewSchedulerWithInterfaces(repo, &mockRunner{}, "UTC", logger.Nop())
	defer scheduler.StopAll()

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if count := scheduler.ScheduledCount(); count != 1 {
		t.Errorf("Expected 1 scheduled trigger, got %d", count)
	}
}

func TestUpdateAutomation_DeactivationStopsTrigger(t *testing.T) {
	repo := newMockSchedulerRepository()
	repo.automations[1] = &models.Automation{
		ID:          1,
		IsActive:    true,
		TriggerType: models.TriggerWeeklySummary,
		Schedule:    models.Schedule{Time: "08:00"},
	}

	scheduler := NewSchedulerWithInterfaces(repo, &mockRunner{}, "UTC", logger.Nop())
	defer scheduler.StopAll()

	if err := scheduler.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count := scheduler.ScheduledCount(); count != 1 {
		t.Fatalf("Expected 1 scheduled trigger, got %d", count)
	}

	repo.automations[1].IsActive = false
	if err := scheduler.UpdateAutomation(1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if count := scheduler.ScheduledCount(); count != 0 {
		t.Errorf("Expected 0 scheduled triggers, got %d", count)
	}
}

func TestFormatOrdinal(t *testing.T) {
	tests := []struct {
		n        int
		expected string
	}{
		{1, "1st"},
		{2, "2nd"},
		{3, "3rd"},
		{4, "4th"},
		{10, "10th"},
		{11, "11th"},
		{12, "12th"},
		{13, "13th"},
		{21, "21st"},
		{22, "22nd"},
		{23, "23rd"},
		{100, "100th"},
		{101, "101st"},
		{111, "111th"},
		{112, "112th"},
		{113, "113th"},
		{121, "121st"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatOrdinal(tt.n); got != tt.expected {
				t.Errorf("FormatOrdinal(%d) = %q, expected %q", tt.n, got, tt.expected)
			}
		})
	}
}
