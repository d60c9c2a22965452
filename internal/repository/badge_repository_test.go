package repository

import (
	"encoding/json"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the same error
// translation the production connection uses, so unique index violations
// surface as gorm.ErrDuplicatedKey here too.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	testDB := &DB{db}
	if err := testDB.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return testDB
}

func createTestUser(t *testing.T, db *DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Email:       name + "@example.com",
		Name:        name,
		RewardOptIn: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestBadge(t *testing.T, repo *BadgeRepository, name string) *models.Badge {
	t.Helper()

	badge := &models.Badge{
		Name:     name,
		Category: "win",
		Criteria: json.RawMessage(`{"type":"wins","threshold":1}`),
	}
	if err := repo.Create(badge); err != nil {
		t.Fatalf("Failed to create test badge: %v", err)
	}
	return badge
}

func TestAward_CreatesGrant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)
	user := createTestUser(t, db, "ann")
	badge := createTestBadge(t, repo, "First Win")

	grant, created, err := repo.Award(user.ID, badge.ID, json.RawMessage(`{"event":"contest_win"}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !created {
		t.Error("Expected grant to be created")
	}
	if grant == nil || grant.UserID != user.ID || grant.BadgeID != badge.ID {
		t.Errorf("Unexpected grant: %+v", grant)
	}

	earned, err := repo.HasUserEarnedBadge(user.ID, badge.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !earned {
		t.Error("Expected HasUserEarnedBadge to report the grant")
	}
}

func TestAward_DuplicateReportsAlreadyAwarded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)
	user := createTestUser(t, db, "ann")
	badge := createTestBadge(t, repo, "First Win")

	_, created, err := repo.Award(user.ID, badge.ID, nil)
	if err != nil || !created {
		t.Fatalf("Expected first award to succeed, created=%v err=%v", created, err)
	}

	// The unique index, not a pre-check, rejects the duplicate.
	grant, created, err := repo.Award(user.ID, badge.ID, nil)
	if err != nil {
		t.Fatalf("Expected duplicate to be reported as already-awarded, got %v", err)
	}
	if created {
		t.Error("Expected created=false for duplicate grant")
	}
	if grant != nil {
		t.Errorf("Expected nil grant for duplicate, got %+v", grant)
	}

	count, err := repo.GetUserBadgeCount(user.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 grant, got %d", count)
	}
}

func TestAward_SameBadgeDifferentUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)
	ann := createTestUser(t, db, "ann")
	bo := createTestUser(t, db, "bo")
	badge := createTestBadge(t, repo, "First Win")

	for _, userID := range []uint{ann.ID, bo.ID} {
		_, created, err := repo.Award(userID, badge.ID, nil)
		if err != nil || !created {
			t.Fatalf("Expected award for user %d to succeed, created=%v err=%v", userID, created, err)
		}
	}

	holders, err := repo.GetBadgeHoldersCount(badge.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if holders != 2 {
		t.Errorf("Expected 2 holders, got %d", holders)
	}
}

func TestGetActive_NullFlagCountsAsActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	createTestBadge(t, repo, "No Flag")

	active := true
	if err := repo.Create(&models.Badge{Name: "Explicitly Active", IsActive: &active}); err != nil {
		t.Fatalf("Failed to create badge: %v", err)
	}
	inactive := false
	if err := repo.Create(&models.Badge{Name: "Retired", IsActive: &inactive}); err != nil {
		t.Fatalf("Failed to create badge: %v", err)
	}

	badges, err := repo.GetActive()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(badges) != 2 {
		t.Errorf("Expected 2 active badges, got %d", len(badges))
	}
	for _, b := range badges {
		if b.Name == "Retired" {
			t.Error("Expected retired badge to be excluded")
		}
	}
}

func TestGetUserBadges_PreloadsBadge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)
	user := createTestUser(t, db, "ann")
	badge := createTestBadge(t, repo, "First Win")

	if _, _, err := repo.Award(user.ID, badge.ID, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	userBadges, err := repo.GetUserBadges(user.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(userBadges) != 1 {
		t.Fatalf("Expected 1 user badge, got %d", len(userBadges))
	}
	if userBadges[0].Badge.Name != "First Win" {
		t.Errorf("Expected badge details preloaded, got %+v", userBadges[0].Badge)
	}
}
