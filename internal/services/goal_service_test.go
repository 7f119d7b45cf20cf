package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestGoalService_CreateGoal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	svc := NewGoalService(db)

	t.Run("creates a goal with zero saved", func(t *testing.T) {
		goal, err := svc.CreateGoal(user.ID, "Emergency fund", decimal.RequireFromString("5000"), nil)
		testutil.AssertNoError(t, err)

		if goal.ID == 0 {
			t.Error("expected goal to be persisted with an ID")
		}
		testutil.AssertDecimalEqual(t, goal.CurrentSaved, "0")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := svc.CreateGoal(user.ID, "", decimal.RequireFromString("100"), nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects non-positive target", func(t *testing.T) {
		_, err := svc.CreateGoal(user.ID, "Vacation", decimal.Zero, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGoalService_AddContribution(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	svc := NewGoalService(db)
	goal := testutil.CreateTestGoal(t, db, user.ID, "1000")

	t.Run("contribution advances the saved total", func(t *testing.T) {
		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.RequireFromString("250.50"), date(2024, time.March, 1))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, updated.CurrentSaved, "250.50")
		if len(updated.Contributions) != 1 {
			t.Fatalf("expected 1 contribution, got %d", len(updated.Contributions))
		}
		testutil.AssertDecimalEqual(t, updated.Contributions[0].Amount, "250.50")
	})

	t.Run("contributions accumulate", func(t *testing.T) {
		updated, err := svc.AddContribution(user.ID, goal.ID, decimal.RequireFromString("100"), date(2024, time.April, 1))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, updated.CurrentSaved, "350.50")
		if len(updated.Contributions) != 2 {
			t.Errorf("expected 2 contributions, got %d", len(updated.Contributions))
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := svc.AddContribution(user.ID, goal.ID, decimal.Zero, date(2024, time.April, 1))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("not found for another user's goal", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		_, err := svc.AddContribution(other.ID, goal.ID, decimal.RequireFromString("50"), date(2024, time.April, 1))
		testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
	})
}

func TestGoalService_DeleteGoal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	svc := NewGoalService(db)
	goal := testutil.CreateTestGoal(t, db, user.ID, "1000")

	_, err := svc.AddContribution(user.ID, goal.ID, decimal.RequireFromString("100"), date(2024, time.March, 1))
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.DeleteGoal(user.ID, goal.ID))

	_, err = svc.GetGoalByID(user.ID, goal.ID)
	testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")

	var count int64
	db.Model(&models.Contribution{}).Where("goal_id = ?", goal.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected contributions to be deleted with the goal, got %d", count)
	}
}
