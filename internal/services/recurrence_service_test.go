package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/dateutil"
	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestRecurrenceService_Reconcile(t *testing.T) {
	t.Run("rejects invalid owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		_, err := svc.Reconcile(0, date(2024, time.April, 20))
		testutil.AssertAppError(t, err, "INVALID_OWNER")
	})

	t.Run("monthly catch-up generates missed occurrences", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "12.99", date(2024, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.April, 20))
		testutil.AssertNoError(t, err)

		if result.Generated != 3 {
			t.Errorf("expected 3 generated, got %d", result.Generated)
		}
		if result.Skipped != 0 {
			t.Errorf("expected 0 skipped, got %d", result.Skipped)
		}

		var rows []models.Transaction
		if err := db.Where("user_id = ? AND id <> ?", user.ID, tmpl.ID).
			Order("date ASC").Find(&rows).Error; err != nil {
			t.Fatalf("failed to load generated rows: %v", err)
		}
		wantDates := []time.Time{
			date(2024, time.February, 15),
			date(2024, time.March, 15),
			date(2024, time.April, 15),
		}
		if len(rows) != len(wantDates) {
			t.Fatalf("expected %d generated rows, got %d", len(wantDates), len(rows))
		}
		for i, row := range rows {
			if !row.Date.Equal(wantDates[i]) {
				t.Errorf("row %d: expected date %s, got %s", i, wantDates[i], row.Date)
			}
			if !row.Recurring {
				t.Errorf("row %d: expected generated row to be marked recurring", i)
			}
			if row.Frequency != models.FrequencyMonthly {
				t.Errorf("row %d: expected frequency monthly, got %q", i, row.Frequency)
			}
			testutil.AssertDecimalEqual(t, row.Amount, "12.99")
		}

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tmpl.ID).Error)
		if reloaded.LastGenerated == nil || !reloaded.LastGenerated.Equal(date(2024, time.April, 15)) {
			t.Errorf("expected checkpoint 2024-04-15, got %v", reloaded.LastGenerated)
		}
	})

	t.Run("second call with same asOf is a no-op", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "12.99", date(2024, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		asOf := date(2024, time.April, 20)

		first, err := svc.Reconcile(user.ID, asOf)
		testutil.AssertNoError(t, err)
		if first.Generated != 3 {
			t.Fatalf("expected 3 generated on first call, got %d", first.Generated)
		}

		second, err := svc.Reconcile(user.ID, asOf)
		testutil.AssertNoError(t, err)
		if second.Generated != 0 || second.Skipped != 0 {
			t.Errorf("expected second call to be a no-op, got generated=%d skipped=%d",
				second.Generated, second.Skipped)
		}

		var count int64
		db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 4 {
			t.Errorf("expected 4 rows total (template + 3 occurrences), got %d", count)
		}
	})

	t.Run("stale checkpoint skips existing occurrences", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "12.99", date(2024, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		asOf := date(2024, time.April, 20)

		_, err := svc.Reconcile(user.ID, asOf)
		testutil.AssertNoError(t, err)

		// Simulate a lost checkpoint; every candidate is already materialized.
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("id = ?", tmpl.ID).
			Update("last_generated", nil).Error)

		result, err := svc.Reconcile(user.ID, asOf)
		testutil.AssertNoError(t, err)
		if result.Generated != 0 {
			t.Errorf("expected 0 generated, got %d", result.Generated)
		}
		if result.Skipped != 3 {
			t.Errorf("expected 3 skipped, got %d", result.Skipped)
		}

		// The checkpoint is restored from the confirmed occurrences.
		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tmpl.ID).Error)
		if reloaded.LastGenerated == nil || !reloaded.LastGenerated.Equal(date(2024, time.April, 15)) {
			t.Errorf("expected checkpoint 2024-04-15, got %v", reloaded.LastGenerated)
		}
	})

	t.Run("no occurrence dated after asOf", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "50", date(2024, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.February, 10))
		testutil.AssertNoError(t, err)
		if result.Generated != 0 || result.Skipped != 0 {
			t.Errorf("expected nothing due before 2024-02-15, got generated=%d skipped=%d",
				result.Generated, result.Skipped)
		}

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tmpl.ID).Error)
		if reloaded.LastGenerated != nil {
			t.Errorf("expected checkpoint untouched, got %v", reloaded.LastGenerated)
		}
	})

	t.Run("month-end template clamps per month without drifting", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "1500", date(2024, time.January, 31), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, time.Date(2024, time.April, 30, 23, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if result.Generated != 3 {
			t.Fatalf("expected 3 generated, got %d", result.Generated)
		}

		var rows []models.Transaction
		testutil.AssertNoError(t, db.Where("user_id = ? AND id <> ?", user.ID, tmpl.ID).
			Order("date ASC").Find(&rows).Error)
		wantDates := []time.Time{
			date(2024, time.February, 29), // leap year
			date(2024, time.March, 31),
			date(2024, time.April, 30),
		}
		for i, row := range rows {
			if !row.Date.Equal(wantDates[i]) {
				t.Errorf("row %d: expected date %s, got %s", i, wantDates[i], row.Date)
			}
		}

		// Idempotent even for clamped series: the Feb 29 row must not seed a
		// drifted series on the 29th.
		second, err := svc.Reconcile(user.ID, time.Date(2024, time.April, 30, 23, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if second.Generated != 0 {
			t.Errorf("expected second call to generate nothing, got %d", second.Generated)
		}
	})

	t.Run("quarterly template clamps only when the day is missing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeIncome, "300", date(2023, time.November, 30), models.FrequencyQuarterly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.September, 1))
		testutil.AssertNoError(t, err)
		if result.Generated != 3 {
			t.Fatalf("expected 3 generated, got %d", result.Generated)
		}

		var rows []models.Transaction
		testutil.AssertNoError(t, db.Where("user_id = ? AND id <> ?", user.ID, tmpl.ID).
			Order("date ASC").Find(&rows).Error)
		wantDates := []time.Time{
			date(2024, time.February, 29), // clamped: February has no 30th
			date(2024, time.May, 30),
			date(2024, time.August, 30),
		}
		for i, row := range rows {
			if !row.Date.Equal(wantDates[i]) {
				t.Errorf("row %d: expected date %s, got %s", i, wantDates[i], row.Date)
			}
		}
	})

	t.Run("yearly template anchored on leap day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "99", date(2024, time.February, 29), models.FrequencyYearly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2026, time.March, 1))
		testutil.AssertNoError(t, err)
		if result.Generated != 2 {
			t.Fatalf("expected 2 generated, got %d", result.Generated)
		}

		var rows []models.Transaction
		testutil.AssertNoError(t, db.Where("user_id = ? AND id <> ?", user.ID, tmpl.ID).
			Order("date ASC").Find(&rows).Error)
		wantDates := []time.Time{
			date(2025, time.February, 28),
			date(2026, time.February, 28),
		}
		if len(rows) != len(wantDates) {
			t.Fatalf("expected %d generated rows, got %d", len(wantDates), len(rows))
		}
		for i, row := range rows {
			if !row.Date.Equal(wantDates[i]) {
				t.Errorf("row %d: expected date %s, got %s", i, wantDates[i], row.Date)
			}
		}
	})

	t.Run("paused template produces nothing and keeps its checkpoint", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "25", date(2024, time.January, 15), models.FrequencyMonthly)
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("id = ?", tmpl.ID).
			Update("recurring_paused", true).Error)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.December, 1))
		testutil.AssertNoError(t, err)
		if result.Generated != 0 || result.Skipped != 0 {
			t.Errorf("expected paused template to produce nothing, got generated=%d skipped=%d",
				result.Generated, result.Skipped)
		}

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tmpl.ID).Error)
		if reloaded.LastGenerated != nil {
			t.Errorf("expected checkpoint untouched, got %v", reloaded.LastGenerated)
		}
	})

	t.Run("pre-existing occurrence counts as skipped and advances the checkpoint", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "12.99", date(2024, time.January, 15), models.FrequencyMonthly)

		// Manually recorded by the user before reconciliation ran.
		manual := &models.Transaction{
			UserID:      user.ID,
			Type:        tmpl.Type,
			Category:    tmpl.Category,
			Description: tmpl.Description,
			Amount:      tmpl.Amount,
			Date:        time.Date(2024, time.February, 15, 8, 30, 0, 0, time.UTC),
		}
		testutil.AssertNoError(t, db.Create(manual).Error)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.February, 20))
		testutil.AssertNoError(t, err)
		if result.Generated != 0 {
			t.Errorf("expected 0 generated, got %d", result.Generated)
		}
		if result.Skipped != 1 {
			t.Errorf("expected 1 skipped, got %d", result.Skipped)
		}

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tmpl.ID).Error)
		if reloaded.LastGenerated == nil || !reloaded.LastGenerated.Equal(date(2024, time.February, 15)) {
			t.Errorf("expected checkpoint 2024-02-15, got %v", reloaded.LastGenerated)
		}
	})

	t.Run("templates with identical fields share occurrences within one call", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		mk := func() *models.Transaction {
			tx := &models.Transaction{
				UserID:      user.ID,
				Type:        models.TransactionTypeExpense,
				Category:    "Entertainment",
				Description: "Streaming",
				Amount:      decimal.RequireFromString("12.99"),
				Date:        date(2024, time.January, 15),
				Recurring:   true,
				Frequency:   models.FrequencyMonthly,
			}
			testutil.AssertNoError(t, db.Create(tx).Error)
			return tx
		}
		mk()
		mk()

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.March, 20))
		testutil.AssertNoError(t, err)
		if result.Generated != 2 {
			t.Errorf("expected 2 generated (one per due date), got %d", result.Generated)
		}
		if result.Skipped != 2 {
			t.Errorf("expected 2 skipped from the second template, got %d", result.Skipped)
		}

		var count int64
		db.Model(&models.Transaction{}).
			Where("user_id = ? AND date = ?", user.ID, date(2024, time.February, 15)).
			Count(&count)
		if count != 1 {
			t.Errorf("expected exactly one occurrence on 2024-02-15, got %d", count)
		}
	})

	t.Run("pausing the template stops the whole series", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "12.99", date(2024, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		first, err := svc.Reconcile(user.ID, date(2024, time.April, 20))
		testutil.AssertNoError(t, err)
		if first.Generated != 3 {
			t.Fatalf("expected 3 generated before pausing, got %d", first.Generated)
		}

		// Only the original row is paused; the generated occurrences are
		// recurring rows of the same series and must follow it.
		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("id = ?", tmpl.ID).
			Update("recurring_paused", true).Error)

		paused, err := svc.Reconcile(user.ID, date(2024, time.December, 1))
		testutil.AssertNoError(t, err)
		if paused.Generated != 0 || paused.Skipped != 0 {
			t.Errorf("expected a paused series to produce nothing, got generated=%d skipped=%d",
				paused.Generated, paused.Skipped)
		}

		testutil.AssertNoError(t, db.Model(&models.Transaction{}).
			Where("id = ?", tmpl.ID).
			Update("recurring_paused", false).Error)

		resumed, err := svc.Reconcile(user.ID, date(2024, time.June, 20))
		testutil.AssertNoError(t, err)
		if resumed.Generated != 2 {
			t.Errorf("expected 2 generated after resuming (May and June), got %d", resumed.Generated)
		}
	})

	t.Run("month-end series does not drift at a later asOf", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "1500", date(2024, time.January, 31), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		_, err := svc.Reconcile(user.ID, time.Date(2024, time.April, 30, 23, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)

		// The Feb 29 row must keep projecting from the Jan 31 anchor, not from
		// its own clamped date.
		result, err := svc.Reconcile(user.ID, time.Date(2024, time.June, 30, 23, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if result.Generated != 2 {
			t.Fatalf("expected 2 generated (May and June), got %d", result.Generated)
		}

		var rows []models.Transaction
		testutil.AssertNoError(t, db.Where("user_id = ? AND id <> ?", user.ID, tmpl.ID).
			Order("date ASC").Find(&rows).Error)
		wantDates := []time.Time{
			date(2024, time.February, 29),
			date(2024, time.March, 31),
			date(2024, time.April, 30),
			date(2024, time.May, 31),
			date(2024, time.June, 30),
		}
		if len(rows) != len(wantDates) {
			t.Fatalf("expected %d rows, got %d", len(wantDates), len(rows))
		}
		for i, row := range rows {
			if !row.Date.Equal(wantDates[i]) {
				t.Errorf("row %d: expected date %s, got %s", i, wantDates[i], row.Date)
			}
		}
	})

	t.Run("safety cap bounds work for an ancient checkpoint", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		tmpl := testutil.CreateTestRecurringTemplate(t, db, user.ID,
			models.TransactionTypeExpense, "10", date(2010, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.June, 1))
		testutil.AssertNoError(t, err)
		if result.Generated != maxOccurrencesPerTemplate {
			t.Errorf("expected generation capped at %d, got %d", maxOccurrencesPerTemplate, result.Generated)
		}

		var reloaded models.Transaction
		testutil.AssertNoError(t, db.First(&reloaded, tmpl.ID).Error)
		want := dateutil.AddMonths(date(2010, time.January, 15), maxOccurrencesPerTemplate)
		if reloaded.LastGenerated == nil || !reloaded.LastGenerated.Equal(want) {
			t.Errorf("expected checkpoint %s, got %v", want, reloaded.LastGenerated)
		}
	})

	t.Run("other owners are untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		testutil.CreateTestRecurringTemplate(t, db, other.ID,
			models.TransactionTypeExpense, "80", date(2024, time.January, 15), models.FrequencyMonthly)

		svc := NewRecurrenceService(NewRecurrenceStore(db))
		result, err := svc.Reconcile(user.ID, date(2024, time.June, 1))
		testutil.AssertNoError(t, err)
		if result.Generated != 0 {
			t.Errorf("expected nothing generated for a user without templates, got %d", result.Generated)
		}

		var count int64
		db.Model(&models.Transaction{}).Where("user_id = ?", other.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected the other user's template to be untouched, got %d rows", count)
		}
	})
}

// fakeRecurrenceStore lets tests inject store failures that are awkward to
// provoke through SQLite.
type fakeRecurrenceStore struct {
	templates    []models.Transaction
	templatesErr error
	failCategory string
	insertErr    error
	inserted     []models.Transaction
	checkpoints  []CheckpointUpdate
}

func (f *fakeRecurrenceStore) FindRecurringTemplates(userID uint) ([]models.Transaction, error) {
	if f.templatesErr != nil {
		return nil, f.templatesErr
	}
	return f.templates, nil
}

func (f *fakeRecurrenceStore) OccurrenceExists(userID uint, txType models.TransactionType, amount decimal.Decimal, category, description string, dayStart, dayEnd time.Time) (bool, error) {
	if category == f.failCategory {
		return false, errors.New("connection reset")
	}
	return false, nil
}

func (f *fakeRecurrenceStore) InsertOccurrences(occurrences []models.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, occurrences...)
	return nil
}

func (f *fakeRecurrenceStore) UpdateCheckpoints(updates []CheckpointUpdate) error {
	f.checkpoints = append(f.checkpoints, updates...)
	return nil
}

func TestRecurrenceService_Reconcile_StoreFailures(t *testing.T) {
	template := func(id uint, category string) models.Transaction {
		tx := models.Transaction{
			UserID:    1,
			Type:      models.TransactionTypeExpense,
			Category:  category,
			Amount:    decimal.RequireFromString("20"),
			Date:      date(2024, time.January, 15),
			Recurring: true,
			Frequency: models.FrequencyMonthly,
		}
		tx.ID = id
		return tx
	}

	t.Run("template load failure surfaces as store unavailable", func(t *testing.T) {
		store := &fakeRecurrenceStore{templatesErr: errors.New("connection refused")}
		svc := NewRecurrenceService(store)

		_, err := svc.Reconcile(1, date(2024, time.March, 1))
		testutil.AssertAppError(t, err, "STORE_UNAVAILABLE")
	})

	t.Run("insert failure surfaces as store unavailable", func(t *testing.T) {
		store := &fakeRecurrenceStore{
			templates: []models.Transaction{template(1, "Rent")},
			insertErr: errors.New("disk full"),
		}
		svc := NewRecurrenceService(store)

		_, err := svc.Reconcile(1, date(2024, time.March, 1))
		testutil.AssertAppError(t, err, "STORE_UNAVAILABLE")
		if len(store.checkpoints) != 0 {
			t.Errorf("expected no checkpoint updates after failed insert, got %d", len(store.checkpoints))
		}
	})

	t.Run("one failing template does not block the others", func(t *testing.T) {
		store := &fakeRecurrenceStore{
			templates:    []models.Transaction{template(1, "Rent"), template(2, "Broken")},
			failCategory: "Broken",
		}
		svc := NewRecurrenceService(store)

		result, err := svc.Reconcile(1, date(2024, time.March, 1))
		testutil.AssertNoError(t, err)
		if result.Generated != 2 {
			t.Errorf("expected 2 generated from the healthy template, got %d", result.Generated)
		}
		if len(store.checkpoints) != 1 || store.checkpoints[0].TemplateID != 1 {
			t.Errorf("expected a checkpoint update only for the healthy template, got %+v", store.checkpoints)
		}
		for _, row := range store.inserted {
			if row.Category == "Broken" {
				t.Errorf("unexpected occurrence staged for the failing template: %+v", row)
			}
		}
	})
}
