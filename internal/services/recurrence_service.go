package services

import (
	"fmt"
	"time"

	"fintrack/internal/dateutil"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

// maxOccurrencesPerTemplate caps how many occurrences a single template can
// materialize in one reconciliation. It bounds the work for templates whose
// checkpoint is years behind (e.g. a user returning after a long absence).
const maxOccurrencesPerTemplate = 120

// recurrenceService materializes missed occurrences of recurring transactions.
type recurrenceService struct {
	store RecurrenceStore
}

// NewRecurrenceService creates a new recurrence engine backed by the given store.
func NewRecurrenceService(store RecurrenceStore) RecurrenceServicer {
	return &recurrenceService{store: store}
}

// stagedKey identifies an occurrence staged during the current reconciliation.
// Two templates with identical identity fields due on the same day collapse to
// one occurrence, and a template never stages the same day twice.
type stagedKey struct {
	txType      models.TransactionType
	amount      string
	category    string
	description string
	day         string
}

// seriesKey identifies a recurring series. A series is denormalized: every
// generated occurrence is itself a full recurring row, so rows sharing these
// fields belong to one series.
type seriesKey struct {
	txType      models.TransactionType
	amount      string
	category    string
	description string
}

// seriesState carries what must be agreed on across all rows of a series:
// the anchor date that candidate occurrences are projected from, and whether
// the series is paused.
type seriesState struct {
	anchor time.Time
	paused bool
}

func seriesKeyOf(t models.Transaction) seriesKey {
	return seriesKey{
		txType:      t.Type,
		amount:      t.Amount.String(),
		category:    t.Category,
		description: t.Description,
	}
}

// Reconcile scans the owner's recurring templates and inserts every occurrence
// due between each template's checkpoint and asOf, exactly once. Templates that
// fail to stage are skipped so one bad template cannot block the rest.
func (s *recurrenceService) Reconcile(userID uint, asOf time.Time) (*ReconcileResult, error) {
	if userID == 0 {
		return nil, apperrors.ErrInvalidOwner
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	templates, err := s.store.FindRecurringTemplates(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
	}

	// Resolve per-series state first. Generated occurrences are recurring rows
	// themselves, so a series may arrive as many rows: the earliest row's date
	// is the series anchor (a clamped occurrence like Feb 29 of a Jan 31 series
	// must not project its own drifted candidates), and pausing any row of the
	// series pauses all of it.
	series := make(map[seriesKey]*seriesState)
	for _, tmpl := range templates {
		key := seriesKeyOf(tmpl)
		st, ok := series[key]
		if !ok {
			st = &seriesState{anchor: tmpl.Date}
			series[key] = st
		}
		if tmpl.Date.Before(st.anchor) {
			st.anchor = tmpl.Date
		}
		if tmpl.RecurringPaused {
			st.paused = true
		}
	}

	result := &ReconcileResult{}
	staged := make(map[stagedKey]struct{})
	var occurrences []models.Transaction
	var checkpoints []CheckpointUpdate

	for _, tmpl := range templates {
		st := series[seriesKeyOf(tmpl)]
		if st.paused {
			continue
		}
		step := tmpl.Frequency.Months()
		if step == 0 {
			logger.Get().Warnw("recurring template has unsupported frequency, skipping",
				"template_id", tmpl.ID,
				"user_id", userID,
				"frequency", tmpl.Frequency,
			)
			continue
		}

		rows, checkpoint, skipped, err := s.stageOccurrences(tmpl, st.anchor, step, asOf, staged)
		if err != nil {
			logger.Get().Warnw("failed to stage occurrences for template, skipping",
				"template_id", tmpl.ID,
				"user_id", userID,
				"error", err.Error(),
			)
			continue
		}

		// Generated rows are part of the same series and would otherwise act
		// as fresh anchors on the next run; stamping them with the series
		// checkpoint keeps subsequent reconciliations no-ops.
		for i := range rows {
			rows[i].LastGenerated = checkpoint
		}

		occurrences = append(occurrences, rows...)
		result.Skipped += skipped
		if checkpoint != nil {
			checkpoints = append(checkpoints, CheckpointUpdate{TemplateID: tmpl.ID, Checkpoint: *checkpoint})
		}
	}

	if len(occurrences) > 0 {
		if err := s.store.InsertOccurrences(occurrences); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
		}
		result.Generated = len(occurrences)
	}

	if len(checkpoints) > 0 {
		if err := s.store.UpdateCheckpoints(checkpoints); err != nil {
			// Occurrences are already persisted; the stale checkpoints only
			// cause extra duplicate checks on the next run, never duplicates.
			logger.Get().Errorw("failed to advance recurrence checkpoints",
				"user_id", userID,
				"error", err.Error(),
			)
			return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
		}
	}

	return result, nil
}

// stageOccurrences enumerates the template's due occurrences after its
// checkpoint up to asOf. Candidate dates are always derived from the series
// anchor so that month-end series (e.g. Jan 31) clamp per month instead of
// drifting to the shortest month's day.
func (s *recurrenceService) stageOccurrences(tmpl models.Transaction, anchor time.Time, step int, asOf time.Time, staged map[stagedKey]struct{}) ([]models.Transaction, *time.Time, int, error) {
	cursor := anchor
	if tmpl.LastGenerated != nil && tmpl.LastGenerated.After(cursor) {
		cursor = *tmpl.LastGenerated
	}

	// Fast-forward to the first anchor multiple strictly after the cursor.
	n := (dateutil.MonthsBetween(anchor, cursor) / step) * step
	if n < step {
		n = step
	}
	for !dateutil.AddMonths(anchor, n).After(cursor) {
		n += step
	}

	var rows []models.Transaction
	var lastDue *time.Time
	skipped := 0

	for count := 0; count < maxOccurrencesPerTemplate; count++ {
		due := dateutil.AddMonths(anchor, n)
		if due.After(asOf) {
			break
		}
		n += step

		dayStart, dayEnd := dateutil.DayWindow(due)
		key := stagedKey{
			txType:      tmpl.Type,
			amount:      tmpl.Amount.String(),
			category:    tmpl.Category,
			description: tmpl.Description,
			day:         dayStart.Format("2006-01-02"),
		}
		if _, ok := staged[key]; ok {
			skipped++
			d := due
			lastDue = &d
			continue
		}

		exists, err := s.store.OccurrenceExists(tmpl.UserID, tmpl.Type, tmpl.Amount, tmpl.Category, tmpl.Description, dayStart, dayEnd)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("checking existing occurrence on %s: %w", dayStart.Format("2006-01-02"), err)
		}

		staged[key] = struct{}{}
		d := due
		lastDue = &d
		if exists {
			skipped++
			continue
		}

		rows = append(rows, models.Transaction{
			UserID:      tmpl.UserID,
			Type:        tmpl.Type,
			Vendor:      tmpl.Vendor,
			Category:    tmpl.Category,
			Description: tmpl.Description,
			Amount:      tmpl.Amount,
			Date:        due,
			Recurring:   true,
			Frequency:   tmpl.Frequency,
		})
	}

	return rows, lastDue, skipped, nil
}
