package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/models"
)

// gormRecurrenceStore is the GORM-backed persistence layer of the recurrence
// engine.
type gormRecurrenceStore struct {
	db *gorm.DB
}

// NewRecurrenceStore creates a RecurrenceStore backed by the given database.
func NewRecurrenceStore(db *gorm.DB) RecurrenceStore {
	return &gormRecurrenceStore{db: db}
}

func (s *gormRecurrenceStore) FindRecurringTemplates(userID uint) ([]models.Transaction, error) {
	var templates []models.Transaction
	err := s.db.
		Where("user_id = ? AND recurring = ?", userID, true).
		Where("frequency IN ?", models.Frequencies()).
		Order("date ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *gormRecurrenceStore) OccurrenceExists(userID uint, txType models.TransactionType, amount decimal.Decimal, category, description string, dayStart, dayEnd time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ? AND amount = ? AND category = ? AND description = ?",
			userID, txType, amount, category, description).
		Where("date BETWEEN ? AND ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormRecurrenceStore) InsertOccurrences(occurrences []models.Transaction) error {
	if len(occurrences) == 0 {
		return nil
	}
	return s.db.Create(&occurrences).Error
}

func (s *gormRecurrenceStore) UpdateCheckpoints(updates []CheckpointUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			err := tx.Model(&models.Transaction{}).
				Where("id = ?", u.TemplateID).
				Where("last_generated IS NULL OR last_generated < ?", u.Checkpoint).
				Update("last_generated", u.Checkpoint).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
