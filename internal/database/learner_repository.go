package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/toeicbot/pkg/models"
)

const learnerColumns = `telegram_id, username, first_name, delivery_time, utc_offset_min,
	weekend_delivery, listening_per_day, grammar_per_day, tts_locale, target_score, is_active,
	tier, accuracy, current_streak, longest_streak, estimated_score,
	last_delivery_date, last_completed_date, last_active, created_at, updated_at`

// LearnerRepository handles database operations for learner profiles
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new repository instance
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// GetByID returns a learner profile by Telegram ID
func (r *LearnerRepository) GetByID(ctx context.Context, id int64) (*models.Learner, error) {
	var l models.Learner
	query := r.db.Rebind("SELECT " + learnerColumns + " FROM learners WHERE telegram_id = ?")
	if err := r.db.GetContext(ctx, &l, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get learner %d: %v", id, err)
	}
	return &l, nil
}

// GetActive returns all learners subscribed to daily delivery
func (r *LearnerRepository) GetActive(ctx context.Context) ([]models.Learner, error) {
	var learners []models.Learner
	query := "SELECT " + learnerColumns + " FROM learners WHERE is_active = true ORDER BY telegram_id"
	if err := r.db.SelectContext(ctx, &learners, query); err != nil {
		return nil, fmt.Errorf("failed to get active learners: %v", err)
	}
	return learners, nil
}

// Create inserts a new learner profile
func (r *LearnerRepository) Create(ctx context.Context, l *models.Learner) error {
	query := r.db.Rebind(`
		INSERT INTO learners (
			telegram_id, username, first_name, delivery_time, utc_offset_min,
			weekend_delivery, listening_per_day, grammar_per_day, tts_locale,
			target_score, is_active, tier, estimated_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.Username, l.FirstName, l.DeliveryTime, l.UTCOffsetMin,
		l.WeekendDelivery, l.ListeningPerDay, l.GrammarPerDay, l.TTSLocale,
		l.TargetScore, l.IsActive, l.Tier, l.EstimatedScore,
	)
	if err != nil {
		return fmt.Errorf("failed to create learner %d: %v", l.ID, err)
	}
	return nil
}

// Update persists the full learner profile, settings and progress alike
func (r *LearnerRepository) Update(ctx context.Context, l *models.Learner) error {
	query := r.db.Rebind(`
		UPDATE learners SET
			username = ?,
			first_name = ?,
			delivery_time = ?,
			utc_offset_min = ?,
			weekend_delivery = ?,
			listening_per_day = ?,
			grammar_per_day = ?,
			tts_locale = ?,
			target_score = ?,
			is_active = ?,
			tier = ?,
			accuracy = ?,
			current_streak = ?,
			longest_streak = ?,
			estimated_score = ?,
			last_delivery_date = ?,
			last_completed_date = ?,
			last_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE telegram_id = ?
	`)
	_, err := r.db.ExecContext(ctx, query,
		l.Username, l.FirstName, l.DeliveryTime, l.UTCOffsetMin,
		l.WeekendDelivery, l.ListeningPerDay, l.GrammarPerDay, l.TTSLocale,
		l.TargetScore, l.IsActive, l.Tier, l.Accuracy,
		l.CurrentStreak, l.LongestStreak, l.EstimatedScore,
		l.LastDeliveryDate, l.LastCompletedDate, l.LastActive,
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update learner %d: %v", l.ID, err)
	}
	return nil
}

// SetActive toggles the daily delivery subscription
func (r *LearnerRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := r.db.Rebind("UPDATE learners SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE telegram_id = ?")
	_, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to set learner %d active=%v: %v", id, active, err)
	}
	return nil
}

// SetDeliveryTime updates the preferred delivery time ("HH:MM", learner-local)
func (r *LearnerRepository) SetDeliveryTime(ctx context.Context, id int64, deliveryTime string) error {
	query := r.db.Rebind("UPDATE learners SET delivery_time = ?, updated_at = CURRENT_TIMESTAMP WHERE telegram_id = ?")
	_, err := r.db.ExecContext(ctx, query, deliveryTime, id)
	if err != nil {
		return fmt.Errorf("failed to set delivery time for learner %d: %v", id, err)
	}
	return nil
}

// TouchLastActive records learner activity without rewriting the whole profile
func (r *LearnerRepository) TouchLastActive(ctx context.Context, id int64) error {
	query := r.db.Rebind("UPDATE learners SET last_active = CURRENT_TIMESTAMP WHERE telegram_id = ?")
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch learner %d: %v", id, err)
	}
	return nil
}
