package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/toeicbot/pkg/models"
)

// ProgressRepository handles archived daily outcomes
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Record folds a closed session into the learner's daily progress row. A
// second session on the same day (e.g. instant practice) accumulates into
// the existing row.
func (r *ProgressRepository) Record(ctx context.Context, p *models.DailyProgress) error {
	var existing models.DailyProgress
	query := r.db.Rebind(`
		SELECT id, learner_id, date, attempted, correct, accuracy,
		       listening_accuracy, grammar_accuracy, reading_accuracy, estimated_score, created_at
		FROM progress WHERE learner_id = ? AND date = ?
	`)
	err := r.db.GetContext(ctx, &existing, query, p.LearnerID, p.Date)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up progress: %v", err)
		}
		insert := r.db.Rebind(`
			INSERT INTO progress (learner_id, date, attempted, correct, accuracy,
				listening_accuracy, grammar_accuracy, reading_accuracy, estimated_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		_, err = r.db.ExecContext(ctx, insert,
			p.LearnerID, p.Date, p.Attempted, p.Correct, p.Accuracy,
			p.ListeningAccuracy, p.GrammarAccuracy, p.ReadingAccuracy, p.EstimatedScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert progress: %v", err)
		}
		return nil
	}

	attempted := existing.Attempted + p.Attempted
	correct := existing.Correct + p.Correct
	accuracy := 0.0
	if attempted > 0 {
		accuracy = float64(correct) / float64(attempted)
	}

	update := r.db.Rebind(`
		UPDATE progress SET attempted = ?, correct = ?, accuracy = ?,
			listening_accuracy = COALESCE(?, listening_accuracy),
			grammar_accuracy = COALESCE(?, grammar_accuracy),
			reading_accuracy = COALESCE(?, reading_accuracy),
			estimated_score = ?
		WHERE id = ?
	`)
	_, err = r.db.ExecContext(ctx, update,
		attempted, correct, accuracy,
		p.ListeningAccuracy, p.GrammarAccuracy, p.ReadingAccuracy, p.EstimatedScore,
		existing.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %v", err)
	}
	return nil
}

// GetRecent returns the learner's most recent daily progress rows, newest first
func (r *ProgressRepository) GetRecent(ctx context.Context, learnerID int64, days int) ([]models.DailyProgress, error) {
	var rows []models.DailyProgress
	query := r.db.Rebind(`
		SELECT id, learner_id, date, attempted, correct, accuracy,
		       listening_accuracy, grammar_accuracy, reading_accuracy, estimated_score, created_at
		FROM progress WHERE learner_id = ?
		ORDER BY date DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &rows, query, learnerID, days); err != nil {
		return nil, fmt.Errorf("failed to get progress for learner %d: %v", learnerID, err)
	}
	return rows, nil
}
