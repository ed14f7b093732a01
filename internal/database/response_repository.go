package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/toeicbot/pkg/models"
)

// ResponseRepository handles the answer audit trail
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository creates a new repository instance
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Create records a submitted answer
func (r *ResponseRepository) Create(ctx context.Context, resp *models.Response) error {
	query := r.db.Rebind(`
		INSERT INTO responses (learner_id, question_id, item_id, answer, is_correct, scored, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		resp.LearnerID, resp.QuestionID, resp.ItemID, resp.Answer,
		resp.IsCorrect, resp.Scored, resp.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record response: %v", err)
	}
	return nil
}

// CountByLearner returns total and correct scored answers for a learner
func (r *ResponseRepository) CountByLearner(ctx context.Context, learnerID int64) (total, correct int, err error) {
	query := r.db.Rebind(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM responses
		WHERE learner_id = ? AND scored = true
	`)
	if err := r.db.QueryRowContext(ctx, query, learnerID).Scan(&total, &correct); err != nil {
		return 0, 0, fmt.Errorf("failed to count responses for learner %d: %v", learnerID, err)
	}
	return total, correct, nil
}
