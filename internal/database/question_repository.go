package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/toeicbot/pkg/models"
)

const questionColumns = `id, category, tier, question_text, option_a, option_b, option_c, option_d,
	correct_answer, explanation, audio_script, audio_path, passage, document_type,
	source, used_count, created_at`

// QuestionRepository handles database operations for questions
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Save inserts a question and returns its assigned ID
func (r *QuestionRepository) Save(ctx context.Context, q *models.Question) (int64, error) {
	if r.db.DriverName() == "postgres" {
		query := r.db.Rebind(`
			INSERT INTO questions (
				category, tier, question_text, option_a, option_b, option_c, option_d,
				correct_answer, explanation, audio_script, audio_path, passage, document_type, source
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		var id int64
		err := r.db.QueryRowContext(ctx, query,
			q.Category, q.Tier, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			q.CorrectAnswer, q.Explanation, q.AudioScript, q.AudioPath, q.Passage, q.DocumentType, q.Source,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to save question: %v", err)
		}
		q.ID = id
		return id, nil
	}

	// SQLite path: no RETURNING, use the driver's last insert id
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO questions (
			category, tier, question_text, option_a, option_b, option_c, option_d,
			correct_answer, explanation, audio_script, audio_path, passage, document_type, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.Category, q.Tier, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectAnswer, q.Explanation, q.AudioScript, q.AudioPath, q.Passage, q.DocumentType, q.Source,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save question: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get question id: %v", err)
	}
	q.ID = id
	return id, nil
}

// GetByID returns a question by ID
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	query := r.db.Rebind("SELECT " + questionColumns + " FROM questions WHERE id = ?")
	if err := r.db.GetContext(ctx, &q, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question %d: %v", id, err)
	}
	return &q, nil
}

// GetBank returns up to limit bank questions for a category near the given
// tier, least-used first so the whole bank rotates before repeats.
func (r *QuestionRepository) GetBank(ctx context.Context, category models.Category, tier, limit int) ([]models.Question, error) {
	var questions []models.Question
	query := r.db.Rebind(`
		SELECT ` + questionColumns + ` FROM questions
		WHERE source = 'bank' AND category = ? AND tier BETWEEN ? AND ?
		ORDER BY used_count ASC, id ASC
		LIMIT ?
	`)
	err := r.db.SelectContext(ctx, &questions, query, category, tier-1, tier+1, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank questions: %v", err)
	}
	return questions, nil
}

// IncrementUsed bumps the usage counter for a question
func (r *QuestionRepository) IncrementUsed(ctx context.Context, id int64) error {
	query := r.db.Rebind("UPDATE questions SET used_count = used_count + 1 WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment usage for question %d: %v", id, err)
	}
	return nil
}
