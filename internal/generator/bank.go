package generator

import (
	"context"
	"fmt"

	"github.com/example/toeicbot/internal/database"
	"github.com/example/toeicbot/pkg/models"
)

// Bank serves questions from the imported question-bank table, least-used
// first. It exists so delivery keeps working when the AI generator is
// unavailable.
type Bank struct {
	questions *database.QuestionRepository
}

// NewBank creates a generator backed by the local question bank
func NewBank(questions *database.QuestionRepository) *Bank {
	return &Bank{questions: questions}
}

// Generate returns up to count bank questions near the requested tier.
func (g *Bank) Generate(ctx context.Context, category models.Category, tier, count int, topic string) ([]models.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	questions, err := g.questions.GetBank(ctx, category, tier, count)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank has no %s questions near tier %d", category, tier)
	}
	return questions, nil
}
