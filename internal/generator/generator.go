// Package generator produces practice questions, either through the OpenAI
// API or from the locally imported question bank.
package generator

import (
	"context"

	"github.com/example/toeicbot/pkg/models"
)

// Generator produces count questions for a category at a difficulty tier.
// The topic hint applies to grammar questions only and may be empty.
// Implementations must be safe to retry: a failed call leaves no state the
// caller needs to clean up.
type Generator interface {
	Generate(ctx context.Context, category models.Category, tier, count int, topic string) ([]models.Question, error)
}
