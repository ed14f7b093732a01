package generator

import (
	"context"
	"log"

	"github.com/example/toeicbot/pkg/models"
)

// Fallback tries a primary generator and falls back to a secondary when the
// primary fails. Only when both fail does the caller see an error, which
// defers the delivery to the next tick.
type Fallback struct {
	Primary   Generator
	Secondary Generator
}

// Generate delegates to the primary generator, then the secondary.
func (g *Fallback) Generate(ctx context.Context, category models.Category, tier, count int, topic string) ([]models.Question, error) {
	questions, err := g.Primary.Generate(ctx, category, tier, count, topic)
	if err == nil {
		return questions, nil
	}
	log.Printf("Primary generator failed for %s tier %d, trying fallback: %v", category, tier, err)
	return g.Secondary.Generate(ctx, category, tier, count, topic)
}
