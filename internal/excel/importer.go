// Package excel imports question banks from spreadsheets into the questions
// table, giving the bank generator something to serve when the AI
// collaborator is unavailable.
package excel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/toeicbot/internal/database"
	"github.com/example/toeicbot/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // Path to the Excel file
	SheetName string // Name of the sheet to import
	StartRow  int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration.
// Expected columns: A category, B tier, C question text, D-G options A-D,
// H correct answer letter, I explanation, J audio script (listening only),
// K passage and L document type (reading only).
func DefaultImportConfig(filePath string) ImportConfig {
	return ImportConfig{
		FilePath:  filePath,
		SheetName: "Sheet1",
		StartRow:  2, // Skip the header row
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// ImportQuestions loads a question-bank spreadsheet into the store
func ImportQuestions(ctx context.Context, questions *database.QuestionRepository, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}

	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}

		result.TotalProcessed++

		q, err := parseRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		if _, err := questions.Save(ctx, q); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		result.Created++
	}

	return result, nil
}

// parseRow converts one spreadsheet row into a bank question
func parseRow(row []string) (*models.Question, error) {
	if len(row) < 8 {
		return nil, fmt.Errorf("expected at least 8 columns, got %d", len(row))
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(cell(row, 0))))
	switch category {
	case models.CategoryListening, models.CategoryGrammar, models.CategoryReading:
	default:
		return nil, fmt.Errorf("unknown category %q", cell(row, 0))
	}

	tier, err := strconv.Atoi(strings.TrimSpace(cell(row, 1)))
	if err != nil || tier < models.MinTier || tier > models.MaxTier {
		return nil, fmt.Errorf("invalid tier %q", cell(row, 1))
	}

	answer := strings.ToUpper(strings.TrimSpace(cell(row, 7)))
	if answer != "A" && answer != "B" && answer != "C" && answer != "D" {
		return nil, fmt.Errorf("invalid correct answer %q", cell(row, 7))
	}

	q := &models.Question{
		Category:      category,
		Tier:          tier,
		Text:          strings.TrimSpace(cell(row, 2)),
		OptionA:       strings.TrimSpace(cell(row, 3)),
		OptionB:       strings.TrimSpace(cell(row, 4)),
		OptionC:       strings.TrimSpace(cell(row, 5)),
		OptionD:       strings.TrimSpace(cell(row, 6)),
		CorrectAnswer: answer,
		Explanation:   strings.TrimSpace(cell(row, 8)),
		AudioScript:   strings.TrimSpace(cell(row, 9)),
		Passage:       strings.TrimSpace(cell(row, 10)),
		DocumentType:  strings.TrimSpace(cell(row, 11)),
		Source:        models.SourceBank,
	}

	if q.Text == "" || q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
		return nil, fmt.Errorf("question or options missing")
	}
	if category == models.CategoryListening && q.AudioScript == "" {
		return nil, fmt.Errorf("listening question without audio script")
	}
	if category == models.CategoryReading && q.Passage == "" {
		return nil, fmt.Errorf("reading question without passage")
	}

	return q, nil
}

// cell returns the trimmed-at-index cell, tolerating short rows
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
