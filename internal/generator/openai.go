package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/example/toeicbot/pkg/models"
)

const systemPrompt = "You are a TOEIC test question generator. Always return valid JSON."

// tierDescriptions maps difficulty tiers onto the prompt language the model
// responds to. Tiers 1-3 roughly track a 300-500 target, 4-7 a 500-750
// target, 8-10 an 800+ target.
var tierDescriptions = map[int]string{
	1:  "very basic grammar and vocabulary (simple present, articles, everyday words)",
	2:  "basic grammar concepts (simple tenses, articles, prepositions)",
	3:  "basic grammar with some workplace vocabulary",
	4:  "pre-intermediate grammar (past tenses, comparatives, common business words)",
	5:  "intermediate grammar (conditionals, perfect tenses, modals, relative clauses)",
	6:  "intermediate business English with moderate complexity",
	7:  "upper-intermediate grammar and business vocabulary",
	8:  "advanced grammar (subjunctive, complex conditionals, nuanced usage)",
	9:  "advanced business English with idiomatic expressions",
	10: "near-native grammar, collocations and nuanced vocabulary",
}

// OpenAI generates questions through the chat completions API
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates a generator backed by the OpenAI API
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		client:      openai.NewClient(apiKey),
		model:       openai.GPT4oMini,
		temperature: 0.8,
	}
}

// generatedQuestion mirrors the JSON shape the prompt requests.
type generatedQuestion struct {
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	AudioScript   string `json:"audio_script,omitempty"`
	Passage       string `json:"passage,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`
}

type generatedBatch struct {
	Questions []generatedQuestion `json:"questions"`
}

// Generate requests count questions from the API and parses them into models.
func (g *OpenAI) Generate(ctx context.Context, category models.Category, tier, count int, topic string) ([]models.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	prompt := buildPrompt(category, tier, count, topic)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s questions: %v", category, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	var batch generatedBatch
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %v", err)
	}

	questions := make([]models.Question, 0, len(batch.Questions))
	for _, q := range batch.Questions {
		answer := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
		if answer != "A" && answer != "B" && answer != "C" && answer != "D" {
			continue
		}
		if q.QuestionText == "" || q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
			continue
		}
		if category == models.CategoryListening && q.AudioScript == "" {
			continue
		}
		if category == models.CategoryReading && q.Passage == "" {
			continue
		}
		questions = append(questions, models.Question{
			Category:      category,
			Tier:          tier,
			Text:          q.QuestionText,
			OptionA:       q.OptionA,
			OptionB:       q.OptionB,
			OptionC:       q.OptionC,
			OptionD:       q.OptionD,
			CorrectAnswer: answer,
			Explanation:   q.Explanation,
			AudioScript:   q.AudioScript,
			Passage:       q.Passage,
			DocumentType:  q.DocumentType,
			Source:        models.SourceAI,
		})
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("no usable %s questions in the response", category)
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func buildPrompt(category models.Category, tier, count int, topic string) string {
	level := tierDescriptions[tier]
	if level == "" {
		level = tierDescriptions[5]
	}

	var b strings.Builder
	switch category {
	case models.CategoryListening:
		fmt.Fprintf(&b, "Generate %d TOEIC Part 3/4 style listening questions.\n\n", count)
		fmt.Fprintf(&b, "Difficulty: tier %d of 10 - %s\n\n", tier, level)
		b.WriteString(`For each question write a short talk or two-person conversation (2-4 sentences)
in a workplace or business setting, followed by ONE comprehension question with
four options. Put the spoken text in "audio_script" as plain prose suitable for
text-to-speech (no speaker labels or formatting).

Requirements:
- Natural, realistic spoken English
- The question tests comprehension, inference, or detail recognition
- One answer clearly correct, the others plausible but wrong
`)
	case models.CategoryReading:
		fmt.Fprintf(&b, "Generate %d TOEIC Part 7 style reading comprehension questions.\n\n", count)
		fmt.Fprintf(&b, "Difficulty: tier %d of 10 - %s\n\n", tier, level)
		b.WriteString(`For each question write a short business document (email, memo, notice or
advertisement) of 3-5 sentences in "passage", name its kind in "document_type"
(e.g. "Email", "Memo", "Notice"), and ask ONE comprehension question about it.

Requirements:
- Realistic business English
- The question tests main idea, specific detail, inference, or purpose
- One answer clearly correct, the others plausible but wrong
`)
	default:
		fmt.Fprintf(&b, "Generate %d TOEIC Part 5 style grammar and vocabulary questions.\n\n", count)
		fmt.Fprintf(&b, "Difficulty: tier %d of 10 - %s\n", tier, level)
		if topic != "" {
			fmt.Fprintf(&b, "Focus on: %s\n", topic)
		}
		b.WriteString(`
Each question is a sentence with ONE blank, testing grammar or vocabulary in a
business/workplace context.

Requirements:
- Realistic business English
- One answer clearly correct, the others plausible distractors
- Test understanding of grammar rules, not just vocabulary
`)
	}

	b.WriteString(`
Return ONLY valid JSON in this exact format:
{
  "questions": [
    {
      "question_text": "The company _____ a new product line next quarter.",
      "option_a": "launch",
      "option_b": "launching",
      "option_c": "will launch",
      "option_d": "launched",
      "correct_answer": "C",
      "explanation": "Future tense is needed for 'next quarter'.",
      "audio_script": "spoken text here (listening questions only)",
      "passage": "document text here (reading questions only)",
      "document_type": "Email (reading questions only)"
    }
  ]
}`)
	return b.String()
}
