package handler

import (
	"context"
	"errors"
	"strings"

	"askai/config"
	"askai/model"
	"askai/prompt"
	"askai/provider"
)

// SuggestionHandler asks an AI to propose a question about the books.
type SuggestionHandler struct {
	client  Asker
	prompts prompt.Builder
}

func NewSuggestionHandler(client Asker, prompts prompt.Builder) *SuggestionHandler {
	return &SuggestionHandler{client: client, prompts: prompts}
}

// Suggest returns a question suggested by instanceID ("" for the selected
// instance). Every failure is reported as a random_question_error.
func (s *SuggestionHandler) Suggest(ctx context.Context, books []model.Book, instanceID string) (string, error) {
	p, err := s.prompts.RandomQuestion(books)
	if err != nil {
		return "", provider.NewRandomQuestionError(s.prompts.Language, err)
	}

	answer, err := s.client.AskWith(ctx, instanceID, p, model.AskOptions{})
	if err != nil {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Suggest] Random question failed: %v", err)
		}
		return "", provider.NewRandomQuestionError(s.prompts.Language, err)
	}

	question := cleanQuestion(answer)
	if question == "" {
		return "", provider.NewRandomQuestionError(s.prompts.Language, errors.New("empty suggestion"))
	}
	return question, nil
}

// cleanQuestion keeps the first non-empty line and strips list markers,
// labels and surrounding quotes.
func cleanQuestion(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "-*# ")
		line = strings.TrimPrefix(line, "Question:")
		line = strings.TrimSpace(strings.TrimLeft(line, "* "))
		return strings.Trim(line, `"“”'`)
	}
	return ""
}
