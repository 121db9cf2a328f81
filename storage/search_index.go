package storage

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// SearchMatch is a history record matching a search query.
type SearchMatch struct {
	UID       string
	Title     string
	Question  string
	AIID      string // set when the match came from an answer body
	Preview   string
	Timestamp time.Time
	Score     int
}

const previewLength = 100

// Search finds records whose book titles or question fuzzy-match query, plus
// records whose answers contain query. Best matches first.
func (h *HistoryManager) Search(query string) ([]SearchMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchMatch{}, nil
	}

	records, err := h.List()
	if err != nil {
		return nil, err
	}

	targets := make([]string, len(records))
	for i, rec := range records {
		targets[i] = headline(rec)
	}

	seen := make(map[string]bool)
	var matches []SearchMatch

	for _, m := range fuzzy.Find(query, targets) {
		rec := records[m.Index]
		seen[rec.UID] = true
		matches = append(matches, SearchMatch{
			UID:       rec.UID,
			Title:     bookTitles(rec),
			Question:  rec.Question,
			Preview:   preview(rec.Question),
			Timestamp: rec.Timestamp,
			Score:     m.Score,
		})
	}

	// Answers are long, so fuzzy scoring is meaningless there; use substrings.
	var answerMatches []SearchMatch
	for _, rec := range records {
		if seen[rec.UID] {
			continue
		}
		for _, aiID := range rec.AIIDs() {
			text := rec.Answers[aiID].Answer
			at := indexFold(text, query)
			if at < 0 {
				continue
			}
			answerMatches = append(answerMatches, SearchMatch{
				UID:       rec.UID,
				Title:     bookTitles(rec),
				Question:  rec.Question,
				AIID:      aiID,
				Preview:   preview(string([]rune(text)[at:])),
				Timestamp: rec.Timestamp,
			})
			break
		}
	}
	sort.SliceStable(answerMatches, func(i, j int) bool {
		return answerMatches[i].Timestamp.After(answerMatches[j].Timestamp)
	})

	return append(matches, answerMatches...), nil
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of query in text, or -1. Lowercasing can change a rune's byte length, so
// byte offsets in the folded copy do not map onto text.
func indexFold(text, query string) int {
	folded := foldRunes(text)
	idx := strings.Index(folded, foldRunes(query))
	if idx < 0 {
		return -1
	}
	return utf8.RuneCountInString(folded[:idx])
}

func foldRunes(s string) string {
	r := []rune(s)
	for i := range r {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

func headline(rec HistoryRecord) string {
	return bookTitles(rec) + " " + rec.Question
}

func bookTitles(rec HistoryRecord) string {
	titles := make([]string, 0, len(rec.Books))
	for _, b := range rec.Books {
		if b.Title != "" {
			titles = append(titles, b.Title)
		}
	}
	return strings.Join(titles, ", ")
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > previewLength {
		return string(r[:previewLength]) + "..."
	}
	return s
}
