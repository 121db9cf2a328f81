// Package prompt fills question templates with book metadata.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"askai/config"
	"askai/i18n"
	"askai/model"
)

// Unknown replaces metadata fields the book does not have.
const Unknown = "Unknown"

// DefaultTemplate is used for questions about a single book.
const DefaultTemplate = `I am reading the book "{title}" by {author}.
Publisher: {publisher}
Published: {pubyear}
Language: {language}
Series: {series}

{query}`

// DefaultMultiBookTemplate is used when several books are selected.
const DefaultMultiBookTemplate = `I am comparing the following books:

{books_metadata}

{query}`

// DefaultRandomQuestionTemplate asks the AI to suggest a question.
const DefaultRandomQuestionTemplate = `Suggest one interesting, thought-provoking question a reader might ask about the book "{title}" by {author}. Reply with the question only, without any introduction or explanation.`

// ErrNoBooks is returned when a prompt is built without any book.
var ErrNoBooks = errors.New("at least one book is required")

// Builder renders prompts from templates. Empty templates fall back to the
// defaults.
type Builder struct {
	Template               string
	MultiBookTemplate      string
	RandomQuestionTemplate string
	Language               string
}

// NewBuilder takes the templates and language from the user config.
func NewBuilder(cfg *config.Config) Builder {
	b := Builder{Language: cfg.Language()}
	if cfg.User != nil {
		b.Template = cfg.User.Template
		b.MultiBookTemplate = cfg.User.MultiBookTemplate
		b.RandomQuestionTemplate = cfg.User.RandomQuestionTemplate
	}
	return b
}

// Build renders the question prompt for one or more books.
func (b Builder) Build(books []model.Book, query string) (string, error) {
	switch len(books) {
	case 0:
		return "", ErrNoBooks
	case 1:
		return b.withLanguage(Fill(orDefault(b.Template, DefaultTemplate), books[0], query)), nil
	}

	tmpl := orDefault(b.MultiBookTemplate, DefaultMultiBookTemplate)
	out := strings.NewReplacer(
		"{books_metadata}", BooksMetadata(books),
		"{query}", strings.TrimSpace(query),
	).Replace(tmpl)
	return b.withLanguage(out), nil
}

// RandomQuestion renders the prompt asking for a suggested question. Several
// books are merged into one pseudo-book with joined titles and authors.
func (b Builder) RandomQuestion(books []model.Book) (string, error) {
	if len(books) == 0 {
		return "", ErrNoBooks
	}

	book := books[0]
	if len(books) > 1 {
		titles := make([]string, len(books))
		var authors []string
		for i, bk := range books {
			titles[i] = bk.Title
			authors = append(authors, bk.Authors...)
		}
		book = model.Book{Title: strings.Join(titles, `", "`), Authors: dedupe(authors)}
	}

	return b.withLanguage(Fill(orDefault(b.RandomQuestionTemplate, DefaultRandomQuestionTemplate), book, "")), nil
}

func (b Builder) withLanguage(p string) string {
	if i18n.IsEnglish(b.Language) {
		return p
	}
	return p + "\n\n" + i18n.T(b.Language, i18n.AnswerLanguage)
}

// Fill substitutes the single-book placeholders. Unknown placeholders are
// left untouched.
func Fill(tmpl string, book model.Book, query string) string {
	return strings.NewReplacer(
		"{title}", valueOr(book.Title),
		"{author}", valueOr(book.AuthorString()),
		"{publisher}", valueOr(book.Publisher),
		"{pubyear}", valueOr(book.PubYear()),
		"{language}", valueOr(book.Language),
		"{series}", valueOr(book.Series),
		"{query}", strings.TrimSpace(query),
	).Replace(tmpl)
}

// BooksMetadata lists the books, one numbered block each.
func BooksMetadata(books []model.Book) string {
	var sb strings.Builder
	for i, b := range books {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Book %d:\n", i+1)
		fmt.Fprintf(&sb, "  Title: %s\n", valueOr(b.Title))
		fmt.Fprintf(&sb, "  Author: %s\n", valueOr(b.AuthorString()))
		fmt.Fprintf(&sb, "  Publisher: %s\n", valueOr(b.Publisher))
		fmt.Fprintf(&sb, "  Published: %s\n", valueOr(b.PubYear()))
		fmt.Fprintf(&sb, "  Language: %s\n", valueOr(b.Language))
		if b.Series != "" {
			fmt.Fprintf(&sb, "  Series: %s\n", b.Series)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func valueOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

func orDefault(tmpl, def string) string {
	if strings.TrimSpace(tmpl) == "" {
		return def
	}
	return tmpl
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
