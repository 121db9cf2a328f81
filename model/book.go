package model

import "strings"

// Book holds the metadata used to fill prompt templates and tag history records.
type Book struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Authors     []string          `json:"authors,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	PubDate     string            `json:"pubdate,omitempty"`
	Language    string            `json:"language,omitempty"`
	Series      string            `json:"series,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
}

// AuthorString joins the authors with " & " the way calibre displays them.
func (b Book) AuthorString() string {
	return strings.Join(b.Authors, " & ")
}

// PubYear returns the leading four-digit year of PubDate, or "" if none.
func (b Book) PubYear() string {
	if len(b.PubDate) >= 4 {
		year := b.PubDate[:4]
		for _, r := range year {
			if r < '0' || r > '9' {
				return ""
			}
		}
		return year
	}
	return ""
}

// BookIDs returns the ids of the given books in order.
func BookIDs(books []Book) []string {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return ids
}
