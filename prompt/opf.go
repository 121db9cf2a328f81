package prompt

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"askai/model"
)

type opfPackage struct {
	Metadata opfMetadata `xml:"metadata"`
}

type opfMetadata struct {
	Titles      []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators    []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Publisher   string          `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Date        string          `xml:"http://purl.org/dc/elements/1.1/ date"`
	Languages   []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifiers []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Metas       []opfMeta       `xml:"meta"`
}

type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
}

type opfIdentifier struct {
	Value  string `xml:",chardata"`
	Scheme string `xml:"http://www.idpf.org/2007/opf scheme,attr"`
	ID     string `xml:"id,attr"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// BookFromOPF reads the metadata.opf file calibre keeps next to every book.
// The book id is the calibre id, then the uuid, then the containing folder name.
func BookFromOPF(path string) (model.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Book{}, fmt.Errorf("failed to read OPF: %w", err)
	}

	book, err := parseOPF(data)
	if err != nil {
		return model.Book{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if book.ID == "" {
		book.ID = filepath.Base(filepath.Dir(path))
	}
	return book, nil
}

func parseOPF(data []byte) (model.Book, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return model.Book{}, err
	}
	md := pkg.Metadata

	book := model.Book{
		Publisher:   strings.TrimSpace(md.Publisher),
		PubDate:     strings.TrimSpace(md.Date),
		Identifiers: make(map[string]string),
	}
	if len(md.Titles) > 0 {
		book.Title = strings.TrimSpace(md.Titles[0])
	}
	if len(md.Languages) > 0 {
		book.Language = strings.TrimSpace(md.Languages[0])
	}

	for _, c := range md.Creators {
		name := strings.TrimSpace(c.Name)
		if name == "" || (c.Role != "" && c.Role != "aut") {
			continue
		}
		book.Authors = append(book.Authors, name)
	}

	for _, id := range md.Identifiers {
		scheme := strings.ToLower(id.Scheme)
		value := strings.TrimSpace(id.Value)
		if scheme == "" || value == "" {
			continue
		}
		book.Identifiers[scheme] = value
	}
	switch {
	case book.Identifiers["calibre"] != "":
		book.ID = book.Identifiers["calibre"]
	case book.Identifiers["uuid"] != "":
		book.ID = book.Identifiers["uuid"]
	}

	for _, m := range md.Metas {
		if m.Name == "calibre:series" {
			book.Series = strings.TrimSpace(m.Content)
		}
	}

	if book.Title == "" {
		return book, fmt.Errorf("no dc:title in metadata")
	}
	return book, nil
}
