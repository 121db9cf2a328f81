// Package render turns AI answers written in Markdown into HTML for export and
// into ANSI-styled text for the terminal.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	termmarkdown "github.com/MichaelMure/go-term-markdown"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// ToHTML renders markdown as an HTML fragment. Raw HTML in the input is
// dropped and external links open in a new window.
func ToHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink |
			mdhtml.HrefTargetBlank | mdhtml.NoopenerLinks | mdhtml.NoreferrerLinks,
	})
	return string(markdown.ToHTML([]byte(md), p, r))
}

// HTMLDocument wraps an HTML fragment into a standalone page.
func HTMLDocument(title, body string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("<style>body{max-width:48em;margin:2em auto;font-family:sans-serif;line-height:1.5}pre{background:#f4f4f4;padding:1em;overflow:auto}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

// ToTerminal renders markdown for a terminal of the given width.
func ToTerminal(md string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	// Plain URLs are left for the terminal emulator to detect.
	md = mdLinkRegex.ReplaceAllString(md, "$2")

	ext := termmarkdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := termmarkdown.NewRenderer(width, 0)
	out := markdown.Render(p.Parse([]byte(md)), r)

	// Inline code: blue background + italic -> red text
	return inlineCodeRegex.ReplaceAllString(string(out), "\x1b[31m$1\x1b[0m")
}

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
