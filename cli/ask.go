package cli

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"askai/handler"
	"askai/model"
	"askai/prompt"
	"askai/render"
)

// bookFlags describes a book on the command line, either field by field or
// through calibre metadata.opf files.
type bookFlags struct {
	id        string
	title     string
	authors   []string
	publisher string
	pubdate   string
	language  string
	series    string
	opfs      []string
}

func (b *bookFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&b.id, "id", "", "Book id used to group history (default: derived from the title)")
	f.StringVarP(&b.title, "title", "t", "", "Book title")
	f.StringArrayVarP(&b.authors, "author", "a", nil, "Book author (repeatable)")
	f.StringVar(&b.publisher, "publisher", "", "Publisher")
	f.StringVar(&b.pubdate, "pubdate", "", "Publication date (YYYY or YYYY-MM-DD)")
	f.StringVar(&b.language, "language", "", "Book language")
	f.StringVar(&b.series, "series", "", "Series name")
	f.StringArrayVar(&b.opfs, "opf", nil, "calibre metadata.opf file (repeatable, one per book)")
}

// books returns the books described by the flags: every --opf file in order,
// then the book given by --title, if any.
func (b *bookFlags) books() ([]model.Book, error) {
	var books []model.Book
	for _, path := range b.opfs {
		book, err := prompt.BookFromOPF(path)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	if b.title != "" {
		book := model.Book{
			ID:        b.id,
			Title:     strings.TrimSpace(b.title),
			Authors:   b.authors,
			Publisher: b.publisher,
			PubDate:   b.pubdate,
			Language:  b.language,
			Series:    b.series,
		}
		if book.ID == "" {
			book.ID = bookIDFromTitle(book.Title, book.Authors)
		}
		books = append(books, book)
	} else if b.id != "" || len(b.authors) > 0 {
		return nil, errors.New("--title is required when describing a book with flags")
	}

	if len(books) == 0 {
		return nil, errors.New("no book given: use --title or --opf")
	}
	return books, nil
}

// bookIDFromTitle derives a stable id for books entered by hand so repeated
// questions about the same book share history.
func bookIDFromTitle(title string, authors []string) string {
	parts := append([]string{title}, authors...)
	return strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, " ")), "-"))
}

type askOptions struct {
	book        bookFlags
	ais         []string
	noStream    bool
	raw         bool
	htmlPath    string
	copy        bool
	temperature float64
	maxTokens   int
}

func newAskCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [flags] QUESTION...",
		Short: "Ask one or more AIs a question about a book",
		Long: `Ask one or more AIs a question about a book, or compare several books.

Every answer is saved in the history under one id. With a single AI the
answer is streamed as it arrives; with several AIs they run in parallel and
are printed in the order given.`,
		Example: `  askai ask -t "Dune" -a "Frank Herbert" "Who is Paul Atreides?"
  askai ask --opf a/metadata.opf --opf b/metadata.opf "Compare the narrators"
  askai ask --ai 1a2b3c4d --ai 5e6f7a8b -t "Emma" "Is Emma likeable?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, strings.Join(args, " "))
		},
	}

	opts.book.register(cmd)
	f := cmd.Flags()
	f.StringArrayVar(&opts.ais, "ai", nil, "Model instance id to ask (repeatable, default: selected)")
	f.BoolVar(&opts.noStream, "no-stream", false, "Wait for the full answer instead of streaming")
	f.BoolVar(&opts.raw, "raw", false, "Print the markdown as received")
	f.StringVar(&opts.htmlPath, "html", "", "Also write the answers as an HTML page to this file")
	f.BoolVar(&opts.copy, "copy", false, "Copy the first answer to the clipboard")
	f.Float64Var(&opts.temperature, "temperature", 0, "Sampling temperature (default: instance setting)")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "Maximum answer length in tokens (default: instance setting)")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *askOptions, question string) error {
	a := appFrom(cmd)
	w := out(cmd)

	books, err := opts.book.books()
	if err != nil {
		return err
	}

	req := handler.Request{
		Books:     books,
		Question:  question,
		AIIDs:     opts.ais,
		Stream:    !opts.noStream,
		MaxTokens: opts.maxTokens,
	}
	if cmd.Flags().Changed("temperature") {
		t := opts.temperature
		req.Temperature = &t
	}

	h := handler.NewResponseHandler(a.client, a.history, a.statsRecorder(), prompt.NewBuilder(a.cfg))

	// Only a single answer can be printed while it streams.
	live := req.Stream && len(opts.ais) <= 1
	if live {
		h.OnChunk = func(_, chunk string) {
			fmt.Fprint(w, chunk)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	resp, err := h.Ask(ctx, req)
	if resp == nil {
		return err
	}

	if live {
		fmt.Fprintln(w)
		if res := resp.Results[0]; res.Err == nil && !opts.raw {
			fmt.Fprintln(w, DimStyle.Render("via "+sourceLabel(res.Source)))
		}
	} else {
		printResults(w, resp, opts.raw, len(resp.Results) > 1)
	}

	if succeeded := resp.Succeeded(); len(succeeded) > 0 {
		if opts.htmlPath != "" {
			if err := writeHTML(opts.htmlPath, books, question, succeeded); err != nil {
				return err
			}
			fmt.Fprintln(w, DimStyle.Render("HTML written to "+opts.htmlPath))
		}
		if opts.copy {
			if err := clipboard.WriteAll(succeeded[0].Answer); err != nil {
				fmt.Fprintln(w, DimStyle.Render("Could not copy to clipboard: "+err.Error()))
			}
		}
		fmt.Fprintln(w, DimStyle.Render("Saved to history as "+resp.UID))
	}

	return err
}

// printResults prints every answer in request order. Failed AIs are listed
// inline when there are several of them; a lone failure is returned by Ask.
func printResults(w io.Writer, resp *handler.Response, raw, headers bool) {
	for i, res := range resp.Results {
		if headers {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, AIStyle.Render("## "+sourceLabel(res.Source))+" "+DimStyle.Render(res.AIID))
		}
		if res.Err != nil {
			if headers {
				fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+res.Err.Error())
			}
			continue
		}
		if raw {
			fmt.Fprintln(w, res.Answer)
			continue
		}
		fmt.Fprint(w, renderAnswer(res.Answer, plainOutput()))
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%s · %.1fs", sourceLabel(res.Source), res.Duration.Seconds())))
	}
}

func sourceLabel(src model.AnswerSource) string {
	name := src.DisplayName
	if name == "" {
		name = src.Provider
	}
	if src.Model == "" {
		return name
	}
	return name + " (" + src.Model + ")"
}

func writeHTML(path string, books []model.Book, question string, results []handler.Result) error {
	titles := make([]string, len(books))
	for i, b := range books {
		titles[i] = b.Title
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(question))
	for _, res := range results {
		fmt.Fprintf(&body, "<h2>%s</h2>\n%s\n", html.EscapeString(sourceLabel(res.Source)), res.HTML)
	}

	doc := render.HTMLDocument(strings.Join(titles, ", "), body.String())
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		return fmt.Errorf("failed to write HTML: %w", err)
	}
	return nil
}

// renderAnswer formats markdown for the terminal. plain drops the escape
// sequences go-term-markdown always emits.
func renderAnswer(md string, plain bool) string {
	out := render.ToTerminal(md, terminalWidth())
	if plain {
		return render.StripANSI(out)
	}
	return out
}

// plainOutput reports whether stdout cannot show colors (a pipe or a file).
func plainOutput() bool {
	return lipgloss.ColorProfile() == termenv.Ascii
}

// terminalWidth reads $COLUMNS, falling back to the renderer default.
func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return render.DefaultWidth
}
