package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"askai/config"
	"askai/storage"
)

const dateLayout = "2006-01-02 15:04"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse, search and export saved answers",
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistorySearchCmd(),
		&cobra.Command{
			Use:     "delete UID",
			Aliases: []string{"rm"},
			Short:   "Delete a history record",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := appFrom(cmd).history.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), SuccessStyle.Render("Deleted "+args[0]))
				return nil
			},
		},
		newHistoryClearCmd(),
		newHistoryExportCmd(),
	)
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		bookID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history records, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := appFrom(cmd).history

			var (
				records []storage.HistoryRecord
				err     error
			)
			if bookID != "" {
				records, err = h.GetHistoriesForBook(bookID)
			} else {
				records, err = h.List()
			}
			if err != nil {
				return err
			}

			w := out(cmd)
			if len(records) == 0 {
				fmt.Fprintln(w, "No history yet.")
				return nil
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			t := newTable("UID", "DATE", "BOOKS", "QUESTION", "AIS").limit(2, 30).limit(3, 50)
			for _, rec := range records {
				t.add(rec.UID, rec.Timestamp.Local().Format(dateLayout), recordTitles(rec), rec.Question, strconv.Itoa(len(rec.Answers)))
			}
			t.render(w)
			return nil
		},
	}

	cmd.Flags().StringVar(&bookID, "book", "", "Only records about this book id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show UID",
		Short: "Show a record with all its answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := appFrom(cmd).history.GetHistoryByUID(args[0])
			if err != nil {
				return err
			}
			printRecord(out(cmd), rec, raw)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the answers as markdown")
	return cmd
}

func printRecord(w io.Writer, rec *storage.HistoryRecord, raw bool) {
	fmt.Fprintln(w, TitleStyle.Render(recordTitles(*rec)))
	fmt.Fprintln(w, DimStyle.Render(rec.UID+" · "+rec.Mode+" · "+rec.Timestamp.Local().Format(dateLayout)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, QuestionStyle.Render("Q: "+rec.Question))

	for _, aiID := range rec.AIIDs() {
		ans := rec.Answers[aiID]
		fmt.Fprintln(w)
		fmt.Fprintln(w, AIStyle.Render("## "+sourceLabel(ans.ModelInfo))+" "+DimStyle.Render(aiID+" · "+ans.Timestamp.Local().Format(dateLayout)))
		if raw {
			fmt.Fprintln(w, ans.Answer)
		} else {
			fmt.Fprint(w, renderAnswer(ans.Answer, plainOutput()))
		}
	}
}

func recordTitles(rec storage.HistoryRecord) string {
	titles := make([]string, 0, len(rec.Books))
	for _, b := range rec.Books {
		titles = append(titles, b.Title)
	}
	return strings.Join(titles, ", ")
}

func newHistorySearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search titles, questions and answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := appFrom(cmd).history.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}

			w := out(cmd)
			if len(matches) == 0 {
				fmt.Fprintln(w, "No matches.")
				return nil
			}

			t := newTable("UID", "DATE", "BOOKS", "MATCH").limit(2, 30).limit(3, 60)
			for _, m := range matches {
				match := m.Question
				if m.AIID != "" {
					match = m.AIID + ": " + m.Preview
				}
				t.add(m.UID, m.Timestamp.Local().Format(dateLayout), m.Title, match)
			}
			t.render(w)
			return nil
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the history without --yes")
			}
			n, err := appFrom(cmd).history.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), SuccessStyle.Render(fmt.Sprintf("Deleted %d record(s)", n)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export UID",
		Short: "Export a record as JSON",
		Long: `Export a record as JSON. Without --output the file is written to
~/Downloads/askai-<title>-<timestamp>.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := appFrom(cmd).history

			path := output
			if path == "" {
				rec, err := h.GetHistoryByUID(args[0])
				if err != nil {
					return err
				}
				name := recordTitles(*rec)
				if name == "" {
					name = rec.UID
				}
				path = config.GenerateExportPath(name)
			}

			if err := h.ExportToJSON(args[0], path); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), SuccessStyle.Render("Exported to "+path))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	return cmd
}
