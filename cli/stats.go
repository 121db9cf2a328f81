package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var (
		recent   int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics per AI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			w := out(cmd)

			if a.statsRecorder() == nil {
				return errors.New("statistics database is unavailable")
			}
			stats := a.stats

			if clearAll {
				if err := stats.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(w, SuccessStyle.Render("Statistics cleared"))
				return nil
			}

			if recent > 0 {
				events, err := stats.Recent(recent)
				if err != nil {
					return err
				}
				t := newTable("TIME", "AI", "PROVIDER", "MODEL", "RESULT", "CHARS", "DURATION").limit(3, 30)
				for _, ev := range events {
					result := "ok"
					if !ev.Success {
						result = ev.ErrorType
					}
					t.add(ev.CreatedAt.Local().Format(dateLayout), ev.AIID, ev.Provider, ev.Model, result,
						strconv.Itoa(ev.AnswerChars), formatDuration(ev.Duration))
				}
				t.render(w)
				return nil
			}

			summary, err := stats.Summary()
			if err != nil {
				return err
			}
			if len(summary) == 0 {
				fmt.Fprintln(w, "No requests recorded yet.")
				return nil
			}

			t := newTable("AI", "PROVIDER", "REQUESTS", "FAILED", "AVG", "CHARS", "LAST USED")
			for _, s := range summary {
				t.add(s.AIID, s.Provider, strconv.Itoa(s.Requests), strconv.Itoa(s.Failures),
					formatDuration(s.AvgDuration), strconv.Itoa(s.TotalChars), s.LastUsed.Local().Format(dateLayout))
			}
			t.render(w)
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 0, "Show the N most recent requests instead of the summary")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all statistics")
	return cmd
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
