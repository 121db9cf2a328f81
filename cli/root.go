// Package cli implements the askai command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"askai/apiclient"
	"askai/config"
	"askai/handler"
	"askai/storage"
)

type ctxKey struct{}

// app holds what every command needs once the config is loaded.
type app struct {
	cfg     *config.Config
	client  *apiclient.Client
	history *storage.HistoryManager
	stats   *storage.StatsStorage
}

// statsRecorder returns the stats store, opening it on first use. Statistics
// are best effort: nil is returned when the database cannot be opened.
func (a *app) statsRecorder() handler.StatsRecorder {
	if a.stats == nil {
		s, err := storage.NewStatsStorage(a.cfg.DataDir())
		if err != nil {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[CLI] Stats disabled: %v", err)
			}
			return nil
		}
		a.stats = s
	}
	return a.stats
}

func (a *app) close() {
	if a.stats != nil {
		a.stats.Close()
	}
}

type globalFlags struct {
	verbose bool
	dataDir string
	lang    string
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(ctxKey{}).(*app)
	return a
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	flags := &globalFlags{}
	var loaded *app

	root := &cobra.Command{
		Use:   "askai",
		Short: "Ask AI models questions about your books",
		Long: `askai sends questions about a book (or several books) to one or more AI
providers and keeps the answers in a local history.

Quick Start:
  askai providers                              List supported providers
  askai models add --provider openai --api-key sk-...
  askai ask --title "Dune" --author "Frank Herbert" "Who is Paul Atreides?"
  askai ask --opf ~/Calibre/Frank\ Herbert/Dune\ \(42\)/metadata.opf "Summarize the plot"

Config: ~/.config/askai/settings.toml, <data_dir>/config.toml
Debug:  ASKAI_DEBUG=1 writes <data_dir>/debug.log`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.lang != "" {
				os.Setenv("ASKAI_LANGUAGE", flags.lang)
			}

			var (
				cfg *config.Config
				err error
			)
			if flags.dataDir != "" {
				cfg, err = config.LoadFrom(flags.dataDir)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			config.InitDebugLog(cfg.DataDir())

			history, err := storage.NewHistoryManager(cfg.DataDir())
			if err != nil {
				return fmt.Errorf("failed to initialize history: %w", err)
			}

			loaded = &app{
				cfg:     cfg,
				client:  apiclient.New(cfg),
				history: history,
			}
			cmd.SetContext(context.WithValue(cmd.Context(), ctxKey{}, loaded))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loaded != nil {
				loaded.close()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Show technical error details")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Override the data directory")
	root.PersistentFlags().StringVar(&flags.lang, "lang", "", "Interface language (en, zh, de, fr, es)")

	root.AddCommand(
		newAskCmd(),
		newSuggestCmd(),
		newModelsCmd(),
		newProvidersCmd(),
		newHistoryCmd(),
		newSecurityCmd(),
		newStatsCmd(),
		newConfigCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		printError(os.Stderr, err, verbose)
		return 1
	}
	return 0
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
