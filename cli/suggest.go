package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"askai/handler"
	"askai/prompt"
)

func newSuggestCmd() *cobra.Command {
	var (
		book bookFlags
		ai   string
		ask  bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Let the AI suggest an interesting question about a book",
		Example: `  askai suggest -t "Dune" -a "Frank Herbert"
  askai suggest --opf metadata.opf --ask`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			w := out(cmd)

			books, err := book.books()
			if err != nil {
				return err
			}

			s := handler.NewSuggestionHandler(a.client, prompt.NewBuilder(a.cfg))
			question, err := s.Suggest(cmd.Context(), books, ai)
			if err != nil {
				return err
			}

			fmt.Fprintln(w, QuestionStyle.Render(question))
			if !ask {
				return nil
			}

			fmt.Fprintln(w)
			opts := &askOptions{book: book}
			if ai != "" {
				opts.ais = []string{ai}
			}
			return runAsk(cmd, opts, question)
		},
	}

	book.register(cmd)
	cmd.Flags().StringVar(&ai, "ai", "", "Model instance id to ask (default: selected)")
	cmd.Flags().BoolVar(&ask, "ask", false, "Ask the suggested question right away")
	return cmd
}
