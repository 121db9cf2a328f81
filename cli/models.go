package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"askai/config"
	"askai/provider"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"model"},
		Short:   "Manage configured AI model instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured model instances",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listModels(cmd)
			},
		},
		newModelsAddCmd(),
		newModelsEditCmd(),
		&cobra.Command{
			Use:   "select ID",
			Short: "Make an instance the default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := appFrom(cmd)
				if err := a.cfg.SelectModel(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), SuccessStyle.Render("Selected "+args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:     "remove ID",
			Aliases: []string{"rm"},
			Short:   "Remove an instance and its stored API key",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := appFrom(cmd)
				if err := a.cfg.RemoveModel(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), SuccessStyle.Render("Removed "+args[0]))
				return nil
			},
		},
		newModelsFetchCmd(),
		&cobra.Command{
			Use:   "test [ID]",
			Short: "Send a short test prompt to an instance",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := appFrom(cmd)
				id := ""
				if len(args) == 1 {
					id = args[0]
				}
				answer, err := a.client.TestConnection(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), SuccessStyle.Render("Connection OK: ")+truncate(answer, 60))
				return nil
			},
		},
	)
	return cmd
}

func listModels(cmd *cobra.Command) error {
	a := appFrom(cmd)
	w := out(cmd)

	ids := a.cfg.SortedModelIDs()
	if len(ids) == 0 {
		fmt.Fprintln(w, "No model instances configured.")
		fmt.Fprintln(w, FormatHint(
			"askai providers", "List supported providers",
			"askai models add --provider grok --api-key KEY", "Add an instance",
		))
		return nil
	}

	t := newTable("", "ID", "PROVIDER", "MODEL", "NAME", "STREAM").limit(3, 40).limit(4, 30)
	for _, id := range ids {
		inst, _ := a.cfg.Instance(id)
		mark := ""
		if id == a.cfg.User.SelectedModel {
			mark = "*"
		}
		modelName := inst.Model
		if modelName == "" {
			if meta, ok := provider.Lookup(provider.ProviderType(inst.Provider)); ok {
				modelName = meta.DefaultModel + " (default)"
			}
		}
		t.add(mark, id, inst.Provider, modelName, inst.DisplayName, yesNo(inst.EnableStreaming))
	}
	t.render(w)
	return nil
}

type addOptions struct {
	provider    string
	model       string
	baseURL     string
	name        string
	apiKey      string
	noStream    bool
	temperature float64
	maxTokens   int
	selectIt    bool
	skipCheck   bool
}

func newModelsAddCmd() *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a model instance",
		Long: `Add a model instance. The API key is checked against the provider's
requirements and stored with the configured security method.

The key may also come from ASKAI_<PROVIDER>_API_KEY, which always takes
precedence over the stored one.`,
		Example: `  askai models add --provider openai --api-key sk-... --model gpt-4o
  askai models add --provider ollama --model llama3.1:latest
  askai models add --provider custom --base-url http://localhost:1234 --model qwen2.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelsAdd(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.provider, "provider", "p", "", "Provider id (see 'askai providers')")
	f.StringVarP(&opts.model, "model", "m", "", "Model name (default: provider default)")
	f.StringVar(&opts.baseURL, "base-url", "", "API base URL (default: provider default)")
	f.StringVar(&opts.name, "name", "", "Display name")
	f.StringVar(&opts.apiKey, "api-key", "", "API key")
	f.BoolVar(&opts.noStream, "no-stream", false, "Disable streaming for this instance")
	f.Float64Var(&opts.temperature, "temperature", 0, "Default sampling temperature")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "Default maximum answer length in tokens")
	f.BoolVar(&opts.selectIt, "select", false, "Make the new instance the default")
	f.BoolVar(&opts.skipCheck, "skip-check", false, "Store the instance without validating the key")
	cmd.MarkFlagRequired("provider")
	return cmd
}

func runModelsAdd(cmd *cobra.Command, opts *addOptions) error {
	a := appFrom(cmd)

	id := provider.ProviderType(strings.ToLower(opts.provider))
	if _, ok := provider.Lookup(id); !ok {
		return fmt.Errorf("unknown provider %q (see 'askai providers')", opts.provider)
	}

	inst := config.ModelInstance{
		Provider:        string(id),
		DisplayName:     opts.name,
		APIBaseURL:      opts.baseURL,
		Model:           opts.model,
		EnableStreaming: !opts.noStream,
		MaxTokens:       opts.maxTokens,
	}
	if cmd.Flags().Changed("temperature") {
		t := opts.temperature
		inst.Temperature = &t
	}

	if !opts.skipCheck {
		key := opts.apiKey
		if key == "" {
			key = config.EnvAPIKey(string(id))
		}
		if _, err := provider.CreateModel(id, provider.Config{
			Type:        id,
			BaseURL:     inst.APIBaseURL,
			Model:       inst.Model,
			APIKey:      key,
			DisplayName: inst.DisplayName,
			Language:    a.cfg.Language(),
		}); err != nil {
			return err
		}
	}

	newID, err := a.cfg.AddModel(inst, opts.apiKey)
	if err != nil {
		return err
	}
	if opts.selectIt {
		if err := a.cfg.SelectModel(newID); err != nil {
			return err
		}
	}

	w := out(cmd)
	fmt.Fprintln(w, SuccessStyle.Render("Added "+newID))
	if a.cfg.User.SelectedModel == newID {
		fmt.Fprintln(w, DimStyle.Render("This instance is the default."))
	}
	return nil
}

func newModelsEditCmd() *cobra.Command {
	opts := &addOptions{}
	var stream bool

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change settings of a model instance",
		Long: `Change settings of a model instance. Only the flags given are changed;
an empty --api-key keeps the stored key.`,
		Example: `  askai models edit 1a2b3c4d --model gpt-4o
  askai models edit 1a2b3c4d --stream=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			id := args[0]

			inst, ok := a.cfg.Instance(id)
			if !ok {
				return fmt.Errorf("model instance %q not found", id)
			}

			f := cmd.Flags()
			if f.Changed("model") {
				inst.Model = opts.model
			}
			if f.Changed("base-url") {
				inst.APIBaseURL = opts.baseURL
			}
			if f.Changed("name") {
				inst.DisplayName = opts.name
			}
			if f.Changed("stream") {
				inst.EnableStreaming = stream
			}
			if f.Changed("max-tokens") {
				inst.MaxTokens = opts.maxTokens
			}
			if f.Changed("temperature") {
				t := opts.temperature
				inst.Temperature = &t
			}

			if err := a.cfg.UpdateModel(id, inst, opts.apiKey); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), SuccessStyle.Render("Updated "+id))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "Model name")
	f.StringVar(&opts.baseURL, "base-url", "", "API base URL")
	f.StringVar(&opts.name, "name", "", "Display name")
	f.StringVar(&opts.apiKey, "api-key", "", "New API key")
	f.BoolVar(&stream, "stream", true, "Enable streaming")
	f.Float64Var(&opts.temperature, "temperature", 0, "Default sampling temperature")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "Default maximum answer length in tokens")
	return cmd
}

func newModelsFetchCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "fetch [ID]",
		Short: "List the models an instance's provider offers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			id := ""
			if len(args) == 1 {
				id = args[0]
			}

			models, err := a.client.FetchModels(cmd.Context(), id)
			if err != nil {
				return err
			}

			names := make([]string, len(models))
			for i, m := range models {
				names[i] = m.ID
			}
			names = filterNames(names, filter)
			if len(names) == 0 {
				return errors.New("no matching models")
			}

			w := out(cmd)
			for _, name := range names {
				fmt.Fprintln(w, name)
			}
			fmt.Fprintln(w, DimStyle.Render(strconv.Itoa(len(names))+" model(s)"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on model names")
	return cmd
}

// filterNames returns names fuzzy-matching pattern, best first. An empty
// pattern keeps every name in order.
func filterNames(names []string, pattern string) []string {
	if pattern == "" {
		return names
	}
	matches := fuzzy.Find(pattern, names)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
