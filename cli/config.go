package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"askai/config"
	"askai/i18n"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func showConfig(cmd *cobra.Command) error {
	a := appFrom(cmd)
	w := out(cmd)

	settings := config.GetSettingsFilePath()
	if !config.SystemConfigExists() {
		settings += DimStyle.Render(" (not created)")
	}

	t := newTable("SETTING", "VALUE")
	t.add("settings file", settings)
	t.add("data directory", a.cfg.DataDir())
	t.add("user config", filepath.Join(a.cfg.DataDir(), "config.toml"))
	t.add("history", a.history.Path())
	t.add("language", a.cfg.Language())
	t.add("request timeout", a.cfg.RequestTimeout().String())
	t.add("stall timeout", a.cfg.StallTimeout().String())
	t.add("selected model", a.cfg.User.SelectedModel)
	t.add("credentials", string(a.cfg.CredentialStore.GetMethod()))
	t.add("debug log", yesNo(config.CheckDebug()))
	t.render(w)
	return nil
}

var settableKeys = []string{"language", "request_timeout", "stall_timeout", "data_directory"}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Change a setting (language, request_timeout, stall_timeout, data_directory)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settableKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			key, value := args[0], args[1]

			switch key {
			case "language":
				value = strings.ToLower(value)
				if !slices.Contains(i18n.Languages(), value) {
					return fmt.Errorf("unsupported language %q (%s)", value, strings.Join(i18n.Languages(), ", "))
				}
				a.cfg.User.Language = value
			case "request_timeout", "stall_timeout":
				secs, err := strconv.Atoi(value)
				if err != nil || secs <= 0 {
					return fmt.Errorf("%s must be a positive number of seconds", key)
				}
				if key == "request_timeout" {
					a.cfg.User.RequestTimeout = secs
				} else {
					a.cfg.User.StallTimeout = secs
				}
			case "data_directory":
				sys := config.DefaultSystemConfig()
				sys.DataDirectory = value
				if err := config.SaveSystemConfig(sys); err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), SuccessStyle.Render("Data directory set to "+value))
				fmt.Fprintln(out(cmd), DimStyle.Render("Existing history and credentials are not moved."))
				return nil
			default:
				return fmt.Errorf("unknown setting %q", key)
			}

			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintln(out(cmd), SuccessStyle.Render(key+" = "+value))
			return nil
		},
	}
}
