package cli

import (
	"github.com/spf13/cobra"

	"askai/config"
	"askai/provider"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported AI providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := newTable("ID", "NAME", "DEFAULT MODEL", "KEY", "BASE URL")
			for _, meta := range provider.Registry() {
				t.add(string(meta.ID), meta.DisplayName, meta.DefaultModel, keyRequirement(meta), meta.DefaultBaseURL)
			}
			t.render(out(cmd))
			return nil
		},
	}
}

func keyRequirement(meta provider.ModelConfig) string {
	switch {
	case meta.RequiresKey() && config.EnvAPIKey(string(meta.ID)) != "":
		return "env"
	case meta.RequiresKey():
		return "required"
	case meta.APIKeyField != "":
		return "optional"
	default:
		return "none"
	}
}
