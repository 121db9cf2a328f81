package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"askai/config"
)

func newSecurityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Choose how API keys are stored",
		Long: `API keys are stored in <data_dir>/credentials.toml (plaintext) or sealed
with a key derived from an SSH private key in <data_dir>/credentials.enc
(ssh_key). Set ASKAI_SSH_PASSPHRASE when the SSH key is encrypted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSecurity(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current storage method",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showSecurity(cmd)
			},
		},
		newSecuritySetCmd(),
		&cobra.Command{
			Use:   "keys",
			Short: "List SSH private keys usable for encryption",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				keys, err := config.FindSSHKeys()
				if err != nil {
					return err
				}
				w := out(cmd)
				if len(keys) == 0 {
					fmt.Fprintln(w, "No SSH keys found in ~/.ssh.")
					fmt.Fprintln(w, FormatHint("askai security create-key", "Create a dedicated key"))
					return nil
				}
				t := newTable("KEY", "PASSPHRASE")
				for _, k := range keys {
					t.add(k, passphraseState(k))
				}
				t.render(w)
				return nil
			},
		},
		&cobra.Command{
			Use:   "create-key",
			Short: "Create a dedicated ed25519 key with ssh-keygen",
			Long: `Create ~/.ssh/askai_ed25519 with ssh-keygen. The key is protected with
ASKAI_SSH_PASSPHRASE when set.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if config.KeyExists() {
					fmt.Fprintln(out(cmd), DimStyle.Render(config.GetKeyPath()+" exists, creating a dated key instead."))
				}
				path, err := config.CreateKey(os.Getenv("ASKAI_SSH_PASSPHRASE"))
				if err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), SuccessStyle.Render("Created "+path))
				return nil
			},
		},
	)
	return cmd
}

func showSecurity(cmd *cobra.Command) error {
	a := appFrom(cmd)
	w := out(cmd)

	method := a.cfg.CredentialStore.GetMethod()
	fmt.Fprintln(w, TitleStyle.Render("Method: ")+SelectedStyle.Render(string(method)))
	if method == config.SecuritySSHKey {
		fmt.Fprintln(w, TitleStyle.Render("Key:    ")+a.cfg.User.Security.SSHKeyPath)
	}
	return nil
}

func newSecuritySetCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:       "set plaintext|ssh_key",
		Short:     "Switch the storage method and rewrite stored keys",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(config.SecurityPlainText), string(config.SecuritySSHKey)},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			method := config.SecurityMethod(args[0])

			switch method {
			case config.SecurityPlainText:
				keyPath = ""
			case config.SecuritySSHKey:
				resolved, err := resolveSSHKey(keyPath)
				if err != nil {
					return err
				}
				keyPath = resolved
			default:
				return fmt.Errorf("unknown security method %q (plaintext or ssh_key)", args[0])
			}

			store := a.cfg.CredentialStore
			store.SetMethod(method, keyPath)
			if err := store.Save(a.cfg.DataDir()); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			a.cfg.User.Security = config.SecurityConfig{Method: string(method), SSHKeyPath: keyPath}
			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintln(out(cmd), SuccessStyle.Render("Credentials are now stored as "+string(method)))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key (default: askai key or first key in ~/.ssh)")
	return cmd
}

// resolveSSHKey picks the key to seal credentials with and checks that it
// can be used non-interactively.
func resolveSSHKey(keyPath string) (string, error) {
	if keyPath == "" {
		keys, err := config.FindSSHKeys()
		if err != nil {
			return "", err
		}
		if len(keys) == 0 {
			return "", errors.New("no SSH key found: pass --key or run 'askai security create-key'")
		}
		keyPath = keys[0]
	}
	keyPath = config.ExpandPath(keyPath)

	encrypted, err := config.IsSSHKeyEncrypted(keyPath)
	if err != nil {
		return "", err
	}
	if encrypted && os.Getenv("ASKAI_SSH_PASSPHRASE") == "" {
		return "", fmt.Errorf("%s is passphrase protected: set ASKAI_SSH_PASSPHRASE", keyPath)
	}
	return keyPath, nil
}

func passphraseState(keyPath string) string {
	encrypted, err := config.IsSSHKeyEncrypted(keyPath)
	switch {
	case err != nil:
		return "unreadable"
	case encrypted:
		return "yes"
	default:
		return "no"
	}
}
