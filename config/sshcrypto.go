package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
)

const askaiKeyName = "askai_ed25519"

// candidateKeyNames lists the private keys FindSSHKeys looks for, best first.
var candidateKeyNames = []string{askaiKeyName, "id_ed25519", "id_rsa", "id_ecdsa"}

func readKeyFile(keyPath string) ([]byte, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	return data, nil
}

// LoadSSHPrivateKey parses an unencrypted private key.
func LoadSSHPrivateKey(keyPath string) (ssh.Signer, error) {
	data, err := readKeyFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}
	return signer, nil
}

// LoadSSHPrivateKeyWithPassphrase parses a passphrase-protected private key.
func LoadSSHPrivateKeyWithPassphrase(keyPath, passphrase string) (ssh.Signer, error) {
	data, err := readKeyFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key (wrong passphrase?): %w", err)
	}
	return signer, nil
}

// IsSSHKeyEncrypted reports whether the key at keyPath needs a passphrase.
func IsSSHKeyEncrypted(keyPath string) (bool, error) {
	data, err := readKeyFile(keyPath)
	if err != nil {
		return false, err
	}

	_, err = ssh.ParsePrivateKey(data)
	if err == nil {
		return false, nil
	}

	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return true, nil
	}
	return false, fmt.Errorf("invalid SSH key: %w", err)
}

// FindSSHKeys returns the private keys found in ~/.ssh, the askai key first.
func FindSSHKeys() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	sshDir := filepath.Join(homeDir, ".ssh")

	var found []string
	for _, name := range candidateKeyNames {
		keyPath := filepath.Join(sshDir, name)
		data, err := os.ReadFile(keyPath)
		if err != nil {
			continue
		}
		if bytes.Contains(data, []byte("PRIVATE KEY")) {
			found = append(found, keyPath)
		}
	}
	return found, nil
}

// CreateKey runs ssh-keygen to create an ed25519 key for credential
// encryption. An existing askai_ed25519 is never overwritten; a dated
// suffix is used instead. Returns the path of the new private key.
func CreateKey(passphrase string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	sshDir := filepath.Join(homeDir, ".ssh")
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create .ssh directory: %w", err)
	}

	keyPath, err := unusedKeyPath(sshDir)
	if err != nil {
		return "", err
	}

	cmd := exec.Command("ssh-keygen", "-t", "ed25519", "-f", keyPath, "-C", "askai-encryption-key", "-N", passphrase)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to generate SSH key: %w\nOutput: %s", err, output)
	}

	if err := os.Chmod(keyPath, 0600); err != nil {
		return "", fmt.Errorf("failed to set key permissions: %w", err)
	}

	if DebugLog != nil {
		DebugLog.Printf("[SSH] Created encryption key at %s", keyPath)
	}
	return keyPath, nil
}

func unusedKeyPath(sshDir string) (string, error) {
	keyPath := filepath.Join(sshDir, askaiKeyName)
	if !FileExists(keyPath) {
		return keyPath, nil
	}

	date := time.Now().Format("20060102")
	for n := 1; n <= 99; n++ {
		keyPath = filepath.Join(sshDir, fmt.Sprintf("%s_%s%02d", askaiKeyName, date, n))
		if !FileExists(keyPath) {
			return keyPath, nil
		}
	}
	return "", fmt.Errorf("exceeded maximum key creation limit for today (99)")
}

// GetKeyPath returns ~/.ssh/askai_ed25519 (dated variants are not considered).
func GetKeyPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".ssh", askaiKeyName)
}

// KeyExists reports whether ~/.ssh/askai_ed25519 exists.
func KeyExists() bool {
	return FileExists(GetKeyPath())
}
