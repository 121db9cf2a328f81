package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SecurityMethod defines the credential storage method
type SecurityMethod string

const (
	SecurityPlainText SecurityMethod = "plaintext"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

// CredentialStore holds API keys keyed by model instance id, stored either as
// plain TOML (credentials.toml) or sealed with an SSH-derived key (credentials.enc).
type CredentialStore struct {
	method      SecurityMethod
	credentials map[string]string
	sshKeyPath  string
	passphrase  string
	cipher      *keyCipher
}

type credentialsFile struct {
	Credentials map[string]string `toml:"credentials"`
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	return &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
		sshKeyPath:  sshKeyPath,
	}
}

// SetPassphrase sets the passphrase for decrypting the SSH key
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.passphrase = passphrase
	c.cipher = nil
}

// SetMethod switches the storage method; the next Save writes in the new format.
func (c *CredentialStore) SetMethod(method SecurityMethod, sshKeyPath string) {
	c.method = method
	c.sshKeyPath = sshKeyPath
	c.cipher = nil
}

// GetMethod returns the current security method
func (c *CredentialStore) GetMethod() SecurityMethod {
	return c.method
}

// Get retrieves the credential of a model instance
func (c *CredentialStore) Get(instanceID string) string {
	return c.credentials[instanceID]
}

// Set stores the credential of a model instance
func (c *CredentialStore) Set(instanceID string, apiKey string) {
	c.credentials[instanceID] = apiKey
}

// Delete removes the credential of a model instance
func (c *CredentialStore) Delete(instanceID string) {
	delete(c.credentials, instanceID)
}

// Load reads credentials from disk. A missing file is an empty store.
func (c *CredentialStore) Load(dataDir string) error {
	var (
		creds map[string]string
		err   error
	)

	switch c.method {
	case SecurityPlainText:
		creds, err = loadPlainText(credentialsPath(dataDir))
	case SecuritySSHKey:
		creds, err = c.loadSealed(encryptedCredentialsPath(dataDir))
	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
	if err != nil {
		return err
	}

	if creds == nil {
		creds = make(map[string]string)
	}
	c.credentials = creds
	return nil
}

// Save writes credentials to disk with 0600 permissions. The file of the
// other method is removed once the new one is written.
func (c *CredentialStore) Save(dataDir string) error {
	switch c.method {
	case SecurityPlainText:
		if err := savePlainText(credentialsPath(dataDir), c.credentials); err != nil {
			return err
		}
		if err := os.Remove(encryptedCredentialsPath(dataDir)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove encrypted credentials: %w", err)
		}
		return nil

	case SecuritySSHKey:
		if err := c.saveSealed(encryptedCredentialsPath(dataDir)); err != nil {
			return err
		}
		if err := os.Remove(credentialsPath(dataDir)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove plain text credentials: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}
}

func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}

func encryptedCredentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.enc")
}

func loadPlainText(path string) (map[string]string, error) {
	if !FileExists(path) {
		return nil, nil
	}

	var cf credentialsFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return cf.Credentials, nil
}

func savePlainText(path string, creds map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(credentialsFile{Credentials: creds}); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) ensureCipher() error {
	if c.cipher != nil {
		return nil
	}
	kc, err := newKeyCipher(c.sshKeyPath, c.passphrase)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}
	c.cipher = kc
	return nil
}

func (c *CredentialStore) loadSealed(path string) (map[string]string, error) {
	if !FileExists(path) {
		return nil, nil
	}
	if err := c.ensureCipher(); err != nil {
		return nil, err
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted credentials: %w", err)
	}

	plain, err := c.cipher.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var creds map[string]string
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted credentials: %w", err)
	}
	return creds, nil
}

func (c *CredentialStore) saveSealed(path string) error {
	if err := c.ensureCipher(); err != nil {
		return err
	}

	plain, err := json.Marshal(c.credentials)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	sealed, err := c.cipher.seal(plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if err := os.WriteFile(path, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write encrypted credentials: %w", err)
	}
	return nil
}
