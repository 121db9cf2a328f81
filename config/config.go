package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type SecurityConfig struct {
	Method     string `toml:"method"`
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

// ModelInstance is one configured AI backend. Several instances of the same
// provider may coexist (e.g. two OpenAI configs with different keys).
type ModelInstance struct {
	Provider        string   `toml:"provider"`
	DisplayName     string   `toml:"display_name,omitempty"`
	APIBaseURL      string   `toml:"api_base_url,omitempty"`
	Model           string   `toml:"model,omitempty"`
	EnableStreaming bool     `toml:"enable_streaming"`
	Temperature     *float64 `toml:"temperature,omitempty"`
	MaxTokens       int      `toml:"max_tokens,omitempty"`
}

type UserConfig struct {
	SelectedModel          string                   `toml:"selected_model"`
	Language               string                   `toml:"language"`
	Template               string                   `toml:"template,omitempty"`
	MultiBookTemplate      string                   `toml:"multi_book_template,omitempty"`
	RandomQuestionTemplate string                   `toml:"random_question_template,omitempty"`
	RequestTimeout         int                      `toml:"request_timeout"`
	StallTimeout           int                      `toml:"stall_timeout"`
	NvidiaFreeUserID       string                   `toml:"nvidia_free_user_id,omitempty"`
	Security               SecurityConfig           `toml:"security"`
	Models                 map[string]ModelInstance `toml:"models"`
}

type Config struct {
	DataDirectory   string
	User            *UserConfig
	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Language returns the interface language used for messages and prompts.
func (c *Config) Language() string {
	if lang := os.Getenv("ASKAI_LANGUAGE"); lang != "" {
		return lang
	}
	if c.User == nil || c.User.Language == "" {
		return "en"
	}
	return c.User.Language
}

// RequestTimeout bounds a whole non-streaming request.
func (c *Config) RequestTimeout() time.Duration {
	if c.User == nil || c.User.RequestTimeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.User.RequestTimeout) * time.Second
}

// StallTimeout is how long a stream may go without a chunk before recovery.
func (c *Config) StallTimeout() time.Duration {
	if c.User == nil || c.User.StallTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.User.StallTimeout) * time.Second
}

// Save persists the user config to the data directory.
func (c *Config) Save() error {
	return SaveUserConfig(c.User, c.DataDir())
}

func CheckDebug() bool {
	debug := os.Getenv("ASKAI_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: requests and error bodies end up in here
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (ASKAI_DEBUG=%s) ===", os.Getenv("ASKAI_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// EnvAPIKey returns ASKAI_<PROVIDER>_API_KEY for a provider id, if set.
func EnvAPIKey(providerID string) string {
	name := "ASKAI_" + strings.ToUpper(strings.ReplaceAll(providerID, "-", "_")) + "_API_KEY"
	return os.Getenv(name)
}

// Load reads settings.toml, the user config and the credential store.
// A .env file in the working directory is honoured for ASKAI_* variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDirectory := ""
	if dataDir := os.Getenv("ASKAI_DATA_DIR"); dataDir != "" {
		dataDirectory = dataDir
	} else {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		dataDirectory = systemCfg.DataDirectory
	}
	if dataDirectory == "" {
		dataDirectory = GetDefaultDataDir()
	}

	return LoadFrom(dataDirectory)
}

// LoadFrom loads the user config and credentials from an explicit data directory.
func LoadFrom(dataDirectory string) (*Config, error) {
	cfg := &Config{DataDirectory: dataDirectory}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if userCfg.Models == nil {
		userCfg.Models = make(map[string]ModelInstance)
	}
	cfg.User = userCfg

	method := SecurityMethod(userCfg.Security.Method)
	if method == "" {
		method = SecurityPlainText
	}
	store := NewCredentialStore(method, ExpandPath(userCfg.Security.SSHKeyPath))
	if passphrase := os.Getenv("ASKAI_SSH_PASSPHRASE"); passphrase != "" {
		store.SetPassphrase(passphrase)
	}
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	return cfg, nil
}
