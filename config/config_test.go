package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	return cfg
}

func TestLoadFromCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if !FileExists(filepath.Join(dir, "config.toml")) {
		t.Error("expected config.toml to be created")
	}
	if cfg.Language() != "en" {
		t.Errorf("expected default language en, got %q", cfg.Language())
	}
	if cfg.RequestTimeout() != 120*time.Second {
		t.Errorf("expected 120s request timeout, got %v", cfg.RequestTimeout())
	}
	if cfg.StallTimeout() != 60*time.Second {
		t.Errorf("expected 60s stall timeout, got %v", cfg.StallTimeout())
	}
	if cfg.CredentialStore.GetMethod() != SecurityPlainText {
		t.Errorf("expected plaintext credentials, got %s", cfg.CredentialStore.GetMethod())
	}
}

func TestLanguageEnvOverride(t *testing.T) {
	cfg := newTestConfig(t)
	t.Setenv("ASKAI_LANGUAGE", "de")

	if got := cfg.Language(); got != "de" {
		t.Errorf("expected de, got %q", got)
	}
}

func TestModelInstanceLifecycle(t *testing.T) {
	cfg := newTestConfig(t)

	first, err := cfg.AddModel(ModelInstance{Provider: "openai", Model: "gpt-4o-mini", EnableStreaming: true}, "sk-test-key-0123456789")
	if err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
	if len(first) != 8 {
		t.Errorf("expected 8-char instance id, got %q", first)
	}
	if cfg.User.SelectedModel != first {
		t.Errorf("first instance should be selected, got %q", cfg.User.SelectedModel)
	}

	second, err := cfg.AddModel(ModelInstance{Provider: "ollama", Model: "llama3.1:latest"}, "")
	if err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
	if cfg.User.SelectedModel != first {
		t.Error("adding a second instance must not change the selection")
	}

	// Everything must survive a reload from disk
	reloaded, err := LoadFrom(cfg.DataDirectory)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.APIKey(first); got != "sk-test-key-0123456789" {
		t.Errorf("expected stored key, got %q", got)
	}
	inst, ok := reloaded.Instance(second)
	if !ok || inst.Provider != "ollama" {
		t.Errorf("expected ollama instance, got %+v (found=%v)", inst, ok)
	}

	if err := reloaded.SelectModel(second); err != nil {
		t.Fatalf("SelectModel failed: %v", err)
	}
	if err := reloaded.RemoveModel(second); err != nil {
		t.Fatalf("RemoveModel failed: %v", err)
	}
	if reloaded.User.SelectedModel != first {
		t.Errorf("removing the selected instance should fall back to %q, got %q", first, reloaded.User.SelectedModel)
	}

	if err := reloaded.SelectModel("missing"); err == nil {
		t.Error("expected error selecting unknown instance")
	}
}

func TestAPIKeyEnvOverride(t *testing.T) {
	cfg := newTestConfig(t)
	id, err := cfg.AddModel(ModelInstance{Provider: "deepseek"}, "stored-key")
	if err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}

	t.Setenv("ASKAI_DEEPSEEK_API_KEY", "env-key")
	if got := cfg.APIKey(id); got != "env-key" {
		t.Errorf("expected env key to win, got %q", got)
	}
}

func TestNvidiaFreeUserIDIsStable(t *testing.T) {
	cfg := newTestConfig(t)

	id := cfg.NvidiaFreeUserID()
	if id == "" {
		t.Fatal("expected generated user id")
	}
	if again := cfg.NvidiaFreeUserID(); again != id {
		t.Errorf("expected stable id, got %q then %q", id, again)
	}

	reloaded, err := LoadFrom(cfg.DataDirectory)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.NvidiaFreeUserID() != id {
		t.Error("user id was not persisted")
	}
}

func TestPlainTextCredentialsPermissions(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("abc12345", "secret")

	if err := store.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}

	loaded := NewCredentialStore(SecurityPlainText, "")
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Get("abc12345") != "secret" {
		t.Error("credential not round-tripped")
	}
}

func TestSSHCredentialsRequireKey(t *testing.T) {
	store := NewCredentialStore(SecuritySSHKey, "")
	store.Set("abc12345", "secret")

	if err := store.Save(t.TempDir()); err == nil {
		t.Error("expected error saving encrypted credentials without a key")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dune: Messiah", "Dune--Messiah"},
		{"a/b\\c", "a-b-c"},
		{"", "history"},
		{"...", "history"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvAPIKeyName(t *testing.T) {
	t.Setenv("ASKAI_NVIDIA_FREE_API_KEY", "x")
	if EnvAPIKey("nvidia_free") != "x" {
		t.Error("expected ASKAI_NVIDIA_FREE_API_KEY to be read")
	}
}
