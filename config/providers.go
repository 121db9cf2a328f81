package config

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// NewInstanceID returns a short random id for a [models.<id>] entry.
func NewInstanceID() string {
	return uuid.New().String()[:8]
}

// AddModel registers a model instance and stores its API key. The first
// instance added becomes the selected one. Config and credentials are saved.
func (c *Config) AddModel(inst ModelInstance, apiKey string) (string, error) {
	if inst.Provider == "" {
		return "", fmt.Errorf("model instance has no provider")
	}

	id := NewInstanceID()
	for _, taken := c.User.Models[id]; taken; _, taken = c.User.Models[id] {
		id = NewInstanceID()
	}

	c.User.Models[id] = inst
	if c.User.SelectedModel == "" {
		c.User.SelectedModel = id
	}

	if apiKey != "" {
		c.CredentialStore.Set(id, apiKey)
		if err := c.CredentialStore.Save(c.DataDir()); err != nil {
			return "", fmt.Errorf("failed to save credentials: %w", err)
		}
	}

	if err := c.Save(); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}

	if Debug && DebugLog != nil {
		DebugLog.Printf("[Config] Added model instance %s (provider=%s model=%s)", id, inst.Provider, inst.Model)
	}
	return id, nil
}

// UpdateModel replaces an existing instance. An empty apiKey keeps the stored one.
func (c *Config) UpdateModel(id string, inst ModelInstance, apiKey string) error {
	if _, ok := c.User.Models[id]; !ok {
		return fmt.Errorf("model instance %q not found", id)
	}
	c.User.Models[id] = inst

	if apiKey != "" {
		c.CredentialStore.Set(id, apiKey)
		if err := c.CredentialStore.Save(c.DataDir()); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
	}
	return c.Save()
}

// RemoveModel deletes an instance and its credential. Removing the selected
// instance selects the first remaining one, if any.
func (c *Config) RemoveModel(id string) error {
	if _, ok := c.User.Models[id]; !ok {
		return fmt.Errorf("model instance %q not found", id)
	}

	delete(c.User.Models, id)
	c.CredentialStore.Delete(id)
	if err := c.CredentialStore.Save(c.DataDir()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	if c.User.SelectedModel == id {
		c.User.SelectedModel = ""
		if ids := c.SortedModelIDs(); len(ids) > 0 {
			c.User.SelectedModel = ids[0]
		}
	}
	return c.Save()
}

// SelectModel makes id the default instance.
func (c *Config) SelectModel(id string) error {
	if _, ok := c.User.Models[id]; !ok {
		return fmt.Errorf("model instance %q not found", id)
	}
	c.User.SelectedModel = id
	return c.Save()
}

// Instance returns the configured instance with the given id.
func (c *Config) Instance(id string) (ModelInstance, bool) {
	inst, ok := c.User.Models[id]
	return inst, ok
}

// APIKey resolves the key of an instance: ASKAI_<PROVIDER>_API_KEY first,
// then the credential store.
func (c *Config) APIKey(id string) string {
	if inst, ok := c.User.Models[id]; ok {
		if key := EnvAPIKey(inst.Provider); key != "" {
			return key
		}
	}
	if c.CredentialStore == nil {
		return ""
	}
	return c.CredentialStore.Get(id)
}

// NvidiaFreeUserID returns the persistent anonymous id sent to the free
// Nvidia proxy, generating and saving one on first use.
func (c *Config) NvidiaFreeUserID() string {
	if c.User.NvidiaFreeUserID != "" {
		return c.User.NvidiaFreeUserID
	}

	c.User.NvidiaFreeUserID = uuid.New().String()
	if err := c.Save(); err != nil && Debug && DebugLog != nil {
		DebugLog.Printf("[Config] Failed to persist nvidia_free user id: %v", err)
	}
	return c.User.NvidiaFreeUserID
}

// SortedModelIDs returns the instance ids in a stable order.
func (c *Config) SortedModelIDs() []string {
	ids := make([]string, 0, len(c.User.Models))
	for id := range c.User.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
