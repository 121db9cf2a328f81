package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"askai/model"

	"github.com/patrickmn/go-cache"
)

// ModelsCacheTTL is how long a fetched model list is reused.
const ModelsCacheTTL = 10 * time.Minute

var modelsCache = cache.New(ModelsCacheTTL, 2*ModelsCacheTTL)

// modelFetch lists the models of a provider. live is false when a curated
// list stands in for a listing that failed.
type modelFetch func(ctx context.Context) (models []model.ModelInfo, live bool, err error)

// modelsCacheKey separates instances that share an endpoint but not a key.
// Only a digest of the key is kept.
func modelsCacheKey(providerID, baseURL, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return providerID + "|" + baseURL + "|" + hex.EncodeToString(sum[:8])
}

// cachedModels returns the cached list for key or calls fetch and caches a
// non-empty live result.
func cachedModels(ctx context.Context, key string, fetch modelFetch) ([]model.ModelInfo, error) {
	if v, ok := modelsCache.Get(key); ok {
		return v.([]model.ModelInfo), nil
	}

	models, live, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if live && len(models) > 0 {
		modelsCache.SetDefault(key, models)
	}
	return models, nil
}

// ClearModelsCache forgets every cached model list.
func ClearModelsCache() {
	modelsCache.Flush()
}
