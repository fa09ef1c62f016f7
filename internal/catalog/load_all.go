package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vapestore/internal/model"

	"github.com/rs/zerolog"
)

// LoadAll loads several catalog files concurrently and merges them by
// product id. A product id appearing twice is an error.
func LoadAll(ctx context.Context, loader Loader, paths []string, logger zerolog.Logger) ([]model.Product, error) {
	logger = logger.With().Str("component", "catalog-seed").Logger()

	type loadResult struct {
		products []model.Product
		err      error
	}

	results := make([]loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			products, err := loader.Load(ctx, path)
			results[index] = loadResult{products: products, err: err}
		}(i, path)
	}

	wg.Wait()

	seen := make(map[int]string)
	merged := []model.Product{}
	for i, result := range results {
		if result.err != nil {
			logger.Error().Err(result.err).Str("file", paths[i]).Msg("failed to load catalog file")
			return nil, fmt.Errorf("failed to load catalog file %s: %w", paths[i], result.err)
		}
		for _, p := range result.products {
			if prev, dup := seen[p.ID]; dup {
				return nil, fmt.Errorf("duplicate product id %d in %s (already defined in %s)", p.ID, paths[i], prev)
			}
			seen[p.ID] = paths[i]
			merged = append(merged, p)
		}
	}

	sort.SliceStable(merged, func(a, b int) bool { return merged[a].ID < merged[b].ID })

	logger.Info().
		Int("files", len(paths)).
		Int("products", len(merged)).
		Msg("seed catalog loaded")

	return merged, nil
}
