// Package catalog reads seed catalogs from local files or S3.
package catalog

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"vapestore/internal/model"

	"gopkg.in/yaml.v3"
)

// Loader loads a seed catalog by path or key.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.Product, error)
}

// seedFile is the on-disk seed format.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID          int            `yaml:"id"`
	Name        string         `yaml:"name"`
	Category    string         `yaml:"category"`
	Price       string         `yaml:"price"`
	Stock       int            `yaml:"stock"`
	ImageURL    string         `yaml:"imageUrl"`
	Description string         `yaml:"description"`
	Features    []string       `yaml:"features"`
	Reviews     []model.Review `yaml:"reviews"`
}

// Decode parses a YAML seed catalog. Prices may be display strings such as
// "$U 1.450" or plain integers.
func Decode(r io.Reader) ([]model.Product, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return []model.Product{}, nil
		}
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	products := make([]model.Product, 0, len(f.Products))
	for i, sp := range f.Products {
		price, err := model.ParsePrice(sp.Price)
		if err != nil {
			return nil, fmt.Errorf("product #%d (%q): invalid price %q: %w", i+1, sp.Name, sp.Price, err)
		}
		p := model.Product{
			ID:          sp.ID,
			Name:        sp.Name,
			Category:    sp.Category,
			Price:       price,
			Stock:       sp.Stock,
			ImageURL:    sp.ImageURL,
			Description: sp.Description,
			Features:    sp.Features,
			Reviews:     sp.Reviews,
		}
		if p.ID <= 0 {
			return nil, fmt.Errorf("product #%d (%q): id must be positive", i+1, sp.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ID, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// decodeNamed decodes r, gunzipping first when name ends in ".gz".
func decodeNamed(name string, r io.Reader) ([]model.Product, error) {
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", name, err)
		}
		defer gz.Close()
		r = gz
	}
	return Decode(r)
}
