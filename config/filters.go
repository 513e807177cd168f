package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Category is a selectable listing category.
type Category struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// FilterOptions is the catalogue of filter choices offered to clients.
type FilterOptions struct {
	RadiusTiers []float64  `yaml:"radius_tiers" json:"radius_tiers"`
	Categories  []Category `yaml:"categories" json:"categories"`
	MinPrice    float64    `yaml:"min_price" json:"min_price"`
	MaxPrice    float64    `yaml:"max_price" json:"max_price"`
}

// DefaultFilterOptions returns the built-in catalogue.
func DefaultFilterOptions() *FilterOptions {
	return &FilterOptions{
		RadiusTiers: []float64{2000, 5000, 10000, 20000},
		Categories: []Category{
			{Value: "electronics", Label: "Electronics"},
			{Value: "vehicles", Label: "Vehicles"},
			{Value: "furniture", Label: "Furniture"},
			{Value: "tools", Label: "Tools"},
			{Value: "sports", Label: "Sports"},
			{Value: "books", Label: "Books"},
			{Value: "clothing", Label: "Clothing"},
			{Value: "other", Label: "Other"},
		},
		MinPrice: 0,
		MaxPrice: 1000000,
	}
}

// LoadFilterOptions reads a YAML catalogue. An empty path returns the
// defaults; fields missing from the file keep their default values.
func LoadFilterOptions(path string) (*FilterOptions, error) {
	opts := DefaultFilterOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read filter options %q: %w", path, err)
	}

	var fileOpts FilterOptions
	if err := yaml.Unmarshal(data, &fileOpts); err != nil {
		return nil, fmt.Errorf("config: parse filter options %q: %w", path, err)
	}

	if len(fileOpts.RadiusTiers) > 0 {
		for _, r := range fileOpts.RadiusTiers {
			if r <= 0 {
				return nil, fmt.Errorf("config: radius tier %v must be positive", r)
			}
		}
		opts.RadiusTiers = fileOpts.RadiusTiers
	}
	if len(fileOpts.Categories) > 0 {
		opts.Categories = fileOpts.Categories
	}
	if fileOpts.MaxPrice > 0 {
		opts.MinPrice = fileOpts.MinPrice
		opts.MaxPrice = fileOpts.MaxPrice
	}

	sort.Float64s(opts.RadiusTiers)
	return opts, nil
}

// HasCategory reports whether value is a known category.
func (o *FilterOptions) HasCategory(value string) bool {
	for _, c := range o.Categories {
		if c.Value == value {
			return true
		}
	}
	return false
}

// SuggestRadius returns the smallest tier that covers distance, or 0 when
// no tier is large enough.
func (o *FilterOptions) SuggestRadius(distance float64) float64 {
	for _, r := range o.RadiusTiers {
		if distance <= r {
			return r
		}
	}
	return 0
}
