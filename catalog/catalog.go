// Package catalog loads the static product list and answers the read-only
// questions the storefront pages ask of it.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultData []byte

// Default returns the built-in catalog.
func Default() ([]entities.Product, error) {
	return Parse(defaultData)
}

// LoadFile reads a catalog from a YAML file. An empty path means the
// built-in catalog.
func LoadFile(path string) ([]entities.Product, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]entities.Product, error) {
	var records []models.CatalogRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	seen := make(map[string]bool, len(records))
	products := make([]entities.Product, 0, len(records))
	for i, rec := range records {
		p, err := toProduct(rec)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[p.Id] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, p.Id)
		}
		seen[p.Id] = true
		products = append(products, p)
	}
	return products, nil
}

func toProduct(rec models.CatalogRecord) (entities.Product, error) {
	if strings.TrimSpace(rec.Id) == "" {
		return entities.Product{}, fmt.Errorf("id is empty")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return entities.Product{}, fmt.Errorf("product %s: name is empty", rec.Id)
	}
	if strings.TrimSpace(rec.Category) == "" {
		return entities.Product{}, fmt.Errorf("product %s: category is empty", rec.Id)
	}
	price, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return entities.Product{}, fmt.Errorf("product %s: price[%s] is not valid: %w", rec.Id, rec.Price, err)
	}
	if price.IsNegative() {
		return entities.Product{}, fmt.Errorf("product %s: price is negative", rec.Id)
	}
	if rec.Stock < 0 {
		return entities.Product{}, fmt.Errorf("product %s: stock is negative", rec.Id)
	}
	return entities.Product{
		Id:          rec.Id,
		Name:        rec.Name,
		Description: rec.Description,
		Price:       price,
		Image:       rec.Image,
		Category:    rec.Category,
		Featured:    rec.Featured,
		Stock:       rec.Stock,
	}, nil
}
