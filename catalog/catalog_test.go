package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	products, err := catalog.Default()
	require.NoError(t, err)

	require.Len(t, products, 8)
	assert.Equal(t, "1", products[0].Id)
	assert.Equal(t, "Premium Wireless Headphones", products[0].Name)
	assert.True(t, decimal.RequireFromString("299.99").Equal(products[0].Price))
	assert.Equal(t, 15, products[0].Stock)
	assert.True(t, products[0].Featured)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantLen   int
		wantError string
	}{
		{
			name:    "valid entries: ok",
			data:    "- {id: a, name: A, category: C, price: '1.50', stock: 2}\n- {id: b, name: B, category: C, price: '0', stock: 0}\n",
			wantLen: 2,
		},
		{
			name:      "duplicate id: error",
			data:      "- {id: a, name: A, category: C, price: '1'}\n- {id: a, name: B, category: C, price: '1'}\n",
			wantError: `catalog entry 1: duplicate id "a"`,
		},
		{
			name:      "negative price: error",
			data:      "- {id: a, name: A, category: C, price: '-1'}\n",
			wantError: "catalog entry 0: product a: price is negative",
		},
		{
			name:      "negative stock: error",
			data:      "- {id: a, name: A, category: C, price: '1', stock: -3}\n",
			wantError: "catalog entry 0: product a: stock is negative",
		},
		{
			name:      "missing name: error",
			data:      "- {id: a, category: C, price: '1'}\n",
			wantError: "catalog entry 0: product a: name is empty",
		},
		{
			name:      "missing id: error",
			data:      "- {name: A, category: C, price: '1'}\n",
			wantError: "catalog entry 0: id is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := catalog.Parse([]byte(tt.data))
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Len(t, products, tt.wantLen)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {id: x, name: X, category: Toys, price: '9.99', stock: 1}\n"), 0o600))

	products, err := catalog.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Toys", products[0].Category)

	products, err = catalog.LoadFile("")
	require.NoError(t, err)
	assert.Len(t, products, 8)

	_, err = catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	products, err := catalog.Default()
	require.NoError(t, err)

	tests := []struct {
		name    string
		query   catalog.Query
		wantIds []string
	}{
		{
			name:    "empty query keeps catalog order",
			query:   catalog.Query{},
			wantIds: []string{"1", "2", "3", "4", "5", "6", "7", "8"},
		},
		{
			name:    "search matches name case-insensitively",
			query:   catalog.Query{Search: "KEYBOARD"},
			wantIds: []string{"8"},
		},
		{
			name:    "search matches description",
			query:   catalog.Query{Search: "waterproof"},
			wantIds: []string{"6"},
		},
		{
			name:    "category filter",
			query:   catalog.Query{Category: "Furniture"},
			wantIds: []string{"4"},
		},
		{
			name:    "search and category combine",
			query:   catalog.Query{Search: "premium", Category: "Accessories"},
			wantIds: []string{"7"},
		},
		{
			name:    "price ascending",
			query:   catalog.Query{Category: "Electronics", Sort: catalog.SortPriceAsc},
			wantIds: []string{"6", "8", "2", "1", "3"},
		},
		{
			name:    "price descending",
			query:   catalog.Query{Category: "Electronics", Sort: catalog.SortPriceDesc},
			wantIds: []string{"3", "1", "2", "8", "6"},
		},
		{
			name:    "name ascending",
			query:   catalog.Query{Sort: catalog.SortNameAsc},
			wantIds: []string{"4", "7", "8", "5", "6", "1", "2", "3"},
		},
		{
			name:    "name descending",
			query:   catalog.Query{Sort: catalog.SortNameDesc},
			wantIds: []string{"3", "2", "1", "6", "5", "8", "7", "4"},
		},
		{
			name:    "no match",
			query:   catalog.Query{Search: "spaceship"},
			wantIds: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.Filter(products, tt.query)
			assert.Equal(t, tt.wantIds, ids(got))
		})
	}
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, catalog.SortPriceDesc, catalog.ParseSortKey("price-desc"))
	assert.Equal(t, catalog.SortNone, catalog.ParseSortKey("random"))
	assert.Equal(t, catalog.SortNone, catalog.ParseSortKey(""))
}

func TestCategoriesFeaturedRelated(t *testing.T) {
	products, err := catalog.Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Electronics", "Furniture", "Home Decor", "Accessories"}, catalog.Categories(products))
	assert.Equal(t, []string{"1", "2", "5", "7"}, ids(catalog.Featured(products)))

	p, ok := catalog.Find(products, "1")
	require.True(t, ok)
	assert.Equal(t, []string{"2", "3", "6", "8"}, ids(catalog.Related(products, p, 4)))
	assert.Equal(t, []string{"2", "3"}, ids(catalog.Related(products, p, 2)))

	chair, ok := catalog.Find(products, "4")
	require.True(t, ok)
	assert.Empty(t, catalog.Related(products, chair, 4))

	_, ok = catalog.Find(products, "404")
	assert.False(t, ok)
}

func ids(products []entities.Product) []string {
	res := make([]string, 0, len(products))
	for _, p := range products {
		res = append(res, p.Id)
	}
	return res
}
