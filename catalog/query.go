package catalog

import (
	"slices"
	"strings"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortNone      SortKey = ""
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
)

type SortOption struct {
	Key   SortKey
	Label string
}

var SortOptions = []SortOption{
	{Key: SortPriceAsc, Label: "Price: Low to High"},
	{Key: SortPriceDesc, Label: "Price: High to Low"},
	{Key: SortNameAsc, Label: "Name: A to Z"},
	{Key: SortNameDesc, Label: "Name: Z to A"},
}

// ParseSortKey maps unknown keys to SortNone.
func ParseSortKey(s string) SortKey {
	for _, o := range SortOptions {
		if string(o.Key) == s {
			return o.Key
		}
	}
	return SortNone
}

// Query is the products page filter: free text, category and ordering.
type Query struct {
	Search   string
	Category string
	Sort     SortKey
}

// Filter returns the products matching q in q.Sort order. The input slice is
// not modified.
func Filter(products []entities.Product, q Query) []entities.Product {
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(q.Search))

	res := make([]entities.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if term != "" &&
			!strings.Contains(fold.String(p.Name), term) &&
			!strings.Contains(fold.String(p.Description), term) {
			continue
		}
		res = append(res, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(res, func(a, b entities.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(res, func(a, b entities.Product) int { return b.Price.Cmp(a.Price) })
	case SortNameAsc, SortNameDesc:
		col := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(res, func(a, b entities.Product) int {
			if q.Sort == SortNameDesc {
				return col.CompareString(b.Name, a.Name)
			}
			return col.CompareString(a.Name, b.Name)
		})
	}
	return res
}

// Categories lists the distinct categories in first-seen order.
func Categories(products []entities.Product) []string {
	var cats []string
	for _, p := range products {
		if !slices.Contains(cats, p.Category) {
			cats = append(cats, p.Category)
		}
	}
	return cats
}

func Featured(products []entities.Product) []entities.Product {
	var res []entities.Product
	for _, p := range products {
		if p.Featured {
			res = append(res, p)
		}
	}
	return res
}

// Related returns up to limit products sharing p's category, p excluded.
func Related(products []entities.Product, p entities.Product, limit int) []entities.Product {
	var res []entities.Product
	for _, o := range products {
		if len(res) >= limit {
			break
		}
		if o.Category == p.Category && o.Id != p.Id {
			res = append(res, o)
		}
	}
	return res
}

func Find(products []entities.Product, id string) (entities.Product, bool) {
	i := slices.IndexFunc(products, func(p entities.Product) bool { return p.Id == id })
	if i < 0 {
		return entities.Product{}, false
	}
	return products[i], true
}
