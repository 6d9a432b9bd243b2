package repository

import (
	"errors"
	"slices"

	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"
)

// ProductRepository is the read-only view of the static catalog. There is
// no write path: admin edits live in the visitor's session sandbox.
type ProductRepository interface {
	GetProductById(id string) (p entities.Product, exists bool)
	GetProducts() []entities.Product
	SearchProducts(q catalog.Query) []entities.Product
	GetFeaturedProducts() []entities.Product
	GetRelatedProducts(p entities.Product, limit int) []entities.Product
	GetCategories() []string
}

type ProductRepo struct {
	products   []entities.Product
	categories []string
}

func NewProductRepository(products []entities.Product) (ProductRepository, error) {
	if len(products) == 0 {
		return nil, errors.New("catalog must be non-empty")
	}
	products = slices.Clone(products)
	return &ProductRepo{
		products:   products,
		categories: catalog.Categories(products),
	}, nil
}

func (p *ProductRepo) GetProductById(id string) (entities.Product, bool) {
	return catalog.Find(p.products, id)
}

func (p *ProductRepo) GetProducts() []entities.Product {
	return slices.Clone(p.products)
}

func (p *ProductRepo) SearchProducts(q catalog.Query) []entities.Product {
	return catalog.Filter(p.products, q)
}

func (p *ProductRepo) GetFeaturedProducts() []entities.Product {
	return catalog.Featured(p.products)
}

func (p *ProductRepo) GetRelatedProducts(prod entities.Product, limit int) []entities.Product {
	return catalog.Related(p.products, prod, limit)
}

func (p *ProductRepo) GetCategories() []string {
	return slices.Clone(p.categories)
}
