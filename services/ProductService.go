package services

import (
	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"
)

// RelatedLimit is how many same-category products the detail page shows.
const RelatedLimit = 4

type ProductService struct {
	pr repository.ProductRepository
}

func NewProductService(pRepo repository.ProductRepository) ProductService {
	return ProductService{
		pr: pRepo,
	}
}

func (ps *ProductService) GetProductById(id string) (p entities.Product, err error) {
	p, exists := ps.pr.GetProductById(id)
	if !exists {
		err = models.ErrNotFoundError
	}
	return
}

func (ps *ProductService) GetProductWithRelated(id string) (p entities.Product, related []entities.Product, err error) {
	p, err = ps.GetProductById(id)
	if err != nil {
		return
	}
	related = ps.pr.GetRelatedProducts(p, RelatedLimit)
	return
}

func (ps *ProductService) SearchProducts(q catalog.Query) []entities.Product {
	return ps.pr.SearchProducts(q)
}

func (ps *ProductService) GetFeaturedProducts() []entities.Product {
	return ps.pr.GetFeaturedProducts()
}

func (ps *ProductService) GetCategories() []string {
	return ps.pr.GetCategories()
}

func (ps *ProductService) GetProducts() []entities.Product {
	return ps.pr.GetProducts()
}
