package services

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MsgRequiredFields = "Please fill in all required fields"
	MsgProductAdded   = "Product added successfully"
	MsgProductUpdated = "Product updated successfully"
	MsgProductDeleted = "Product deleted successfully"

	DefaultProductImage = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e"
)

// AdminService edits a per-session copy of the catalog. Nothing it does is
// visible outside that session, and the shared catalog is never touched.
type AdminService struct {
	pr  repository.ProductRepository
	sr  repository.SessionRepository
	log *zap.Logger
}

func NewAdminService(productRepo repository.ProductRepository, sessionRepo repository.SessionRepository, logger *zap.Logger) AdminService {
	return AdminService{
		pr:  productRepo,
		sr:  sessionRepo,
		log: logger,
	}
}

func (as *AdminService) seed(s *entities.Session) {
	if s.SandboxReady {
		return
	}
	s.Catalog = as.pr.GetProducts()
	s.SandboxReady = true
}

func (as *AdminService) GetProducts(ctx context.Context, sessionId string) (products []entities.Product, err error) {
	s, err := as.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		as.seed(s)
		return nil
	})
	if err != nil {
		return
	}
	products = s.Catalog
	if products == nil {
		products = []entities.Product{}
	}
	return
}

func (as *AdminService) GetProduct(ctx context.Context, sessionId string, id string) (p entities.Product, err error) {
	products, err := as.GetProducts(ctx, sessionId)
	if err != nil {
		return
	}
	i := slices.IndexFunc(products, func(p entities.Product) bool { return p.Id == id })
	if i < 0 {
		err = models.ErrNotFoundError
		return
	}
	return products[i], nil
}

func (as *AdminService) AddProduct(ctx context.Context, sessionId string, req models.ProductRequest) (p entities.Product, accepted bool, err error) {
	_, err = as.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		accepted = false
		as.seed(s)
		var ok bool
		p, ok = validateProduct(req)
		if !ok {
			s.Notify(entities.Notification{Level: entities.LevelWarning, Message: MsgRequiredFields})
			return nil
		}
		p.Id = nextProductId(s.Catalog)
		if p.Image == "" {
			p.Image = DefaultProductImage
		}
		s.Catalog = append(s.Catalog, p)
		s.Notify(entities.Notification{Level: entities.LevelSuccess, Message: MsgProductAdded})
		accepted = true
		return nil
	})
	return
}

func (as *AdminService) EditProduct(ctx context.Context, sessionId string, id string, req models.ProductRequest) (p entities.Product, accepted bool, err error) {
	_, err = as.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		accepted = false
		as.seed(s)
		i := slices.IndexFunc(s.Catalog, func(p entities.Product) bool { return p.Id == id })
		if i < 0 {
			return models.ErrNotFoundError
		}
		var ok bool
		p, ok = validateProduct(req)
		if !ok {
			s.Notify(entities.Notification{Level: entities.LevelWarning, Message: MsgRequiredFields})
			return nil
		}
		p.Id = id
		if p.Image == "" {
			p.Image = s.Catalog[i].Image
		}
		s.Catalog[i] = p
		s.Notify(entities.Notification{Level: entities.LevelSuccess, Message: MsgProductUpdated})
		accepted = true
		return nil
	})
	if err != nil {
		as.log.Info("EditProduct failed", zap.String("product_id", id), zap.Error(err))
	}
	return
}

// DeleteProduct removes id from the sandbox. Unknown ids are ignored.
func (as *AdminService) DeleteProduct(ctx context.Context, sessionId string, id string) (err error) {
	_, err = as.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		as.seed(s)
		n := len(s.Catalog)
		s.Catalog = slices.DeleteFunc(s.Catalog, func(p entities.Product) bool { return p.Id == id })
		if len(s.Catalog) < n {
			s.Notify(entities.Notification{Level: entities.LevelSuccess, Message: MsgProductDeleted})
		}
		return nil
	})
	return
}

// validateProduct requires a name, description and category, a price above
// zero and a non-negative stock.
func validateProduct(req models.ProductRequest) (p entities.Product, ok bool) {
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	category := strings.TrimSpace(req.Category)
	if name == "" || description == "" || category == "" || req.Stock < 0 {
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || !price.IsPositive() {
		return
	}
	return entities.Product{
		Name:        name,
		Description: description,
		Price:       price,
		Image:       strings.TrimSpace(req.Image),
		Category:    category,
		Featured:    req.Featured,
		Stock:       req.Stock,
	}, true
}

// nextProductId is one past the largest numeric id, so ids stay unique
// after deletions.
func nextProductId(products []entities.Product) string {
	maxId := 0
	for _, p := range products {
		if n, err := strconv.Atoi(p.Id); err == nil && n > maxId {
			maxId = n
		}
	}
	return strconv.Itoa(maxId + 1)
}
