package services

import (
	"context"

	"github.com/ThanawawEikQ/dark-vista-shop/cart"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"

	"go.uber.org/zap"
)

type CartService struct {
	pr  repository.ProductRepository
	sr  repository.SessionRepository
	log *zap.Logger
}

func NewCartService(productRepo repository.ProductRepository, sessionRepo repository.SessionRepository, logger *zap.Logger) CartService {
	return CartService{
		pr:  productRepo,
		sr:  sessionRepo,
		log: logger,
	}
}

func (cs *CartService) GetCart(ctx context.Context, sessionId string) (state entities.CartState, err error) {
	s, exists, err := cs.sr.GetSession(ctx, sessionId)
	if err != nil {
		return
	}
	if !exists {
		return entities.EmptyCart(), nil
	}
	return s.Cart, nil
}

// AddCartItem adds req.Quantity units of a catalog product. A zero quantity
// means one unit.
func (cs *CartService) AddCartItem(ctx context.Context, sessionId string, req models.CartRequest) (state entities.CartState, err error) {
	p, exists := cs.pr.GetProductById(req.ProductId)
	if !exists {
		cs.log.Info("AddCartItem: product does not exist", zap.String("product_id", req.ProductId))
		err = models.ErrNotFoundError
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	return cs.dispatch(ctx, sessionId, cart.AddItem{Product: p, Quantity: req.Quantity})
}

func (cs *CartService) RemoveCartItem(ctx context.Context, sessionId string, productId string) (state entities.CartState, err error) {
	return cs.dispatch(ctx, sessionId, cart.RemoveItem{ProductId: productId})
}

func (cs *CartService) UpdateCartItem(ctx context.Context, sessionId string, productId string, quantity int) (state entities.CartState, err error) {
	return cs.dispatch(ctx, sessionId, cart.UpdateQuantity{ProductId: productId, Quantity: quantity})
}

func (cs *CartService) ClearCart(ctx context.Context, sessionId string) (state entities.CartState, err error) {
	return cs.dispatch(ctx, sessionId, cart.Clear{})
}

func (cs *CartService) dispatch(ctx context.Context, sessionId string, cmd cart.Command) (state entities.CartState, err error) {
	s, err := cs.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		notifier := cart.NotifierFunc(func(n entities.Notification) {
			if n.Level == entities.LevelWarning {
				cs.log.Info("cart change rejected",
					zap.String("session_id", sessionId),
					zap.String("reason", n.Message))
			}
			s.Notify(n)
		})
		s.Cart = cart.NewStore(s.Cart, notifier).Dispatch(cmd)
		return nil
	})
	if err != nil {
		return
	}
	return s.Cart, nil
}
