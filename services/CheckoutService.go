package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/cart"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const (
	MsgCartEmpty       = "Your cart is empty"
	MsgPaymentSuccess  = "Payment successful!"
	MsgPaymentInFlight = "Your payment is already being processed"
)

// timerTimeout bounds the session write a fired checkout timer performs.
const timerTimeout = 5 * time.Second

// staleGrace is how long past its last scheduled step an in-flight payment
// may sit before a service with no timer for it finishes it directly.
const staleGrace = 5 * time.Second

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. time.AfterFunc is the production one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var SystemScheduler Scheduler = systemScheduler{}

type CheckoutParams struct {
	PaymentDelay  time.Duration
	RedirectDelay time.Duration
	TaxRate       decimal.Decimal
	Currency      currency.Unit
	Scheduler     Scheduler
	Now           func() time.Time
	IntN          func(n int) int
}

type pendingTask struct {
	timer Timer
}

// CheckoutService simulates payment: a submitted order is "processing" for
// PaymentDelay, then "paid" for RedirectDelay, after which the cart is
// cleared and a confirmation is issued. Payment always succeeds.
type CheckoutService struct {
	sr  repository.SessionRepository
	log *zap.Logger

	paymentDelay  time.Duration
	redirectDelay time.Duration
	taxRate       decimal.Decimal
	cur           currency.Unit
	sched         Scheduler
	now           func() time.Time
	intN          func(n int) int

	mu      sync.Mutex
	pending map[string]*pendingTask
	closed  bool
}

func NewCheckoutService(sessionRepo repository.SessionRepository, params CheckoutParams, logger *zap.Logger) *CheckoutService {
	if params.Scheduler == nil {
		params.Scheduler = SystemScheduler
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.IntN == nil {
		params.IntN = rand.IntN
	}
	return &CheckoutService{
		sr:            sessionRepo,
		log:           logger,
		paymentDelay:  params.PaymentDelay,
		redirectDelay: params.RedirectDelay,
		taxRate:       params.TaxRate,
		cur:           params.Currency,
		sched:         params.Scheduler,
		now:           params.Now,
		intN:          params.IntN,
		pending:       make(map[string]*pendingTask),
	}
}

func (cs *CheckoutService) Summary(state entities.CartState) entities.Summary {
	return cart.Summarize(state, cs.taxRate, cs.cur)
}

// Submit validates the form and starts the simulated payment. A rejected
// submission leaves a warning notification on the session and returns
// accepted == false.
func (cs *CheckoutService) Submit(ctx context.Context, sessionId string, form models.CheckoutForm) (progress entities.CheckoutProgress, accepted bool, err error) {
	s, err := cs.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		accepted = false
		if cs.settle(sessionId, s) {
			cs.log.Info("Submit: finished abandoned payment", zap.String("session_id", sessionId))
		}
		if s.Checkout.InFlight() {
			return models.ErrNotAllowed
		}
		if len(s.Cart.Items) == 0 {
			s.Notify(entities.Notification{Level: entities.LevelWarning, Message: MsgCartEmpty})
			return nil
		}
		for _, f := range form.Fields() {
			if strings.TrimSpace(f.Value) == "" {
				s.Notify(entities.Notification{
					Level:   entities.LevelWarning,
					Message: "Please enter your " + models.FieldWords(f.Key),
				})
				return nil
			}
		}

		s.Checkout = entities.CheckoutProgress{
			Status:    entities.CheckoutProcessing,
			StartedAt: cs.now(),
			Amount:    cs.Summary(s.Cart).Total.Amount,
		}
		s.Confirmation = nil
		accepted = true
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotAllowed) {
			cs.log.Info("Submit: payment already in flight", zap.String("session_id", sessionId))
		}
		return
	}
	progress = s.Checkout
	if accepted {
		cs.log.Info("payment started",
			zap.String("session_id", sessionId),
			zap.String("amount", progress.Amount.StringFixed(2)))
		cs.schedule(sessionId, cs.paymentDelay, func() { cs.markPaid(sessionId) })
	}
	return
}

// Status reports the session's checkout progress. A payment whose timers
// were lost, for example across a restart with the redis backend, is
// finished here once its schedule has run out.
func (cs *CheckoutService) Status(ctx context.Context, sessionId string) (progress entities.CheckoutProgress, confirmation *entities.OrderConfirmation, err error) {
	s, exists, err := cs.sr.GetSession(ctx, sessionId)
	if err != nil {
		return
	}
	if !exists {
		err = models.ErrNotFoundError
		return
	}
	if cs.overdue(sessionId, s.Checkout) {
		settled := false
		s, err = cs.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
			settled = cs.settle(sessionId, s)
			return nil
		})
		if err != nil {
			return
		}
		if settled {
			cs.log.Info("Status: finished abandoned payment", zap.String("session_id", sessionId))
		}
	}
	return s.Checkout, s.Confirmation, nil
}

// overdue reports whether p is in flight past the end of its schedule with
// no timer of ours still pending for it.
func (cs *CheckoutService) overdue(sessionId string, p entities.CheckoutProgress) bool {
	if !p.InFlight() {
		return false
	}
	if cs.now().Sub(p.StartedAt) <= cs.paymentDelay+cs.redirectDelay+staleGrace {
		return false
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, scheduled := cs.pending[sessionId]
	return !scheduled
}

// settle completes an overdue payment in place.
func (cs *CheckoutService) settle(sessionId string, s *entities.Session) bool {
	if !cs.overdue(sessionId, s.Checkout) {
		return false
	}
	if s.Checkout.Status == entities.CheckoutProcessing {
		s.Notify(entities.Notification{Level: entities.LevelSuccess, Message: MsgPaymentSuccess})
	}
	cs.finish(s)
	return true
}

func (cs *CheckoutService) markPaid(sessionId string) {
	ctx, cancel := context.WithTimeout(context.Background(), timerTimeout)
	defer cancel()

	advanced := false
	_, err := cs.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		advanced = false
		if s.Checkout.Status != entities.CheckoutProcessing {
			return nil
		}
		s.Checkout.Status = entities.CheckoutPaid
		s.Notify(entities.Notification{Level: entities.LevelSuccess, Message: MsgPaymentSuccess})
		advanced = true
		return nil
	})
	if err != nil {
		cs.logTimerError("markPaid", sessionId, err)
		return
	}
	if advanced {
		cs.schedule(sessionId, cs.redirectDelay, func() { cs.complete(sessionId) })
	}
}

func (cs *CheckoutService) complete(sessionId string) {
	ctx, cancel := context.WithTimeout(context.Background(), timerTimeout)
	defer cancel()

	var conf entities.OrderConfirmation
	_, err := cs.sr.UpdateSession(ctx, sessionId, func(s *entities.Session) error {
		conf = entities.OrderConfirmation{}
		if s.Checkout.Status != entities.CheckoutPaid {
			return nil
		}
		conf = cs.finish(s)
		return nil
	})
	if err != nil {
		cs.logTimerError("complete", sessionId, err)
		return
	}
	if conf.OrderNumber != "" {
		cs.log.Info("order confirmed",
			zap.String("session_id", sessionId),
			zap.String("order_number", conf.OrderNumber))
	}
}

func (cs *CheckoutService) finish(s *entities.Session) entities.OrderConfirmation {
	conf := cs.newConfirmation(s.Checkout.Amount, s.Cart.Count())
	s.Cart = cart.NewStore(s.Cart, nil).Clear()
	s.Checkout.Status = entities.CheckoutCompleted
	s.Confirmation = &conf
	return conf
}

func (cs *CheckoutService) newConfirmation(amount decimal.Decimal, items int) entities.OrderConfirmation {
	now := cs.now()
	return entities.OrderConfirmation{
		OrderNumber:  fmt.Sprintf("ORD-%06d", cs.intN(1000000)),
		PlacedAt:     now,
		DeliveryDate: now.AddDate(0, 0, 5+cs.intN(3)),
		Items:        items,
		Amount:       amount,
	}
}

func (cs *CheckoutService) logTimerError(step, sessionId string, err error) {
	if errors.Is(err, models.ErrNotFoundError) {
		cs.log.Info(step+": session is gone", zap.String("session_id", sessionId))
		return
	}
	cs.log.Error(step, zap.String("session_id", sessionId), zap.Error(err))
}

func (cs *CheckoutService) schedule(sessionId string, d time.Duration, f func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	task := &pendingTask{}
	task.timer = cs.sched.AfterFunc(d, func() {
		cs.mu.Lock()
		if cs.pending[sessionId] == task {
			delete(cs.pending, sessionId)
		}
		cs.mu.Unlock()
		f()
	})
	cs.pending[sessionId] = task
}

// Pending is the number of scheduled checkout steps.
func (cs *CheckoutService) Pending() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.pending)
}

// Close stops every scheduled step. Payments left in flight are finished by
// the next Submit or Status call on their session once they are overdue.
func (cs *CheckoutService) Close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.closed = true
	for id, task := range cs.pending {
		task.timer.Stop()
		delete(cs.pending, id)
	}
}
