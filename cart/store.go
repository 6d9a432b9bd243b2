package cart

import (
	"sync"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
)

type Notifier interface {
	Notify(n entities.Notification)
}

type NotifierFunc func(n entities.Notification)

func (f NotifierFunc) Notify(n entities.Notification) { f(n) }

type discard struct{}

func (discard) Notify(entities.Notification) {}

// Store owns one cart state. Dispatches are serialized, so two mutations
// never interleave.
type Store struct {
	mu       sync.Mutex
	state    entities.CartState
	notifier Notifier
}

// NewStore wraps initial. A nil notifier drops notifications.
func NewStore(initial entities.CartState, notifier Notifier) *Store {
	if notifier == nil {
		notifier = discard{}
	}
	return &Store{
		state:    initial.Clone(),
		notifier: notifier,
	}
}

// Dispatch runs cmd through Reduce and returns the resulting state.
func (s *Store) Dispatch(cmd Command) entities.CartState {
	s.mu.Lock()
	next, n := Reduce(s.state, cmd)
	s.state = next
	res := next.Clone()
	s.mu.Unlock()

	if !n.Empty() {
		s.notifier.Notify(n)
	}
	return res
}

func (s *Store) Add(p entities.Product, quantity int) entities.CartState {
	return s.Dispatch(AddItem{Product: p, Quantity: quantity})
}

func (s *Store) Remove(productId string) entities.CartState {
	return s.Dispatch(RemoveItem{ProductId: productId})
}

func (s *Store) UpdateQuantity(productId string, quantity int) entities.CartState {
	return s.Dispatch(UpdateQuantity{ProductId: productId, Quantity: quantity})
}

func (s *Store) Clear() entities.CartState {
	return s.Dispatch(Clear{})
}

func (s *Store) State() entities.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Count()
}
