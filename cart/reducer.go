// Package cart implements the shopping cart as a pure state transition
// function plus a small owned store around it.
package cart

import (
	"fmt"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"

	"github.com/shopspring/decimal"
)

// Command is one of AddItem, RemoveItem, UpdateQuantity or Clear.
type Command interface {
	command()
}

type AddItem struct {
	Product  entities.Product
	Quantity int
}

type RemoveItem struct {
	ProductId string
}

// UpdateQuantity replaces the quantity of an item. Zero or less removes it.
type UpdateQuantity struct {
	ProductId string
	Quantity  int
}

type Clear struct{}

func (AddItem) command()        {}
func (RemoveItem) command()     {}
func (UpdateQuantity) command() {}
func (Clear) command()          {}

const (
	MsgItemRemoved     = "Item removed from cart"
	MsgCartUpdated     = "Cart updated"
	MsgCartCleared     = "Cart cleared"
	MsgInvalidQuantity = "Quantity must be at least 1"
)

func stockWarning(stock int) entities.Notification {
	return entities.Notification{
		Level:   entities.LevelWarning,
		Message: fmt.Sprintf("Sorry, only %d items available in stock", stock),
	}
}

// Reduce applies cmd to state and returns the next state together with the
// notification the change should surface. A rejected command returns state
// unchanged and a warning; a no-op returns state and an empty notification.
// The input state is never modified.
func Reduce(state entities.CartState, cmd Command) (entities.CartState, entities.Notification) {
	switch c := cmd.(type) {
	case AddItem:
		return add(state, c)
	case RemoveItem:
		return remove(state, c.ProductId)
	case UpdateQuantity:
		return update(state, c)
	case Clear:
		return entities.EmptyCart(), entities.Notification{Level: entities.LevelInfo, Message: MsgCartCleared}
	}
	return state, entities.Notification{}
}

func add(state entities.CartState, c AddItem) (entities.CartState, entities.Notification) {
	if c.Quantity < 1 {
		return state, entities.Notification{Level: entities.LevelWarning, Message: MsgInvalidQuantity}
	}

	items := state.Clone().Items
	if i := state.Find(c.Product.Id); i >= 0 {
		newQuantity := items[i].Quantity + c.Quantity
		if newQuantity > c.Product.Stock {
			return state, stockWarning(c.Product.Stock)
		}
		items[i].Quantity = newQuantity
	} else {
		if c.Quantity > c.Product.Stock {
			return state, stockWarning(c.Product.Stock)
		}
		items = append(items, entities.CartItem{Product: c.Product, Quantity: c.Quantity})
	}

	return recalculate(items), entities.Notification{
		Level:   entities.LevelSuccess,
		Message: c.Product.Name + " added to cart",
	}
}

func remove(state entities.CartState, productId string) (entities.CartState, entities.Notification) {
	if state.Find(productId) < 0 {
		return state, entities.Notification{}
	}
	items := make([]entities.CartItem, 0, len(state.Items))
	for _, ci := range state.Items {
		if ci.Product.Id != productId {
			items = append(items, ci)
		}
	}
	return recalculate(items), entities.Notification{Level: entities.LevelInfo, Message: MsgItemRemoved}
}

func update(state entities.CartState, c UpdateQuantity) (entities.CartState, entities.Notification) {
	i := state.Find(c.ProductId)
	if i < 0 {
		return state, entities.Notification{}
	}
	if c.Quantity <= 0 {
		return remove(state, c.ProductId)
	}
	stock := state.Items[i].Product.Stock
	if c.Quantity > stock {
		return state, stockWarning(stock)
	}

	items := state.Clone().Items
	items[i].Quantity = c.Quantity
	return recalculate(items), entities.Notification{Level: entities.LevelInfo, Message: MsgCartUpdated}
}

// recalculate is the only place a cart total is computed.
func recalculate(items []entities.CartItem) entities.CartState {
	total := decimal.Zero
	for _, ci := range items {
		total = total.Add(ci.LineTotal())
	}
	return entities.CartState{Items: items, Total: total}
}
