package entities

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Product struct {
	Id          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Featured    bool            `json:"featured"`
	Stock       int             `json:"stock"`
}

type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is price times quantity for a single cart entry.
func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.Product.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// CartState is the ordered, product-unique list of cart entries. Total is
// derived from Items and only ever written by the cart reducer.
type CartState struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func EmptyCart() CartState {
	return CartState{Items: []CartItem{}, Total: decimal.Zero}
}

func (cs CartState) Clone() CartState {
	items := slices.Clone(cs.Items)
	if items == nil {
		items = []CartItem{}
	}
	return CartState{Items: items, Total: cs.Total}
}

func (cs CartState) Find(productId string) int {
	return slices.IndexFunc(cs.Items, func(ci CartItem) bool {
		return ci.Product.Id == productId
	})
}

// Count is the number of units in the cart, shown on the navigation badge.
func (cs CartState) Count() int {
	n := 0
	for _, ci := range cs.Items {
		n += ci.Quantity
	}
	return n
}

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency currency.Unit   `json:"-"`
}

func (m Money) String() string {
	return symbol(m.Currency) + m.Amount.StringFixed(2)
}

var moneyPrinter = message.NewPrinter(language.English)

// symbol is the narrow English symbol for u, or its ISO code followed by a
// space when CLDR has none.
func symbol(u currency.Unit) string {
	sym := moneyPrinter.Sprint(currency.NarrowSymbol(u))
	if sym == u.String() {
		return sym + " "
	}
	return sym
}

type Summary struct {
	Subtotal Money `json:"subtotal"`
	Shipping Money `json:"shipping"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
)

type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

func (n Notification) Empty() bool {
	return n.Level == "" && n.Message == ""
}

type CheckoutStatus string

const (
	CheckoutIdle       CheckoutStatus = "idle"
	CheckoutProcessing CheckoutStatus = "processing"
	CheckoutPaid       CheckoutStatus = "paid"
	CheckoutCompleted  CheckoutStatus = "completed"
)

type CheckoutProgress struct {
	Status    CheckoutStatus  `json:"status"`
	StartedAt time.Time       `json:"started_at,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// InFlight reports whether a simulated payment is still pending.
func (cp CheckoutProgress) InFlight() bool {
	return cp.Status == CheckoutProcessing || cp.Status == CheckoutPaid
}

type OrderConfirmation struct {
	OrderNumber  string          `json:"order_number"`
	PlacedAt     time.Time       `json:"placed_at"`
	DeliveryDate time.Time       `json:"delivery_date"`
	Items        int             `json:"items"`
	Amount       decimal.Decimal `json:"amount"`
}

type Session struct {
	Id            string             `json:"id"`
	Cart          CartState          `json:"cart"`
	Notifications []Notification     `json:"notifications,omitempty"`
	Catalog       []Product          `json:"catalog,omitempty"`
	SandboxReady  bool               `json:"sandbox_ready"`
	Checkout      CheckoutProgress   `json:"checkout"`
	Confirmation  *OrderConfirmation `json:"confirmation,omitempty"`
	ExpiresAt     time.Time          `json:"expires_at"`
}

func NewSession(id string) Session {
	return Session{
		Id:       id,
		Cart:     EmptyCart(),
		Checkout: CheckoutProgress{Status: CheckoutIdle, Amount: decimal.Zero},
	}
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Session) Clone() Session {
	c := s
	c.Cart = s.Cart.Clone()
	c.Notifications = slices.Clone(s.Notifications)
	c.Catalog = slices.Clone(s.Catalog)
	if s.Confirmation != nil {
		conf := *s.Confirmation
		c.Confirmation = &conf
	}
	return c
}

func (s *Session) Notify(n Notification) {
	if n.Empty() {
		return
	}
	s.Notifications = append(s.Notifications, n)
}
