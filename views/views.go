// Package views turns catalog, cart and session snapshots into page models.
// Every builder is a pure function; handlers render the result.
package views

import (
	"slices"
	"strconv"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	ShopName = "MyShop"

	// refreshSeconds is how often the payment progress page polls.
	refreshSeconds = 1
)

// AdminCategories are the choices offered by the admin product form.
var AdminCategories = []string{"Electronics", "Furniture", "Home Decor", "Accessories"}

type Layout struct {
	Title         string
	CartCount     int
	Search        string
	Categories    []string
	Year          int
	Notifications []entities.Notification
	Currency      currency.Unit
}

func NewLayout(title string, state entities.CartState, categories []string, search string, notes []entities.Notification, cur currency.Unit, now time.Time) Layout {
	if title == "" {
		title = ShopName
	} else {
		title += " | " + ShopName
	}
	return Layout{
		Title:         title,
		CartCount:     state.Count(),
		Search:        search,
		Categories:    categories,
		Year:          now.Year(),
		Notifications: notes,
		Currency:      cur,
	}
}

func (l Layout) money(d decimal.Decimal) string {
	return entities.Money{Amount: d, Currency: l.Currency}.String()
}

type ProductCard struct {
	Product    entities.Product
	Price      string
	InStock    bool
	StockLabel string
}

func (l Layout) card(p entities.Product) ProductCard {
	c := ProductCard{Product: p, Price: l.money(p.Price), InStock: p.Stock > 0}
	if c.InStock {
		c.StockLabel = strconv.Itoa(p.Stock) + " in stock"
	} else {
		c.StockLabel = "Out of stock"
	}
	return c
}

func (l Layout) cards(products []entities.Product) []ProductCard {
	out := make([]ProductCard, 0, len(products))
	for _, p := range products {
		out = append(out, l.card(p))
	}
	return out
}

type HomePage struct {
	Layout
	Featured   []ProductCard
	Categories []string
}

func Home(layout Layout, featured []entities.Product, categories []string) HomePage {
	return HomePage{
		Layout:     layout,
		Featured:   layout.cards(featured),
		Categories: categories,
	}
}

type SortChoice struct {
	Key      catalog.SortKey
	Label    string
	Selected bool
}

type ProductsPage struct {
	Layout
	Query       catalog.Query
	Products    []ProductCard
	Categories  []string
	SortOptions []SortChoice
}

func Products(layout Layout, products []entities.Product, q catalog.Query) ProductsPage {
	opts := make([]SortChoice, 0, len(catalog.SortOptions))
	for _, o := range catalog.SortOptions {
		opts = append(opts, SortChoice{Key: o.Key, Label: o.Label, Selected: o.Key == q.Sort})
	}
	return ProductsPage{
		Layout:      layout,
		Query:       q,
		Products:    layout.cards(catalog.Filter(products, q)),
		Categories:  catalog.Categories(products),
		SortOptions: opts,
	}
}

type ProductDetailPage struct {
	Layout
	Found           bool
	Product         ProductCard
	Availability    string
	Quantity        int
	QuantityOptions []int
	Related         []ProductCard
}

// ProductDetail builds the detail page for id. The requested quantity is
// clamped to 1..stock.
func ProductDetail(layout Layout, products []entities.Product, id string, quantity int, relatedLimit int) ProductDetailPage {
	p, ok := catalog.Find(products, id)
	if !ok {
		layout.Title = "Product Not Found | " + ShopName
		return ProductDetailPage{Layout: layout}
	}

	page := ProductDetailPage{
		Layout:  layout,
		Found:   true,
		Product: layout.card(p),
		Related: layout.cards(catalog.Related(products, p, relatedLimit)),
	}
	if p.Stock <= 0 {
		page.Availability = "Out of Stock"
		return page
	}
	page.Availability = "In Stock (" + strconv.Itoa(p.Stock) + " available)"
	page.Quantity = min(max(quantity, 1), p.Stock)
	page.QuantityOptions = make([]int, p.Stock)
	for i := range page.QuantityOptions {
		page.QuantityOptions[i] = i + 1
	}
	return page
}

type CartLine struct {
	Product     entities.Product
	Quantity    int
	Price       string
	LineTotal   string
	MaxQuantity int
}

func (l Layout) lines(state entities.CartState) []CartLine {
	out := make([]CartLine, 0, len(state.Items))
	for _, ci := range state.Items {
		out = append(out, CartLine{
			Product:     ci.Product,
			Quantity:    ci.Quantity,
			Price:       l.money(ci.Product.Price),
			LineTotal:   l.money(ci.LineTotal()),
			MaxQuantity: ci.Product.Stock,
		})
	}
	return out
}

type CartPage struct {
	Layout
	Lines   []CartLine
	Empty   bool
	Summary entities.Summary
}

func Cart(layout Layout, state entities.CartState, summary entities.Summary) CartPage {
	return CartPage{
		Layout:  layout,
		Lines:   layout.lines(state),
		Empty:   len(state.Items) == 0,
		Summary: summary,
	}
}

type FormInput struct {
	Key   string
	Label string
	Value string
}

type CheckoutPage struct {
	Layout
	Redirect string
	Lines    []CartLine
	Summary  entities.Summary
	Shipping []FormInput
	Payment  []FormInput
}

var fieldLabels = map[string]string{
	"fullName":   "Full Name",
	"email":      "Email",
	"address":    "Address",
	"city":       "City",
	"zipCode":    "Zip Code",
	"cardNumber": "Card Number",
	"cardExpiry": "Expiry (MM/YY)",
	"cardCvv":    "CVV",
}

// Checkout builds the checkout form. While a payment is in flight the
// visitor is sent to the progress page, and an empty cart goes back to
// the cart page.
func Checkout(layout Layout, state entities.CartState, summary entities.Summary, progress entities.CheckoutProgress, form models.CheckoutForm) CheckoutPage {
	page := CheckoutPage{Layout: layout}
	switch {
	case progress.InFlight():
		page.Redirect = "/checkout/confirmation"
		return page
	case len(state.Items) == 0:
		page.Redirect = "/cart"
		return page
	}

	page.Lines = layout.lines(state)
	page.Summary = summary
	for _, f := range form.Fields() {
		in := FormInput{Key: f.Key, Label: fieldLabels[f.Key], Value: f.Value}
		if slices.Contains([]string{"cardNumber", "cardExpiry", "cardCvv"}, f.Key) {
			page.Payment = append(page.Payment, in)
		} else {
			page.Shipping = append(page.Shipping, in)
		}
	}
	return page
}

type ConfirmationPage struct {
	Layout
	Redirect       string
	Processing     bool
	Paid           bool
	RefreshSeconds int
	OrderNumber    string
	DeliveryDate   string
	Items          int
	Amount         string
}

// Confirmation shows payment progress and, once the order is complete, its
// confirmation. With neither there is nothing to show and the visitor is
// sent home.
func Confirmation(layout Layout, progress entities.CheckoutProgress, conf *entities.OrderConfirmation) ConfirmationPage {
	page := ConfirmationPage{Layout: layout}
	switch {
	case progress.InFlight():
		page.Processing = progress.Status == entities.CheckoutProcessing
		page.Paid = progress.Status == entities.CheckoutPaid
		page.RefreshSeconds = refreshSeconds
		page.Amount = layout.money(progress.Amount)
	case progress.Status == entities.CheckoutCompleted && conf != nil:
		page.OrderNumber = conf.OrderNumber
		page.DeliveryDate = conf.DeliveryDate.Format("Monday, January 2")
		page.Items = conf.Items
		page.Amount = layout.money(conf.Amount)
	default:
		page.Redirect = "/"
	}
	return page
}

type AdminPage struct {
	Layout
	Products   []ProductCard
	Editing    bool
	EditId     string
	Form       models.ProductRequest
	Categories []string
}

// Admin lists the sandbox catalog. When editId names a product the form
// edits it, prefilled from the product unless form already carries values.
func Admin(layout Layout, products []entities.Product, editId string, form models.ProductRequest) AdminPage {
	page := AdminPage{
		Layout:     layout,
		Products:   layout.cards(products),
		Form:       form,
		Categories: AdminCategories,
	}
	p, ok := catalog.Find(products, editId)
	if ok {
		page.Editing = true
		page.EditId = p.Id
	}
	if ok && form == (models.ProductRequest{}) {
		page.Form = models.ProductRequest{
			Id:          p.Id,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			Image:       p.Image,
			Category:    p.Category,
			Featured:    p.Featured,
			Stock:       p.Stock,
		}
	}
	if page.Form.Category != "" && !slices.Contains(page.Categories, page.Form.Category) {
		page.Categories = append(slices.Clone(page.Categories), page.Form.Category)
	}
	return page
}
