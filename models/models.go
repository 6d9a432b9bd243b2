package models

import (
	"errors"
	"strconv"
	"strings"
)

var ErrBadRequest = errors.New("bad request")
var ErrServerError = errors.New("server error")
var ErrNotFoundError = errors.New("not found")
var ErrNotAllowed = errors.New("not acceptable")

// CatalogRecord is the on-disk shape of a catalog entry. Price is kept as
// text so that it is parsed into a decimal without float rounding.
type CatalogRecord struct {
	Id          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Image       string `yaml:"image"`
	Category    string `yaml:"category"`
	Featured    bool   `yaml:"featured"`
	Stock       int    `yaml:"stock"`
}

type CartRequest struct {
	ProductId string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutForm holds the shipping and payment inputs of the checkout page.
type CheckoutForm struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	ZipCode    string `json:"zipCode"`
	CardNumber string `json:"cardNumber"`
	CardExpiry string `json:"cardExpiry"`
	CardCvv    string `json:"cardCvv"`
}

type FormField struct {
	Key   string
	Value string
}

// Fields lists the form inputs in page order.
func (f CheckoutForm) Fields() []FormField {
	return []FormField{
		{Key: "fullName", Value: f.FullName},
		{Key: "email", Value: f.Email},
		{Key: "address", Value: f.Address},
		{Key: "city", Value: f.City},
		{Key: "zipCode", Value: f.ZipCode},
		{Key: "cardNumber", Value: f.CardNumber},
		{Key: "cardExpiry", Value: f.CardExpiry},
		{Key: "cardCvv", Value: f.CardCvv},
	}
}

// ProductRequest is the admin add/edit form.
type ProductRequest struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	Featured    bool   `json:"featured"`
	Stock       int    `json:"stock"`
}

// FieldWords turns a camelCase form key into lower case words: "zipCode" -> "zip code".
func FieldWords(key string) string {
	var b strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseInt reads a form integer. ok is false when s is not a number.
func ParseInt(s string) (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseQuantity reads a form quantity, falling back to def on garbage input.
func ParseQuantity(s string, def int) int {
	if q, ok := ParseInt(s); ok {
		return q
	}
	return def
}
