package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/services"
	"github.com/ThanawawEikQ/dark-vista-shop/views"

	"github.com/gorilla/mux"
)

func queryFrom(r *http.Request) catalog.Query {
	v := r.URL.Query()
	return catalog.Query{
		Search:   strings.TrimSpace(v.Get("search")),
		Category: v.Get("category"),
		Sort:     catalog.ParseSortKey(v.Get("sort")),
	}
}

func productRequestFrom(r *http.Request) models.ProductRequest {
	featured := r.PostFormValue("featured")
	return models.ProductRequest{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Price:       r.PostFormValue("price"),
		Image:       r.PostFormValue("image"),
		Category:    r.PostFormValue("category"),
		Featured:    featured == "true" || featured == "on",
		Stock:       models.ParseQuantity(r.PostFormValue("stock"), -1),
	}
}

func checkoutFormFrom(r *http.Request) models.CheckoutForm {
	return models.CheckoutForm{
		FullName:   r.PostFormValue("fullName"),
		Email:      r.PostFormValue("email"),
		Address:    r.PostFormValue("address"),
		City:       r.PostFormValue("city"),
		ZipCode:    r.PostFormValue("zipCode"),
		CardNumber: r.PostFormValue("cardNumber"),
		CardExpiry: r.PostFormValue("cardExpiry"),
		CardCvv:    r.PostFormValue("cardCvv"),
	}
}

// readOnlyPage resolves the session and shell shared by the GET pages.
func (h *Handler) readOnlyPage(w http.ResponseWriter, r *http.Request, title, search string) (sessionId string, l views.Layout, ok bool) {
	sessionId, err := h.currentSession(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	l, err = h.layout(r, sessionId, title, search)
	if err == nil {
		err = h.flash(r, sessionId, &l)
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	return sessionId, l, true
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	_, l, ok := h.readOnlyPage(w, r, "", "")
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, views.PageHome, views.Home(l, h.ps.GetFeaturedProducts(), h.ps.GetCategories()))
}

func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(r)
	_, l, ok := h.readOnlyPage(w, r, "Products", q.Search)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, views.PageProducts, views.Products(l, h.ps.GetProducts(), q))
}

func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	_, l, ok := h.readOnlyPage(w, r, "", "")
	if !ok {
		return
	}
	quantity := models.ParseQuantity(r.URL.Query().Get("quantity"), 1)
	page := views.ProductDetail(l, h.ps.GetProducts(), id, quantity, services.RelatedLimit)
	status := http.StatusOK
	if !page.Found {
		status = http.StatusNotFound
	} else {
		page.Title = page.Product.Product.Name + " | " + views.ShopName
	}
	h.render(w, r, status, views.PageProduct, page)
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	sessionId, l, ok := h.readOnlyPage(w, r, "Cart", "")
	if !ok {
		return
	}
	state, err := h.cart(r, sessionId)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.PageCart, views.Cart(l, state, h.chs.Summary(state)))
}

// cart mutations

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, fallback string, fn func(sessionId string) error) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, models.ErrBadRequest)
		return
	}
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if err := fn(sessionId); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, safeRedirect(r.PostFormValue("return_to"), fallback), http.StatusSeeOther)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "/cart", func(sessionId string) error {
		req := models.CartRequest{
			ProductId: r.PostFormValue("product_id"),
			Quantity:  models.ParseQuantity(r.PostFormValue("quantity"), 1),
		}
		_, err := h.cs.AddCartItem(r.Context(), sessionId, req)
		return err
	})
}

func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "/cart", func(sessionId string) error {
		quantity, ok := models.ParseInt(r.PostFormValue("quantity"))
		if !ok {
			return models.ErrBadRequest
		}
		_, err := h.cs.UpdateCartItem(r.Context(), sessionId, r.PostFormValue("product_id"), quantity)
		return err
	})
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "/cart", func(sessionId string) error {
		_, err := h.cs.RemoveCartItem(r.Context(), sessionId, r.PostFormValue("product_id"))
		return err
	})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, "/cart", func(sessionId string) error {
		_, err := h.cs.ClearCart(r.Context(), sessionId)
		return err
	})
}

// checkout

func (h *Handler) checkoutPage(w http.ResponseWriter, r *http.Request, sessionId string, form models.CheckoutForm, status int) {
	progress := entities.CheckoutProgress{Status: entities.CheckoutIdle}
	if sessionId != "" {
		var err error
		progress, _, err = h.chs.Status(r.Context(), sessionId)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
	}
	l, err := h.layout(r, sessionId, "Checkout", "")
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	state, err := h.cart(r, sessionId)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	page := views.Checkout(l, state, h.chs.Summary(state), progress, form)
	if page.Redirect != "" {
		http.Redirect(w, r, page.Redirect, http.StatusSeeOther)
		return
	}
	if err := h.flash(r, sessionId, &page.Layout); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, status, views.PageCheckout, page)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.currentSession(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.checkoutPage(w, r, sessionId, models.CheckoutForm{}, http.StatusOK)
}

// SubmitCheckout starts the payment. A rejected form is shown again with
// its values and the warning.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, models.ErrBadRequest)
		return
	}
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	form := checkoutFormFrom(r)
	_, accepted, err := h.chs.Submit(r.Context(), sessionId, form)
	switch {
	case errors.Is(err, models.ErrNotAllowed), err == nil && accepted:
		http.Redirect(w, r, "/checkout/confirmation", http.StatusSeeOther)
	case err != nil:
		h.renderError(w, r, err)
	default:
		h.checkoutPage(w, r, sessionId, form, http.StatusUnprocessableEntity)
	}
}

func (h *Handler) Confirmation(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.currentSession(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	progress := entities.CheckoutProgress{Status: entities.CheckoutIdle}
	var conf *entities.OrderConfirmation
	if sessionId != "" {
		progress, conf, err = h.chs.Status(r.Context(), sessionId)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
	}
	l, err := h.layout(r, sessionId, "Order Confirmation", "")
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page := views.Confirmation(l, progress, conf)
	if page.Redirect != "" {
		http.Redirect(w, r, page.Redirect, http.StatusSeeOther)
		return
	}
	if err := h.flash(r, sessionId, &page.Layout); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, views.PageConfirmation, page)
}

// admin

func (h *Handler) adminPage(w http.ResponseWriter, r *http.Request, sessionId, editId string, form models.ProductRequest, status int) {
	products, err := h.as.GetProducts(r.Context(), sessionId)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	l, err := h.layout(r, sessionId, "Admin Dashboard", "")
	if err == nil {
		err = h.flash(r, sessionId, &l)
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page := views.Admin(l, products, editId, form)
	if editId != "" && status == http.StatusOK && !page.Editing {
		status = http.StatusNotFound
	}
	h.render(w, r, status, views.PageAdmin, page)
}

func (h *Handler) Admin(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.adminPage(w, r, sessionId, r.URL.Query().Get("edit"), models.ProductRequest{}, http.StatusOK)
}

func (h *Handler) AdminAddProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, models.ErrBadRequest)
		return
	}
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	req := productRequestFrom(r)
	_, accepted, err := h.as.AddProduct(r.Context(), sessionId, req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if !accepted {
		h.adminPage(w, r, sessionId, "", req, http.StatusUnprocessableEntity)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *Handler) AdminEditProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, models.ErrBadRequest)
		return
	}
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	req := productRequestFrom(r)
	_, accepted, err := h.as.EditProduct(r.Context(), sessionId, id, req)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if !accepted {
		req.Id = id
		h.adminPage(w, r, sessionId, id, req, http.StatusUnprocessableEntity)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if err := h.as.DeleteProduct(r.Context(), sessionId, id); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
