package handlers

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type productsResponse struct {
	Products []entities.Product `json:"products"`
}

type productResponse struct {
	Product entities.Product   `json:"product"`
	Related []entities.Product `json:"related"`
}

type cartResponse struct {
	Cart          entities.CartState      `json:"cart"`
	Count         int                     `json:"count"`
	Summary       entities.Summary        `json:"summary"`
	Notifications []entities.Notification `json:"notifications"`
}

type checkoutResponse struct {
	Progress      entities.CheckoutProgress   `json:"progress"`
	Confirmation  *entities.OrderConfirmation `json:"confirmation,omitempty"`
	Notifications []entities.Notification     `json:"notifications"`
}

type adminResponse struct {
	Product       *entities.Product       `json:"product,omitempty"`
	Products      []entities.Product      `json:"products,omitempty"`
	Notifications []entities.Notification `json:"notifications"`
}

// statusFor is 422 when any drained notification is a warning. Warnings
// only come from rejected changes.
func statusFor(notes []entities.Notification, ok int) int {
	if slices.ContainsFunc(notes, func(n entities.Notification) bool { return n.Level == entities.LevelWarning }) {
		return http.StatusUnprocessableEntity
	}
	return ok
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest
	}
	return nil
}

// products

func (h *Handler) ApiProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, productsResponse{Products: h.ps.SearchProducts(queryFrom(r))})
}

func (h *Handler) ApiProduct(w http.ResponseWriter, r *http.Request) {
	p, related, err := h.ps.GetProductWithRelated(mux.Vars(r)["id"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	if related == nil {
		related = []entities.Product{}
	}
	writeJSON(w, http.StatusOK, productResponse{Product: p, Related: related})
}

// cart

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, sessionId string, state entities.CartState, ok int) {
	notes, err := h.drain(r, sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, statusFor(notes, ok), cartResponse{
		Cart:          state,
		Count:         state.Count(),
		Summary:       h.chs.Summary(state),
		Notifications: notes,
	})
}

func (h *Handler) ApiGetCart(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.currentSession(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	state, err := h.cart(r, sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.writeCart(w, r, sessionId, state, http.StatusOK)
}

func (h *Handler) apiMutateCart(w http.ResponseWriter, r *http.Request, fn func(sessionId string) (entities.CartState, error)) {
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	state, err := fn(sessionId)
	if err != nil {
		h.log.Info("cart request failed", zap.String("path", r.URL.Path), zap.Error(err))
		WriteErrorResponse(w, err)
		return
	}
	h.writeCart(w, r, sessionId, state, http.StatusOK)
}

func (h *Handler) ApiAddToCart(w http.ResponseWriter, r *http.Request) {
	req := models.CartRequest{}
	if err := decode(r, &req); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.apiMutateCart(w, r, func(sessionId string) (entities.CartState, error) {
		return h.cs.AddCartItem(r.Context(), sessionId, req)
	})
}

func (h *Handler) ApiUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	req := models.QuantityRequest{}
	if err := decode(r, &req); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.apiMutateCart(w, r, func(sessionId string) (entities.CartState, error) {
		return h.cs.UpdateCartItem(r.Context(), sessionId, mux.Vars(r)["id"], req.Quantity)
	})
}

func (h *Handler) ApiRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.apiMutateCart(w, r, func(sessionId string) (entities.CartState, error) {
		return h.cs.RemoveCartItem(r.Context(), sessionId, mux.Vars(r)["id"])
	})
}

func (h *Handler) ApiClearCart(w http.ResponseWriter, r *http.Request) {
	h.apiMutateCart(w, r, func(sessionId string) (entities.CartState, error) {
		return h.cs.ClearCart(r.Context(), sessionId)
	})
}

// checkout

func (h *Handler) ApiSubmitCheckout(w http.ResponseWriter, r *http.Request) {
	form := models.CheckoutForm{}
	if err := decode(r, &form); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	progress, accepted, err := h.chs.Submit(r.Context(), sessionId, form)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	notes, err := h.drain(r, sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	status := http.StatusAccepted
	if !accepted {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, checkoutResponse{Progress: progress, Notifications: notes})
}

func (h *Handler) ApiCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.currentSession(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	if sessionId == "" {
		writeJSON(w, http.StatusOK, checkoutResponse{
			Progress:      entities.CheckoutProgress{Status: entities.CheckoutIdle},
			Notifications: []entities.Notification{},
		})
		return
	}
	progress, conf, err := h.chs.Status(r.Context(), sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	notes, err := h.drain(r, sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{Progress: progress, Confirmation: conf, Notifications: notes})
}

// admin

func (h *Handler) ApiAdminProducts(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	products, err := h.as.GetProducts(r.Context(), sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

func (h *Handler) ApiAdminProduct(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	p, err := h.as.GetProduct(r.Context(), sessionId, mux.Vars(r)["id"])
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminResponse{Product: &p, Notifications: []entities.Notification{}})
}

func (h *Handler) apiAdminWrite(w http.ResponseWriter, r *http.Request, ok int, fn func(sessionId string, req models.ProductRequest) (entities.Product, bool, error)) {
	req := models.ProductRequest{}
	if err := decode(r, &req); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	p, accepted, err := fn(sessionId, req)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	notes, err := h.drain(r, sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	resp := adminResponse{Notifications: notes}
	status := http.StatusUnprocessableEntity
	if accepted {
		resp.Product = &p
		status = ok
	}
	writeJSON(w, status, resp)
}

func (h *Handler) ApiAdminAddProduct(w http.ResponseWriter, r *http.Request) {
	h.apiAdminWrite(w, r, http.StatusCreated, func(sessionId string, req models.ProductRequest) (entities.Product, bool, error) {
		return h.as.AddProduct(r.Context(), sessionId, req)
	})
}

func (h *Handler) ApiAdminEditProduct(w http.ResponseWriter, r *http.Request) {
	h.apiAdminWrite(w, r, http.StatusOK, func(sessionId string, req models.ProductRequest) (entities.Product, bool, error) {
		return h.as.EditProduct(r.Context(), sessionId, mux.Vars(r)["id"], req)
	})
}

func (h *Handler) ApiAdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	sessionId, err := h.ensureSession(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	if err := h.as.DeleteProduct(r.Context(), sessionId, mux.Vars(r)["id"]); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	notes, err := h.drain(r, sessionId)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminResponse{Notifications: notes})
}
