package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(ha *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(ha.LoggingMiddleware)
	router.Use(ha.ErrorHandleMiddleware)
	router.NotFoundHandler = http.HandlerFunc(ha.NotFound)

	router.HandleFunc("/", ha.Home).Methods("GET")
	router.HandleFunc("/products", ha.Products).Methods("GET")
	router.HandleFunc("/product/{id}", ha.ProductDetail).Methods("GET")

	router.HandleFunc("/cart", ha.Cart).Methods("GET")
	router.HandleFunc("/cart/add", ha.AddToCart).Methods("POST")
	router.HandleFunc("/cart/update", ha.UpdateCart).Methods("POST")
	router.HandleFunc("/cart/remove", ha.RemoveFromCart).Methods("POST")
	router.HandleFunc("/cart/clear", ha.ClearCart).Methods("POST")

	router.HandleFunc("/checkout", ha.Checkout).Methods("GET")
	router.HandleFunc("/checkout", ha.SubmitCheckout).Methods("POST")
	router.HandleFunc("/checkout/confirmation", ha.Confirmation).Methods("GET")

	router.HandleFunc("/admin", ha.Admin).Methods("GET")
	router.HandleFunc("/admin/products", ha.AdminAddProduct).Methods("POST")
	router.HandleFunc("/admin/products/{id}", ha.AdminEditProduct).Methods("POST")
	router.HandleFunc("/admin/products/{id}/delete", ha.AdminDeleteProduct).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", ha.ApiProducts).Methods("GET")
	api.HandleFunc("/products/{id}", ha.ApiProduct).Methods("GET")

	api.HandleFunc("/cart", ha.ApiGetCart).Methods("GET")
	api.HandleFunc("/cart", ha.ApiClearCart).Methods("DELETE")
	api.HandleFunc("/cart/items", ha.ApiAddToCart).Methods("POST")
	api.HandleFunc("/cart/items/{id}", ha.ApiUpdateCartItem).Methods("PATCH")
	api.HandleFunc("/cart/items/{id}", ha.ApiRemoveCartItem).Methods("DELETE")

	api.HandleFunc("/checkout", ha.ApiSubmitCheckout).Methods("POST")
	api.HandleFunc("/checkout", ha.ApiCheckoutStatus).Methods("GET")

	api.HandleFunc("/admin/products", ha.ApiAdminProducts).Methods("GET")
	api.HandleFunc("/admin/products", ha.ApiAdminAddProduct).Methods("POST")
	api.HandleFunc("/admin/products/{id}", ha.ApiAdminProduct).Methods("GET")
	api.HandleFunc("/admin/products/{id}", ha.ApiAdminEditProduct).Methods("PUT")
	api.HandleFunc("/admin/products/{id}", ha.ApiAdminDeleteProduct).Methods("DELETE")

	return router
}
