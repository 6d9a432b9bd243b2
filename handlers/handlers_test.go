package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/cart"
	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/handlers"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"
	"github.com/ThanawawEikQ/dark-vista-shop/services"
	"github.com/ThanawawEikQ/dark-vista-shop/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

type queuedTimer struct {
	f       func()
	stopped bool
}

func (t *queuedTimer) Stop() bool {
	t.stopped = true
	return true
}

// queueScheduler holds checkout steps until the test runs them.
type queueScheduler struct {
	mu    sync.Mutex
	queue []*queuedTimer
}

func (s *queueScheduler) AfterFunc(d time.Duration, f func()) services.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &queuedTimer{f: f}
	s.queue = append(s.queue, t)
	return t
}

func (s *queueScheduler) RunNext(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	require.NotEmpty(t, s.queue)
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()
	if !next.stopped {
		next.f()
	}
}

type testShop struct {
	server *httptest.Server
	client *http.Client
	sched  *queueScheduler
}

func newTestShop(t *testing.T) *testShop {
	t.Helper()
	products, err := catalog.Default()
	require.NoError(t, err)
	pr, err := repository.NewProductRepository(products)
	require.NoError(t, err)
	sr := repository.NewMemorySessionRepository(time.Hour, zap.NewNop(), nil)
	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	sched := &queueScheduler{}
	checkout := services.NewCheckoutService(sr, services.CheckoutParams{
		PaymentDelay:  2 * time.Second,
		RedirectDelay: 1500 * time.Millisecond,
		TaxRate:       cart.DefaultTaxRate,
		Currency:      currency.USD,
		Scheduler:     sched,
	}, zap.NewNop())
	t.Cleanup(checkout.Close)

	ha := handlers.NewHandler(handlers.HandlerParams{
		PrdService:      services.NewProductService(pr),
		CrtService:      services.NewCartService(pr, sr, zap.NewNop()),
		CheckoutService: checkout,
		AdmService:      services.NewAdminService(pr, sr, zap.NewNop()),
		SessService:     services.NewSessionService(sr, zap.NewNop()),
		Renderer:        renderer,
		Logger:          zap.NewNop(),
		Currency:        currency.USD,
		SessionTTL:      time.Hour,
	})
	server := httptest.NewServer(handlers.NewRouter(ha))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	t.Cleanup(client.CloseIdleConnections)
	return &testShop{server: server, client: client, sched: sched}
}

func (s *testShop) do(t *testing.T, req *http.Request) (int, http.Header, string) {
	t.Helper()
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header, string(body)
}

func (s *testShop) get(t *testing.T, path string) (int, http.Header, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	require.NoError(t, err)
	return s.do(t, req)
}

func (s *testShop) postForm(t *testing.T, path string, form url.Values) (int, http.Header, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

func (s *testShop) sendJSON(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.server.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	status, _, respBody := s.do(t, req)
	if out != nil && strings.HasPrefix(strings.TrimSpace(respBody), "{") {
		require.NoError(t, json.Unmarshal([]byte(respBody), out), respBody)
	}
	return status
}

func checkoutForm() url.Values {
	return url.Values{
		"fullName":   {"Ada Lovelace"},
		"email":      {"ada@example.com"},
		"address":    {"12 Analytical Row"},
		"city":       {"London"},
		"zipCode":    {"NW1"},
		"cardNumber": {"4242424242424242"},
		"cardExpiry": {"12/30"},
		"cardCvv":    {"123"},
	}
}

func TestHomeDoesNotStartSession(t *testing.T) {
	shop := newTestShop(t)

	status, header, body := shop.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, header.Values("Set-Cookie"))
	assert.Contains(t, body, "Featured Products")
	assert.Contains(t, body, "Premium Wireless Headphones")
	assert.NotContains(t, body, `class="badge"`)
}

func TestProductPages(t *testing.T) {
	shop := newTestShop(t)

	status, _, body := shop.get(t, "/products?search=LAMP")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Minimalist Desk Lamp")
	assert.NotContains(t, body, "Smart Watch Pro")

	status, _, body = shop.get(t, "/products?search=nothing-matches-this")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No products found")

	status, _, body = shop.get(t, "/product/3?quantity=99")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<title>Ultra HD 4K Monitor | MyShop</title>")
	assert.Contains(t, body, `<option value="5" selected>`)
	assert.Contains(t, body, "Related Products")

	status, _, body = shop.get(t, "/product/999")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Product Not Found")

	status, _, _ = shop.get(t, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCartFlow(t *testing.T) {
	shop := newTestShop(t)

	status, header, _ := shop.postForm(t, "/cart/add", url.Values{"product_id": {"1"}, "quantity": {"2"}})
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/cart", header.Get("Location"))
	assert.Contains(t, header.Get("Set-Cookie"), handlers.SessionCookie+"=")

	status, _, body := shop.get(t, "/cart")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Premium Wireless Headphones added to cart")
	assert.Contains(t, body, `<span class="badge">2</span>`)
	assert.Contains(t, body, "$599.98")
	assert.Contains(t, body, "$60.00")

	_, _, body = shop.get(t, "/cart")
	assert.NotContains(t, body, "added to cart", "notifications are shown once")

	_, _, _ = shop.postForm(t, "/cart/add", url.Values{"product_id": {"1"}, "quantity": {"20"}})
	_, _, body = shop.get(t, "/cart")
	assert.Contains(t, body, "Sorry, only 15 items available in stock")
	assert.Contains(t, body, `<span class="badge">2</span>`)

	status, header, _ = shop.postForm(t, "/cart/update", url.Values{"product_id": {"1"}, "quantity": {"5"}})
	require.Equal(t, http.StatusSeeOther, status)
	_, _, body = shop.get(t, "/cart")
	assert.Contains(t, body, "Cart updated")
	assert.Contains(t, body, `<span class="badge">5</span>`)

	status, _, _ = shop.postForm(t, "/cart/update", url.Values{"product_id": {"1"}, "quantity": {"many"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, header, _ = shop.postForm(t, "/cart/update", url.Values{"product_id": {"1"}, "quantity": {"-1"}})
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/cart", header.Get("Location"))
	_, _, body = shop.get(t, "/cart")
	assert.Contains(t, body, "Item removed from cart")
	assert.Contains(t, body, "Your cart is empty")

	_, _, _ = shop.postForm(t, "/cart/add", url.Values{"product_id": {"1"}})
	_, _, _ = shop.get(t, "/cart")
	_, _, _ = shop.postForm(t, "/cart/remove", url.Values{"product_id": {"1"}})
	_, _, body = shop.get(t, "/cart")
	assert.Contains(t, body, "Item removed from cart")
	assert.Contains(t, body, "Your cart is empty")

	_, _, _ = shop.postForm(t, "/cart/add", url.Values{"product_id": {"2"}})
	_, _, _ = shop.postForm(t, "/cart/clear", nil)
	_, _, body = shop.get(t, "/cart")
	assert.Contains(t, body, "Cart cleared")
	assert.Contains(t, body, "Your cart is empty")
}

func TestAddToCartRedirects(t *testing.T) {
	shop := newTestShop(t)

	cases := []struct {
		returnTo string
		want     string
	}{
		{"/product/1", "/product/1"},
		{"/products?category=Electronics", "/products?category=Electronics"},
		{"//evil.example.com", "/cart"},
		{"https://evil.example.com/", "/cart"},
		{`/\evil.example.com`, "/cart"},
		{"", "/cart"},
	}
	for _, tc := range cases {
		status, header, _ := shop.postForm(t, "/cart/add", url.Values{"product_id": {"5"}, "return_to": {tc.returnTo}})
		require.Equal(t, http.StatusSeeOther, status, tc.returnTo)
		assert.Equal(t, tc.want, header.Get("Location"), tc.returnTo)
	}

	status, _, _ := shop.postForm(t, "/cart/add", url.Values{"product_id": {"404"}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCheckoutFlow(t *testing.T) {
	shop := newTestShop(t)

	status, header, _ := shop.get(t, "/checkout")
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/cart", header.Get("Location"))

	status, header, _ = shop.get(t, "/checkout/confirmation")
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/", header.Get("Location"))

	_, _, _ = shop.postForm(t, "/cart/add", url.Values{"product_id": {"4"}})
	status, _, body := shop.get(t, "/checkout")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Shipping Information")
	assert.Contains(t, body, "$219.99")

	form := checkoutForm()
	form.Set("fullName", "")
	status, _, body = shop.postForm(t, "/checkout", form)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Please enter your full name")
	assert.Contains(t, body, `value="ada@example.com"`)

	status, header, _ = shop.postForm(t, "/checkout", checkoutForm())
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/checkout/confirmation", header.Get("Location"))

	status, header, _ = shop.get(t, "/checkout")
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/checkout/confirmation", header.Get("Location"))

	_, _, body = shop.get(t, "/checkout/confirmation")
	assert.Contains(t, body, "Processing...")
	assert.Contains(t, body, `http-equiv="refresh"`)

	shop.sched.RunNext(t)
	_, _, body = shop.get(t, "/checkout/confirmation")
	assert.Contains(t, body, "Payment Successful!")

	shop.sched.RunNext(t)
	_, _, body = shop.get(t, "/checkout/confirmation")
	assert.Contains(t, body, "Thank You for Your Order!")
	assert.Contains(t, body, "ORD-")
	assert.Contains(t, body, "$219.99")
	assert.NotContains(t, body, `http-equiv="refresh"`)

	_, _, body = shop.get(t, "/cart")
	assert.Contains(t, body, "Your cart is empty")
}

func TestCartAPI(t *testing.T) {
	shop := newTestShop(t)

	var resp struct {
		Cart struct {
			Items []struct {
				Quantity int `json:"quantity"`
			} `json:"items"`
			Total string `json:"total"`
		} `json:"cart"`
		Count   int `json:"count"`
		Summary struct {
			Tax struct {
				Amount string `json:"amount"`
			} `json:"tax"`
			Total struct {
				Amount string `json:"amount"`
			} `json:"total"`
		} `json:"summary"`
		Notifications []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"notifications"`
	}

	status := shop.sendJSON(t, http.MethodGet, "/api/cart", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Notifications)

	status = shop.sendJSON(t, http.MethodPost, "/api/cart/items", map[string]any{"product_id": "5", "quantity": 3}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "success", resp.Notifications[0].Level)

	status = shop.sendJSON(t, http.MethodPatch, "/api/cart/items/5", map[string]any{"quantity": 21}, &resp)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "Sorry, only 20 items available in stock", resp.Notifications[0].Message)

	status = shop.sendJSON(t, http.MethodPatch, "/api/cart/items/5", map[string]any{"quantity": 1}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "9", resp.Summary.Tax.Amount)
	assert.Equal(t, "98.99", resp.Summary.Total.Amount)

	status = shop.sendJSON(t, http.MethodPost, "/api/cart/items", map[string]any{"product_id": "nope"}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = shop.sendJSON(t, http.MethodPost, "/api/cart/items", "not an object", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = shop.sendJSON(t, http.MethodDelete, "/api/cart/items/5", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.Cart.Items)

	status = shop.sendJSON(t, http.MethodDelete, "/api/cart", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart cleared", resp.Notifications[0].Message)
}

func TestCheckoutAPI(t *testing.T) {
	shop := newTestShop(t)

	form := map[string]string{}
	for k, v := range checkoutForm() {
		form[k] = v[0]
	}

	var resp struct {
		Progress struct {
			Status string `json:"status"`
			Amount string `json:"amount"`
		} `json:"progress"`
		Confirmation *struct {
			OrderNumber string `json:"order_number"`
		} `json:"confirmation"`
		Notifications []struct {
			Message string `json:"message"`
		} `json:"notifications"`
	}

	status := shop.sendJSON(t, http.MethodPost, "/api/checkout", form, &resp)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, services.MsgCartEmpty, resp.Notifications[0].Message)

	require.Equal(t, http.StatusOK, shop.sendJSON(t, http.MethodPost, "/api/cart/items", map[string]any{"product_id": "2"}, nil))

	status = shop.sendJSON(t, http.MethodPost, "/api/checkout", form, &resp)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "processing", resp.Progress.Status)
	assert.Equal(t, "274.99", resp.Progress.Amount)

	status = shop.sendJSON(t, http.MethodPost, "/api/checkout", form, nil)
	assert.Equal(t, http.StatusNotAcceptable, status)

	shop.sched.RunNext(t)
	shop.sched.RunNext(t)

	resp.Confirmation = nil
	status = shop.sendJSON(t, http.MethodGet, "/api/checkout", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", resp.Progress.Status)
	require.NotNil(t, resp.Confirmation)
	assert.Regexp(t, `^ORD-\d{6}$`, resp.Confirmation.OrderNumber)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, services.MsgPaymentSuccess, resp.Notifications[0].Message)
}

func TestAdminPages(t *testing.T) {
	shop := newTestShop(t)

	status, _, body := shop.get(t, "/admin")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Admin Dashboard")
	assert.Contains(t, body, "Mechanical Keyboard")

	status, _, body = shop.postForm(t, "/admin/products", url.Values{"name": {"Desk Mat"}, "price": {"0"}})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, services.MsgRequiredFields)
	assert.Contains(t, body, `value="Desk Mat"`)

	status, header, _ := shop.postForm(t, "/admin/products", url.Values{
		"name":        {"Desk Mat"},
		"description": {"Felt desk mat"},
		"price":       {"24.50"},
		"category":    {"Accessories"},
		"stock":       {"40"},
		"featured":    {"on"},
	})
	require.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/admin", header.Get("Location"))

	_, _, body = shop.get(t, "/admin?edit=9")
	assert.Contains(t, body, services.MsgProductAdded)
	assert.Contains(t, body, "Edit Product")
	assert.Contains(t, body, `value="24.50"`)

	status, _, _ = shop.get(t, "/admin?edit=77")
	assert.Equal(t, http.StatusNotFound, status)

	status, _, _ = shop.postForm(t, "/admin/products/77", url.Values{"name": {"x"}})
	assert.Equal(t, http.StatusNotFound, status)

	status, _, _ = shop.postForm(t, "/admin/products/9/delete", nil)
	require.Equal(t, http.StatusSeeOther, status)
	_, _, body = shop.get(t, "/admin")
	assert.Contains(t, body, services.MsgProductDeleted)
	assert.NotContains(t, body, "Desk Mat")

	// the sandbox never leaks into the storefront
	_, _, body = shop.get(t, "/products")
	assert.NotContains(t, body, "Desk Mat")
}

func TestAdminAPI(t *testing.T) {
	shop := newTestShop(t)

	var list struct {
		Products []struct {
			Id string `json:"id"`
		} `json:"products"`
	}
	require.Equal(t, http.StatusOK, shop.sendJSON(t, http.MethodGet, "/api/admin/products", nil, &list))
	assert.Len(t, list.Products, 8)

	var created struct {
		Product *struct {
			Id    string `json:"id"`
			Image string `json:"image"`
		} `json:"product"`
	}
	status := shop.sendJSON(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Desk Mat", "description": "Felt", "price": "24.50", "category": "Accessories", "stock": 4,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, created.Product)
	assert.Equal(t, "9", created.Product.Id)
	assert.Equal(t, services.DefaultProductImage, created.Product.Image)

	var fetched struct {
		Product *struct {
			Id   string `json:"id"`
			Name string `json:"name"`
		} `json:"product"`
	}
	require.Equal(t, http.StatusOK, shop.sendJSON(t, http.MethodGet, "/api/admin/products/9", nil, &fetched))
	require.NotNil(t, fetched.Product)
	assert.Equal(t, "Desk Mat", fetched.Product.Name)
	assert.Equal(t, http.StatusNotFound, shop.sendJSON(t, http.MethodGet, "/api/admin/products/99", nil, nil))

	status = shop.sendJSON(t, http.MethodPut, "/api/admin/products/9", map[string]any{"name": "Desk Mat"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status = shop.sendJSON(t, http.MethodDelete, "/api/admin/products/1", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	require.Equal(t, http.StatusOK, shop.sendJSON(t, http.MethodGet, "/api/admin/products", nil, &list))
	assert.Len(t, list.Products, 8)

	var product struct {
		Product struct {
			Id string `json:"id"`
		} `json:"product"`
	}
	require.Equal(t, http.StatusOK, shop.sendJSON(t, http.MethodGet, "/api/products/1", nil, &product))
	assert.Equal(t, "1", product.Product.Id)
}

func TestErrorHandleMiddleware(t *testing.T) {
	ha := handlers.NewHandler(handlers.HandlerParams{Logger: zap.NewNop()})
	h := ha.ErrorHandleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
