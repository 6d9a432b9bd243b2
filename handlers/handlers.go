package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/entities"
	"github.com/ThanawawEikQ/dark-vista-shop/models"
	"github.com/ThanawawEikQ/dark-vista-shop/services"
	"github.com/ThanawawEikQ/dark-vista-shop/views"

	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const SessionCookie = "cartSessionId"

type Handler struct {
	ps  services.ProductService
	cs  services.CartService
	chs *services.CheckoutService
	as  services.AdminService
	ss  services.SessionService

	renderer     *views.Renderer
	log          *zap.Logger
	cur          currency.Unit
	now          func() time.Time
	sessionTTL   time.Duration
	secureCookie bool
}

type HandlerParams struct {
	PrdService      services.ProductService
	CrtService      services.CartService
	CheckoutService *services.CheckoutService
	AdmService      services.AdminService
	SessService     services.SessionService

	Renderer     *views.Renderer
	Logger       *zap.Logger
	Currency     currency.Unit
	Now          func() time.Time
	SessionTTL   time.Duration
	SecureCookie bool
}

func NewHandler(params HandlerParams) *Handler {
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &Handler{
		ps:           params.PrdService,
		cs:           params.CrtService,
		chs:          params.CheckoutService,
		as:           params.AdmService,
		ss:           params.SessService,
		renderer:     params.Renderer,
		log:          params.Logger,
		cur:          params.Currency,
		now:          params.Now,
		sessionTTL:   params.SessionTTL,
		secureCookie: params.SecureCookie,
	}
}

// currentSession returns the id of the visitor's live session, or "" when
// there is none. It never creates one.
func (h *Handler) currentSession(r *http.Request) (sessionId string, err error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		return "", models.ErrBadRequest
	}
	_, err = h.ss.GetSession(r.Context(), c.Value)
	if errors.Is(err, models.ErrNotFoundError) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// ensureSession returns the visitor's session id, starting a session and
// setting the cookie when needed.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) (sessionId string, err error) {
	var cookieValue string
	if c, err := r.Cookie(SessionCookie); err == nil {
		cookieValue = c.Value
	}
	s, created, err := h.ss.ResolveSession(r.Context(), cookieValue)
	if err != nil {
		return
	}
	if created {
		h.log.Debug("session started", zap.String("session_id", s.Id))
	}
	// refresh the cookie so it tracks the sliding session TTL
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.Id,
		Path:     "/",
		Expires:  h.now().Add(h.sessionTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return s.Id, nil
}

func (h *Handler) cart(r *http.Request, sessionId string) (entities.CartState, error) {
	if sessionId == "" {
		return entities.EmptyCart(), nil
	}
	return h.cs.GetCart(r.Context(), sessionId)
}

func (h *Handler) drain(r *http.Request, sessionId string) ([]entities.Notification, error) {
	if sessionId == "" {
		return []entities.Notification{}, nil
	}
	return h.ss.DrainNotifications(r.Context(), sessionId)
}

// layout builds the page shell without touching pending notifications.
// Handlers that end up rendering call flash to pick them up.
func (h *Handler) layout(r *http.Request, sessionId, title, search string) (views.Layout, error) {
	state, err := h.cart(r, sessionId)
	if err != nil {
		return views.Layout{}, err
	}
	return views.NewLayout(title, state, h.ps.GetCategories(), search, nil, h.cur, h.now()), nil
}

func (h *Handler) flash(r *http.Request, sessionId string, l *views.Layout) error {
	notes, err := h.drain(r, sessionId)
	if err != nil {
		return err
	}
	l.Notifications = notes
	return nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.Render(w, page, data); err != nil {
		h.log.Error("render failed", zap.String("page", page), zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// renderError shows the error page for err. Unknown errors are logged and
// reported as 500.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	l := views.NewLayout(http.StatusText(status), entities.EmptyCart(), h.ps.GetCategories(), "", nil, h.cur, h.now())
	h.render(w, r, status, views.PageError, views.ErrorPage{
		Layout:  l,
		Status:  status,
		Message: errorMessage(status),
	})
}

func errorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The page you are looking for doesn't exist."
	case http.StatusBadRequest:
		return "The request could not be understood."
	case http.StatusNotAcceptable:
		return "That action is not allowed right now."
	}
	return "Something went wrong. Please try again later."
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		WriteErrorResponse(w, models.ErrNotFoundError)
		return
	}
	h.renderError(w, r, models.ErrNotFoundError)
}

// safeRedirect returns target when it is a local path, else fallback.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return target
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// middleware

func (h *Handler) ErrorHandleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error("panic occurred",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.ByteString("stacktrace", debug.Stack()))
				http.Error(w, "something went wrong, contact with service administration", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (h *Handler) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrServerError):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFoundError):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotAllowed):
		return http.StatusNotAcceptable
	}
	return http.StatusInternalServerError
}

func WriteErrorResponse(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = models.ErrServerError.Error()
	}
	http.Error(w, msg, status)
}
