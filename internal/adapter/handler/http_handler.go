package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/cart-store/internal/adapter/notify"
	"github.com/rl1809/cart-store/internal/core/domain"
	"github.com/rl1809/cart-store/internal/core/service"
)

type HTTPHandler struct {
	cartService *service.CartService
	notices     *notify.ChannelNotifier
}

type SetAmountHTTPRequest struct {
	Amount *int `json:"amount"`
}

type CartHTTPResponse struct {
	Items    domain.Cart `json:"items"`
	Count    int         `json:"count"`
	Subtotal string      `json:"subtotal"`
}

type NotificationsHTTPResponse struct {
	Notifications []string `json:"notifications"`
	Dropped       int64    `json:"dropped"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

// NewHTTPHandler serves the cart. notices may be nil, in which case the
// notifications endpoint always returns an empty list.
func NewHTTPHandler(cartService *service.CartService, notices *notify.ChannelNotifier) *HTTPHandler {
	return &HTTPHandler{cartService: cartService, notices: notices}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCartResponse(h.cartService.Cart()))
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), productID)
	h.respond(w, cart, err)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), productID)
	h.respond(w, cart, err)
}

func (h *HTTPHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req SetAmountHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body"})
		return
	}

	cart, err := h.cartService.SetAmount(r.Context(), productID, *req.Amount)
	h.respond(w, cart, err)
}

// Notifications drains pending messages. Dropped counts messages lost to a
// full buffer since startup.
func (h *HTTPHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	resp := NotificationsHTTPResponse{Notifications: []string{}}
	if h.notices != nil {
		resp.Notifications = append(resp.Notifications, h.notices.Drain()...)
		resp.Dropped = h.notices.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) respond(w http.ResponseWriter, cart domain.Cart, err error) {
	if err != nil {
		writeJSON(w, httpStatus(err), ErrorHTTPResponse{Error: errorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func newCartResponse(c domain.Cart) CartHTTPResponse {
	if c == nil {
		c = domain.Cart{}
	}
	return CartHTTPResponse{
		Items:    c,
		Count:    c.Count(),
		Subtotal: c.Subtotal().StringFixed(2),
	}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid product id"})
		return 0, false
	}
	return id, true
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrItemNotInCart):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStockUnavailable), errors.Is(err, service.ErrStockExceeded):
		return http.StatusConflict
	case errors.Is(err, service.ErrProductLookupFailed), errors.Is(err, service.ErrStockLookupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var cerr *service.CartError
	if errors.As(err, &cerr) {
		return cerr.Message()
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
