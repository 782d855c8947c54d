package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/order"
)

// DefaultCookieName is the cookie that carries the cart session id.
const DefaultCookieName = "mixandtaste-cart"

type sessionKey struct{}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// cartSession resolves the cart session from its cookie, starting a new
// session when the cookie is missing or malformed. The cookie is refreshed
// on every cart request.
func (h *Handler) cartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(h.cookieName); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(h.cookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lineID returns the decoded line id path parameter. chi routes on RawPath
// when the request carried one, leaving the parameter escaped; otherwise the
// parameter is already decoded.
func lineID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "lineID")
	if r.URL.RawPath == "" {
		return id, nil
	}
	id, err := url.PathUnescape(id)
	if err != nil {
		return "", errors.Wrap(errBadRequest, "malformed line id")
	}
	return id, nil
}

// GetCart returns the session's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Carts.Get(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cart(c))
}

// AddCartItem adds a product with its chosen options to the cart.
// Customizable products are rejected with 422 until every required choice
// is made.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.ProductID == "" {
		fail(w, r, errors.Wrap(errBadRequest, "product_id is required"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, _, err := h.deps.Carts.AddItem(r.Context(), sessionFrom(r.Context()), cart.AddItemRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Options:   req.Options,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cart(c))
}

// UpdateCartItem sets the quantity of a line; zero or less removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := lineID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req UpdateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.deps.Carts.UpdateQuantity(r.Context(), sessionFrom(r.Context()), id, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cart(c))
}

// RemoveCartItem deletes a line. Removing an absent line succeeds.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := lineID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.deps.Carts.RemoveItem(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cart(c))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Carts.Clear(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cart(c))
}

// Checkout places an order for the cart contents. The cart is emptied only
// when the order was accepted.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.deps.Carts.Checkout(r.Context(), sessionFrom(r.Context()), order.Customer{
		Name:    req.Customer.Name,
		Phone:   req.Customer.Phone,
		Address: req.Customer.Address,
		Notes:   req.Customer.Notes,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderDTO(o))
}
