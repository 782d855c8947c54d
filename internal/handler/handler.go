// Package handler exposes the storefront and back-office HTTP API.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/mixandtaste/api"
	"github.com/xenking/mixandtaste/internal/domain/auth"
	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// CookieName names the cookie carrying the cart session id.
	CookieName string
	// CookieTTL is the lifetime of the cart session cookie.
	CookieTTL time.Duration
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Deps are the domain services the handlers delegate to.
type Deps struct {
	Menu     *menu.Service
	Catalog  *menu.Admin
	Policies customization.PolicySource
	// Options is nil when policies come from the built-in table; the
	// option admin routes then answer 501.
	Options *customization.Manager
	Carts   *cart.Service
	Orders  *order.Service
	Auth    *auth.Authenticator
}

// Handler serves the HTTP API.
type Handler struct {
	deps         Deps
	imageBaseURL string
	cookieName   string
	cookieTTL    time.Duration
	secureCookie bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, deps Deps) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = 30 * 24 * time.Hour
	}
	return &Handler{
		deps:         deps,
		imageBaseURL: cfg.ImageBaseURL,
		cookieName:   cfg.CookieName,
		cookieTTL:    cfg.CookieTTL,
		secureCookie: cfg.SecureCookie,
	}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		})

		r.Get("/openapi.yaml", h.GetOpenAPI)
		r.Get("/menu", h.GetMenu)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{categoryID}/products", h.ListCategoryProducts)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productID}", h.GetProduct)
		r.Post("/products/{productID}/preview", h.PreviewSelection)
		r.Get("/offers", h.ListOffers)

		r.Route("/cart", func(r chi.Router) {
			r.Use(h.cartSession)
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{lineID}", h.UpdateCartItem)
			r.Delete("/items/{lineID}", h.RemoveCartItem)
			r.Post("/checkout", h.Checkout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authenticate)
			r.Group(func(r chi.Router) {
				r.Use(requireScope(auth.ScopeMenu))

				r.Get("/categories", h.AdminListCategories)
				r.Post("/categories", h.AdminCreateCategory)
				r.Put("/categories/{categoryID}", h.AdminUpdateCategory)
				r.Delete("/categories/{categoryID}", h.AdminDeleteCategory)

				r.Get("/categories/{categoryID}/options", h.AdminListOptions)
				r.Put("/categories/{categoryID}/options/{optionID}", h.AdminSaveOption)
				r.Delete("/categories/{categoryID}/options/{optionID}", h.AdminDeleteOption)
				r.Get("/categories/{categoryID}/required-types", h.AdminGetRequiredTypes)
				r.Put("/categories/{categoryID}/required-types", h.AdminSetRequiredTypes)

				r.Get("/products", h.AdminListProducts)
				r.Post("/products", h.AdminCreateProduct)
				r.Get("/products/{productID}", h.AdminGetProduct)
				r.Put("/products/{productID}", h.AdminUpdateProduct)
				r.Delete("/products/{productID}", h.AdminDeleteProduct)

				r.Get("/offers", h.AdminListOffers)
				r.Post("/offers", h.AdminCreateOffer)
				r.Put("/offers/{offerID}", h.AdminUpdateOffer)
				r.Delete("/offers/{offerID}", h.AdminDeleteOffer)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireScope(auth.ScopeOrders))

				r.Get("/orders", h.AdminListOrders)
				r.Get("/orders/{orderID}", h.AdminGetOrder)
				r.Patch("/orders/{orderID}/status", h.AdminUpdateOrderStatus)
			})
		})
	})
}

// GetOpenAPI serves the API description.
func (h *Handler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.Spec)
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.imageBaseURL + path
}
