package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/mixandtaste/internal/domain/customization"
)

// GetMenu returns active categories, their available products, featured
// products and the offers running now.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Menu.Menu(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := Menu{
		Categories: make([]Category, len(m.Categories)),
		Products:   h.products(m.Products),
		Featured:   h.products(m.Featured()),
		Offers:     h.offers(m.Offers),
	}
	for i, c := range m.Categories {
		out.Categories[i] = h.category(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListCategories returns the active categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.deps.Menu.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = h.category(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListCategoryProducts returns the available products of one category.
func (h *Handler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.deps.Menu.Products(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.products(products))
}

// ListProducts returns available products, optionally filtered by the
// category and q (name or description search) query parameters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.deps.Menu.Search(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.products(products))
}

// GetProduct returns a product together with its customization policy.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.deps.Menu.Product(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := ProductDetail{Product: h.product(*p)}

	pol, err := h.deps.Policies.Policy(ctx, p.CategoryID)
	switch {
	case errors.Is(err, customization.ErrNoPolicy):
	case err != nil:
		fail(w, r, errors.Wrap(err, "get policy"))
		return
	default:
		out.Customization = policy(pol)
	}
	writeJSON(w, http.StatusOK, out)
}

// PreviewSelection evaluates the options chosen so far and prices them, so
// the client knows whether add-to-cart can be enabled.
func (h *Handler) PreviewSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.deps.Carts.Preview(r.Context(), chi.URLParam(r, "productID"), req.Options, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview(p))
}

// ListOffers returns the offers running now.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.deps.Menu.Offers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.offers(offers))
}
