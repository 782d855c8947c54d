package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mixandtaste/internal/domain/auth"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/order"
)

type keyInfoKey struct{}

// apiKey extracts the key from the api_key or X-API-Key header, or from a
// bearer Authorization header.
func apiKey(r *http.Request) string {
	if k := r.Header.Get("api_key"); k != "" {
		return k
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// authenticate admits requests carrying a valid API key.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := h.deps.Auth.Authenticate(r.Context(), apiKey(r))
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), keyInfoKey{}, info)
		ctx = zctx.With(ctx, zap.String("api_key", info.Name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireScope rejects keys that were not granted scope.
func requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, _ := r.Context().Value(keyInfoKey{}).(*auth.APIKeyInfo)
			if info == nil || !info.HasScope(scope) {
				fail(w, r, auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Categories ---

// AdminListCategories returns every category, inactive ones included.
func (h *Handler) AdminListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.deps.Catalog.Categories(r.Context())
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

// AdminCreateCategory stores a new category.
func (h *Handler) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req Category
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	c := req.domain()
	if err := h.deps.Catalog.CreateCategory(r.Context(), c); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.category(*c))
}

// AdminUpdateCategory replaces the category named in the path.
func (h *Handler) AdminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req Category
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.ID = chi.URLParam(r, "categoryID")
	c := req.domain()
	if err := h.deps.Catalog.UpdateCategory(r.Context(), c); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.category(*c))
}

// AdminDeleteCategory removes a category with its products and options.
func (h *Handler) AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Catalog.DeleteCategory(r.Context(), chi.URLParam(r, "categoryID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Customization options ---

var errStaticPolicies = errors.New("customization options are not editable")

func (h *Handler) options(w http.ResponseWriter) (*customization.Manager, bool) {
	if h.deps.Options == nil {
		writeError(w, http.StatusNotImplemented, errStaticPolicies.Error())
		return nil, false
	}
	return h.deps.Options, true
}

// AdminListOptions returns every option of a category.
func (h *Handler) AdminListOptions(w http.ResponseWriter, r *http.Request) {
	m, ok := h.options(w)
	if !ok {
		return
	}
	recs, err := m.Options(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]OptionRecord, len(recs))
	for i, rec := range recs {
		out[i] = optionRecord(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

// AdminSaveOption inserts or replaces an option of a category.
func (h *Handler) AdminSaveOption(w http.ResponseWriter, r *http.Request) {
	m, ok := h.options(w)
	if !ok {
		return
	}
	var req OptionRecord
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	rec := &customization.OptionRecord{
		CategoryID: chi.URLParam(r, "categoryID"),
		Option: customization.Option{
			ID:        chi.URLParam(r, "optionID"),
			Type:      req.Type,
			Name:      req.Name,
			Surcharge: req.Surcharge,
		},
		SortOrder: req.SortOrder,
		Active:    req.Active,
	}
	if err := m.SaveOption(r.Context(), rec); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, optionRecord(*rec))
}

// AdminDeleteOption removes an option unless a required type would be left
// without choices.
func (h *Handler) AdminDeleteOption(w http.ResponseWriter, r *http.Request) {
	m, ok := h.options(w)
	if !ok {
		return
	}
	if err := m.DeleteOption(r.Context(), chi.URLParam(r, "categoryID"), chi.URLParam(r, "optionID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminGetRequiredTypes returns the option types a category requires.
func (h *Handler) AdminGetRequiredTypes(w http.ResponseWriter, r *http.Request) {
	m, ok := h.options(w)
	if !ok {
		return
	}
	types, err := m.RequiredTypes(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if types == nil {
		types = []customization.OptionType{}
	}
	writeJSON(w, http.StatusOK, RequiredTypes{Types: types})
}

// AdminSetRequiredTypes replaces the option types a category requires.
func (h *Handler) AdminSetRequiredTypes(w http.ResponseWriter, r *http.Request) {
	m, ok := h.options(w)
	if !ok {
		return
	}
	var req RequiredTypes
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := m.SetRequiredTypes(r.Context(), chi.URLParam(r, "categoryID"), req.Types); err != nil {
		fail(w, r, err)
		return
	}
	h.AdminGetRequiredTypes(w, r)
}

// --- Products ---

// AdminListProducts returns menu items, unavailable ones included.
func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.deps.Catalog.Products(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.products(products))
}

// AdminGetProduct returns a single menu item.
func (h *Handler) AdminGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Catalog.Product(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.product(*p))
}

// AdminCreateProduct stores a new menu item.
func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req Product
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p := req.domain()
	if err := h.deps.Catalog.CreateProduct(r.Context(), p); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.product(*p))
}

// AdminUpdateProduct replaces the menu item named in the path.
func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req Product
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.ID = chi.URLParam(r, "productID")
	p := req.domain()
	if err := h.deps.Catalog.UpdateProduct(r.Context(), p); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.product(*p))
}

// AdminDeleteProduct removes a menu item.
func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "productID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Offers ---

// AdminListOffers returns every offer.
func (h *Handler) AdminListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.deps.Catalog.Offers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.offers(offers))
}

// AdminCreateOffer stores a new offer.
func (h *Handler) AdminCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req Offer
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	o := req.domain()
	if err := h.deps.Catalog.CreateOffer(r.Context(), o); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.offer(*o))
}

// AdminUpdateOffer replaces the offer named in the path.
func (h *Handler) AdminUpdateOffer(w http.ResponseWriter, r *http.Request) {
	var req Offer
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.ID = chi.URLParam(r, "offerID")
	o := req.domain()
	if err := h.deps.Catalog.UpdateOffer(r.Context(), o); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.offer(*o))
}

// AdminDeleteOffer removes an offer.
func (h *Handler) AdminDeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Catalog.DeleteOffer(r.Context(), chi.URLParam(r, "offerID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Orders ---

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.Wrapf(errBadRequest, "%s must be a non-negative integer", name)
	}
	return n, nil
}

// AdminListOrders lists orders newest first, filtered by the status, limit
// and offset query parameters.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		fail(w, r, err)
		return
	}
	orders, err := h.deps.Orders.List(r.Context(), order.ListFilter{
		Status: order.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]Order, len(orders))
	for i := range orders {
		out[i] = orderDTO(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// AdminGetOrder returns a single order.
func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.deps.Orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderDTO(o))
}

// AdminUpdateOrderStatus moves an order along its lifecycle.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.deps.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderDTO(o))
}
