package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mixandtaste/internal/domain/auth"
	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
	"github.com/xenking/mixandtaste/internal/domain/pricing"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// Error is the JSON body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already sent; an encode error means the client went away.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Error{Code: status, Message: msg})
}

// decodeJSON reads a single JSON document from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Wrap(errBadRequest, "empty body")
		}
		return errors.Wrapf(errBadRequest, "decode body: %s", err)
	}
	if dec.More() {
		return errors.Wrap(errBadRequest, "trailing data after body")
	}
	return nil
}

// statusOf maps a domain error to its HTTP status and client message.
func statusOf(err error) (int, string) {
	var (
		validationErr   *menu.ValidationError
		unknownOptErr   *customization.UnknownOptionError
		policyErr       *customization.PolicyError
		incompleteErr   *cart.IncompleteSelectionError
		quantityErr     *order.InvalidQuantityError
		priceErr        *order.InvalidPriceError
		missingFieldErr *order.MissingFieldError
		statusErr       *order.InvalidStatusError
		transitionErr   *order.InvalidTransitionError
		amountErr       *pricing.AmountError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, strings.TrimSuffix(err.Error(), ": "+errBadRequest.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, menu.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, customization.ErrOptionNotFound):
		return http.StatusNotFound, "option not found"
	case errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound, "cart line not found"
	case errors.Is(err, menu.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, cart.ErrEmpty), errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, cart.ErrProductUnavailable):
		return http.StatusUnprocessableEntity, "product is not available"
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, cart.ErrInvalidQuantity.Error()
	case errors.As(err, &incompleteErr):
		return http.StatusUnprocessableEntity, fmt.Sprintf("selection incomplete: missing %s", joinTypes(incompleteErr.Missing))
	case errors.As(err, &unknownOptErr):
		return http.StatusUnprocessableEntity, unknownOptErr.Error()
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, validationErr.Error()
	case errors.As(err, &policyErr):
		return http.StatusUnprocessableEntity, policyErr.Error()
	case errors.As(err, &quantityErr):
		return http.StatusUnprocessableEntity, quantityErr.Error()
	case errors.As(err, &priceErr):
		return http.StatusUnprocessableEntity, priceErr.Error()
	case errors.As(err, &missingFieldErr):
		return http.StatusUnprocessableEntity, missingFieldErr.Error()
	case errors.As(err, &amountErr):
		return http.StatusUnprocessableEntity, amountErr.Error()
	case errors.As(err, &statusErr):
		return http.StatusBadRequest, statusErr.Error()
	case errors.As(err, &transitionErr):
		return http.StatusConflict, transitionErr.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func joinTypes(types []customization.OptionType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// fail writes the response for err. Unexpected errors are logged.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeError(w, status, msg)
}
