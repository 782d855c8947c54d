package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Recovery converts a handler panic into a 500 with the JSON error body
// and closes the connection. http.ErrAbortHandler keeps its net/http
// meaning and is re-raised. Place it after InjectLogger so the panic is
// logged with the request logger.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverTo(w, r)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverTo(w http.ResponseWriter, r *http.Request) {
	v := recover()
	if v == nil {
		return
	}
	if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		panic(v)
	}
	zctx.From(r.Context()).Error("Handler panicked",
		zap.Any("panic", v),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Stack("stack"),
	)
	w.Header().Set("Connection", "close")
	writeError(w, http.StatusInternalServerError, "internal error")
}
