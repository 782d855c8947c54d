package handler

import (
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ogen-go/ogen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mixandtaste/api"
)

// documented lists "METHOD /path" for every operation in the OpenAPI document,
// with paths as chi patterns under the server prefix.
func documented(t *testing.T) map[string]string {
	t.Helper()
	spec, err := ogen.Parse(api.Spec)
	require.NoError(t, err)
	require.NotEmpty(t, spec.Servers)
	prefix := spec.Servers[0].URL

	ops := make(map[string]string)
	for path, item := range spec.Paths {
		require.NotNil(t, item, path)
		for method, op := range map[string]*ogen.Operation{
			http.MethodGet:    item.Get,
			http.MethodPost:   item.Post,
			http.MethodPut:    item.Put,
			http.MethodPatch:  item.Patch,
			http.MethodDelete: item.Delete,
		} {
			if op == nil {
				continue
			}
			require.NotEmpty(t, op.OperationID, "%s %s", method, path)
			ops[method+" "+prefix+path] = op.OperationID
		}
	}
	return ops
}

func routed(t *testing.T, r chi.Routes) []string {
	t.Helper()
	var out []string
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		out = append(out, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestOpenAPI_MatchesRoutes(t *testing.T) {
	s := newTestServer(t)
	ops := documented(t)
	routes := routed(t, s.router)

	for _, route := range routes {
		assert.Contains(t, ops, route, "route is not documented")
	}
	for op, id := range ops {
		assert.Contains(t, routes, op, "operation %s has no route", id)
	}

	ids := make(map[string]string, len(ops))
	for op, id := range ops {
		prev, dup := ids[id]
		assert.False(t, dup, "operationId %s used by %s and %s", id, prev, op)
		ids[id] = op
	}
}

func TestGetOpenAPI(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/openapi.yaml", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Equal(t, api.Spec, w.Body.Bytes())
}
