// Package api holds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// TODO: generate internal/oas from this document and serve handler.Handler
// through oas.NewServer once the handlers are ported to the generated types.
//go:generate go run github.com/ogen-go/ogen/cmd/ogen --target ../internal/oas --package oas --clean openapi.yaml

// Spec is the OpenAPI 3 document served at /api/openapi.yaml.
//
//go:embed openapi.yaml
var Spec []byte
