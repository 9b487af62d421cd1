// Package openapi embeds the HTTP API description.
package openapi

import _ "embed"

// Spec is the OpenAPI 3 document for the public API.
//
//go:embed openapi.yaml
var Spec []byte
