// Package openapi embeds the oprdesk HTTP API description.
package openapi

import _ "embed"

// DeskSpec is the OpenAPI document for the report desk API.
//
//go:embed oprdesk.yaml
var DeskSpec []byte

// Spec returns a defensive copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), DeskSpec...)
}
