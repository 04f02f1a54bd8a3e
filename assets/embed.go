// Package assets holds files compiled into the server binary.
package assets

import _ "embed"

//go:embed schema.sql
var schemaSQL string

// Schema returns the idempotent DDL for the board tables.
func Schema() string {
	return schemaSQL
}
