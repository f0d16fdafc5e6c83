// Package migrations embeds the SQL schema for the products and stocks tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
