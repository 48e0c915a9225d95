// Package migrations embeds the SQL schema so the migrate binary ships it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
