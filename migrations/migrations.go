// Package migrations embeds the database schema migrations so the binary
// can apply them on startup without shipping loose SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
