// Package migrations holds the goose SQL migrations, embedded so the server
// binary can migrate without the source tree.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
