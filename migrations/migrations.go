// Package migrations embeds the PostgreSQL schema so binaries can migrate
// without a checkout of this directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
