// Package migrations embeds the records store DDL.
package migrations

import "embed"

// FS holds the ordered SQL files applied by the schema manager.
//
//go:embed *.sql
var FS embed.FS
