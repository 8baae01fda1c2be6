// Package migrations embeds the goose migrations describing the hosted
// relational schema the gateways query.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
