// Package repositories is the remote data gateway: one subpackage per
// entity, each with a Repository contract and a PostgreSQL implementation
// over dbx.DBTX. Every query is scoped by owner id.
//
// Single-record lookups return (nil, nil) when the row does not exist.
// Deletes report whether a row was removed. All other failures are logged
// here and returned wrapped with the operation name.
package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Fail logs err for op and returns it wrapped.
func Fail(ctx context.Context, log logging.Logger, op string, err error) error {
	log.Error(ctx, "gateway call failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// Placeholders returns n positional parameters starting at $from,
// e.g. Placeholders(3, 2) == "$3, $4".
func Placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}

// Args converts ids to query arguments.
func Args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains builds an ILIKE pattern matching s anywhere, with wildcards in s
// taken literally.
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
