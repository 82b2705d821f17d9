package sqlstore

import (
	"database/sql"
	"strconv"
	"strings"
)

// dialect captures what differs between the two engines.
type dialect struct {
	name       string
	numbered   bool           // "$n" placeholders instead of "?"
	lockSuffix string         // appended to SELECTs that lock a row
	like       string         // case-insensitive pattern operator
	serialize  bool           // guard transactions with the store mutex
	readOnly   *sql.TxOptions // options for View transactions
	schema     string         // embedded schema file
}

var sqliteDialect = dialect{
	name:      "sqlite3",
	like:      "LIKE",
	serialize: true,
	schema:    "schema/sqlite.sql",
}

var postgresDialect = dialect{
	name:       "pgx",
	numbered:   true,
	lockSuffix: " FOR UPDATE",
	like:       "ILIKE",
	readOnly:   &sql.TxOptions{ReadOnly: true},
	schema:     "schema/postgres.sql",
}

// rebind rewrites "?" placeholders for engines that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lock appends the row-lock clause to a single-table SELECT.
func (d dialect) lock(query string) string {
	return query + d.lockSuffix
}

// match returns "(col1 LIKE ? ESCAPE '\' OR col2 ...)" and the matching
// arguments for a contains-search over cols.
func (d dialect) match(term string, cols ...string) (string, []any) {
	pattern := "%" + escapeLike(term) + "%"
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = c + " " + d.like + ` ? ESCAPE '\'`
		args[i] = pattern
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
