// Package sqlitedb implements an ABSFILEQUERY backend backed by a
// read-only SQLite database, in the idiom of the teacher's rpm/sqlite
// package: database/sql plus a blank-imported modernc.org/sqlite driver.
//
// The lookup string is literal SQL text, as Exim's own sqlite lookup
// treats it: the caller is responsible for building safe SQL (via Quote,
// which doubles embedded single quotes) before the text reaches Find, and
// Find wraps that text as a subquery built with goqu. Result rows are flattened the way Exim's SQL lookups are:
// columns joined with ":", rows joined with "\n".
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/sqlite3"
	_ "modernc.org/sqlite"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/backend"
)

type conn struct {
	db *sql.DB
}

// Descriptor returns the registration record for this backend.
func Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:  "sqlitedb",
		Kind:  backend.ABSFILEQUERY,
		Open:  open,
		Find:  find,
		Close: closeConn,
		Quote: quote,
	}
}

func open(ctx context.Context, filename string) (any, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: filename,
		RawQuery: url.Values{
			"_pragma": {"query_only(1)"},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &conn{db: db}, nil
}

func closeConn(c any) {
	_ = c.(*conn).db.Close()
}

// quote escapes raw for inclusion as a single-quoted SQLite string
// literal: doubling embedded quotes, the same rule Exim's own sqlite
// lookup applies before substituting values into a query template.
func quote(raw string) string {
	return "'" + strings.ReplaceAll(raw, "'", "''") + "'"
}

func find(ctx context.Context, c any, _, key, _ string) (backend.FindResult, error) {
	cn := c.(*conn)

	// key is the caller's literal SQL text; wrap it as a subquery so a
	// single query-building path (goqu's sqlite3 dialect) governs every
	// statement actually sent to the driver, regardless of what the
	// caller wrote.
	wrapped, _, err := goqu.Dialect("sqlite3").From(goqu.L("(" + key + ")").As("lookup_query")).ToSQL()
	if err != nil {
		return backend.FindResult{}, &lookupcore.Error{Kind: lookupcore.ErrType, Op: "sqlitedb.Find", Message: "malformed query", Inner: err}
	}

	rows, err := cn.db.QueryContext(ctx, wrapped)
	if err != nil {
		return backend.FindResult{}, &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "sqlitedb.Find", Message: "query failed", Inner: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return backend.FindResult{}, err
	}

	var out strings.Builder
	found := false
	for rows.Next() {
		if found {
			out.WriteByte('\n')
		}
		found = true

		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return backend.FindResult{}, err
		}
		for i, v := range vals {
			if i > 0 {
				out.WriteByte(':')
			}
			out.WriteString(stringify(v))
		}
	}
	if err := rows.Err(); err != nil {
		return backend.FindResult{}, err
	}
	if !found {
		return backend.FindResult{Status: backend.FAIL}, nil
	}
	return backend.FindResult{Status: backend.OK, Data: out.String(), TTL: 60}, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
