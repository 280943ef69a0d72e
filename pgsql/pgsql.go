// Package pgsql implements a QUERY backend backed by PostgreSQL, in the
// idiom of the teacher's datastore/postgres.Connect: a pgxpool.Pool
// configured once per handle and reused across Find calls.
//
// QUERY backends take no filename per the dispatch engine's contract, but
// Open still receives one argument: here it carries the connection
// string, since a pool has to come from somewhere and the engine already
// plumbs a string through to every Open call regardless of kind. The
// lookup string itself is literal SQL text, as Exim's own pgsql lookup
// treats it.
package pgsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	lookupcore "github.com/TomNewChao/exim-lookup"
	"github.com/TomNewChao/exim-lookup/backend"
)

type conn struct {
	pool *pgxpool.Pool
}

// Descriptor returns the registration record for this backend.
func Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:  "pgsql",
		Kind:  backend.QUERY,
		Open:  open,
		Find:  find,
		Close: closeConn,
		Quote: quote,
	}
}

func open(ctx context.Context, connString string) (any, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	const appnameKey = "application_name"
	if _, ok := cfg.ConnConfig.RuntimeParams[appnameKey]; !ok {
		cfg.ConnConfig.RuntimeParams[appnameKey] = "exim-lookup"
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &conn{pool: pool}, nil
}

func closeConn(c any) {
	c.(*conn).pool.Close()
}

// quote escapes raw for inclusion as a single-quoted Postgres string
// literal.
func quote(raw string) string {
	return "'" + strings.ReplaceAll(raw, "'", "''") + "'"
}

func find(ctx context.Context, c any, _, key, _ string) (backend.FindResult, error) {
	cn := c.(*conn)

	rows, err := cn.pool.Query(ctx, key)
	if err != nil {
		return backend.FindResult{}, &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "pgsql.Find", Message: "query failed", Inner: err}
	}
	defer rows.Close()

	var out strings.Builder
	found := false
	for rows.Next() {
		if found {
			out.WriteByte('\n')
		}
		found = true

		vals, err := rows.Values()
		if err != nil {
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
		return backend.FindResult{}, &lookupcore.Error{Kind: lookupcore.ErrBackendFind, Op: "pgsql.Find", Message: "row iteration failed", Inner: err}
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
