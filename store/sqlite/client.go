// SPDX-License-Identifier: MIT

// Package sqlite is the durable event store backend. It keeps the full event
// alongside a tag lookup table and answers filter queries with generated SQL,
// so the matching semantics stay identical to the in-memory backend.
package sqlite

import (
	"context"
	_ "embed"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/solstice-net/solstice/store"
)

type (
	Client struct {
		*sqlx.DB
	}
)

//go:embed ddl.sql
var ddl string

// MustOpen connects to the target database (":memory:" for tests) and applies
// the schema.
func MustOpen(target string) *Client {
	client := &Client{
		DB: sqlx.MustConnect("sqlite3", target),
	}
	// SQLite allows one writer at a time, and a ":memory:" target exists per
	// connection, so the pool is capped at a single connection.
	client.SetMaxOpenConns(1)
	client.Mapper = reflectx.NewMapperFunc("solstice", func(in string) (out string) {
		n := strings.ToLower(in)
		switch n {
		case "createdat":
			out = "created_at"
		case "deletedat":
			out = "deleted_at"
		default:
			out = n
		}

		return out
	})

	for _, statement := range strings.Split(ddl, "--------") {
		client.MustExec(statement)
	}

	return client
}

func (c *Client) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := c.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin sqlite transaction")
	}

	return &sqliteTx{tx: tx}, nil
}
