// Package db is the SQLite cache of cleaned activities and pipeline runs.
package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New creates a Queries over db
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries runs the cache's SQL statements
type Queries struct {
	db DBTX
}

// WithTx returns a Queries that runs inside tx
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}
