// Package sqlxrepos implements the core repositories on PostgreSQL with sqlx and hand written SQL.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

type ctxKey int

const txKey ctxKey = 0

// execer is what *sqlx.DB and *sqlx.Tx have in common.
type execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// getExec returns the transaction of the ongoing unit of work, if any, or the pool.
func getExec(ctx context.Context, db *sqlx.DB) execer {
	if tx, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

type unitOfWork struct {
	db *sqlx.DB
}

var _ core.UnitOfWork = (*unitOfWork)(nil) // interface compliance check

func NewUnitOfWork(db *sqlx.DB) *unitOfWork {
	return &unitOfWork{db: db}
}

// Do runs fn in a transaction. Nested calls join the outer transaction.
func (uow *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := uow.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// trapNoRowsErr maps "no rows" to notFound and wraps anything else with msg.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res touched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// updateBuilder assembles a parameterized "UPDATE ... SET" statement from the columns actually set.
// Column names never come from user input.
type updateBuilder struct {
	table string
	cols  []string
	args  []interface{}
}

func newUpdateBuilder(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (b *updateBuilder) set(col string, val interface{}) *updateBuilder {
	b.cols = append(b.cols, col)
	b.args = append(b.args, val)
	return b
}

func (b *updateBuilder) empty() bool { return len(b.cols) == 0 }

// build returns the statement with '?' bind vars, to be rebound for the driver,
// updating the row with the given id and returning the listed columns.
func (b *updateBuilder) build(id int64, returning string) (string, []interface{}) {
	sets := make([]string, 0, len(b.cols))
	for _, col := range b.cols {
		sets = append(sets, col+" = ?")
	}
	q := "UPDATE " + b.table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if returning != "" {
		q += " RETURNING " + returning
	}
	args := make([]interface{}, 0, len(b.args)+1)
	args = append(args, b.args...)
	return q, append(args, id)
}
