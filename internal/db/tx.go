package db

import (
	"context"
	"database/sql"
	"errors"
)

// RunInTx runs fn inside a transaction that is committed when fn returns nil
// and rolled back otherwise.
func RunInTx(ctx context.Context, conn *sql.DB, fn func(txqry *Queries) error) error {
	sqltx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	err = fn(New(sqltx))
	if err != nil {
		return errors.Join(err, sqltx.Rollback())
	}
	return sqltx.Commit()
}
