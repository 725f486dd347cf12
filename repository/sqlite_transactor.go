package repository

import (
	"context"
	"database/sql"

	"github.com/akinalp/safespace/database"
)

type sqliteTransactor struct {
	db *sql.DB
}

// NewSQLiteTransactor runs callbacks inside database.WithTx with
// repositories bound to the *sql.Tx.
func NewSQLiteTransactor(db *sql.DB) Transactor {
	return &sqliteTransactor{db: db}
}

func (t *sqliteTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	return database.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		return fn(ctx, TxRepos{
			Users:    NewSQLiteUserRepo(tx),
			Messages: NewSQLiteMessageRepo(tx),
			Reports:  NewSQLiteReportRepo(tx),
		})
	})
}
