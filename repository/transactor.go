package repository

import "context"

// TxRepos are repositories bound to one transaction.
type TxRepos struct {
	Users    UserRepository
	Messages MessageRepository
	Reports  ReportRepository
}

// Transactor runs fn so that every write made through the given TxRepos
// commits together or not at all. fn must use the ctx it receives.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}
