package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/config"
	"github.com/akinalp/safespace/database"
	"github.com/akinalp/safespace/repository"
)

// Repositories holds one implementation of every store, all backed by the
// configured driver.
type Repositories struct {
	User       repository.UserRepository
	Channel    repository.ChannelRepository
	Message    repository.MessageRepository
	Report     repository.ReportRepository
	BannedWord repository.BannedWordRepository
	Tx         repository.Transactor

	// Ping reports whether the backing database is reachable.
	Ping func(ctx context.Context) error
	// Close releases the connection.
	Close func(ctx context.Context) error
}

// initRepositories opens the database selected by cfg.Database.Driver and
// builds the repositories on it.
func initRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		m, err := database.ConnectMongo(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, m.DB); err != nil {
			_ = m.Close(context.Background())
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		if ok, err := repository.MongoSupportsTransactions(ctx, m.DB); err != nil {
			logger.Warn("could not detect mongo topology", zap.Error(err))
		} else if !ok {
			logger.Warn("mongo is standalone, admin actions will not be atomic")
		}
		return &Repositories{
			User:       repository.NewMongoUserRepo(m.DB),
			Channel:    repository.NewMongoChannelRepo(m.DB),
			Message:    repository.NewMongoMessageRepo(m.DB),
			Report:     repository.NewMongoReportRepo(m.DB),
			BannedWord: repository.NewMongoBannedWordRepo(m.DB),
			Tx:         repository.NewMongoTransactor(m.Client, m.DB, logger),
			Ping:       func(ctx context.Context) error { return m.Client.Ping(ctx, nil) },
			Close:      m.Close,
		}, nil

	default:
		db, err := database.New(cfg.Database.Path, database.Migrations(), logger)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			User:       repository.NewSQLiteUserRepo(db.Conn),
			Channel:    repository.NewSQLiteChannelRepo(db.Conn),
			Message:    repository.NewSQLiteMessageRepo(db.Conn),
			Report:     repository.NewSQLiteReportRepo(db.Conn),
			BannedWord: repository.NewSQLiteBannedWordRepo(db.Conn),
			Tx:         repository.NewSQLiteTransactor(db.Conn),
			Ping:       db.Conn.PingContext,
			Close:      func(context.Context) error { return db.Close() },
		}, nil
	}
}
