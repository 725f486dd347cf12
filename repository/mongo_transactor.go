package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type mongoTransactor struct {
	client *mongo.Client
	repos  TxRepos
	logger *zap.Logger

	fallbackOnce sync.Once
}

// NewMongoTransactor runs callbacks inside a multi-document transaction.
// Standalone servers cannot run transactions; there the callback runs
// without one and a warning is logged the first time.
func NewMongoTransactor(client *mongo.Client, db *mongo.Database, logger *zap.Logger) Transactor {
	return &mongoTransactor{
		client: client,
		repos: TxRepos{
			Users:    NewMongoUserRepo(db),
			Messages: NewMongoMessageRepo(db),
			Reports:  NewMongoReportRepo(db),
		},
		logger: logger.Named("mongo-tx"),
	}
}

func (t *mongoTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	// Repositories resolve the session from the SessionContext, so the same
	// instances serve inside and outside the transaction.
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, t.repos)
	})
	if err == nil {
		return nil
	}

	if isTxnNotSupported(err) {
		return t.withoutTx(ctx, err, fn)
	}
	return err
}

func (t *mongoTransactor) withoutTx(ctx context.Context, cause error, fn func(ctx context.Context, repos TxRepos) error) error {
	t.fallbackOnce.Do(func() {
		t.logger.Warn("transactions unavailable, writes are no longer atomic", zap.Error(cause))
	})
	return fn(ctx, t.repos)
}

// MongoSupportsTransactions reports whether the server is a replica set
// member or mongos. Standalone servers reject multi-document transactions.
func MongoSupportsTransactions(ctx context.Context, db *mongo.Database) (bool, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false, fmt.Errorf("failed to run hello: %w", err)
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid", nil
}

// isTxnNotSupported recognizes the errors a standalone mongod returns when
// asked to start a transaction.
func isTxnNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction") &&
		(strings.Contains(msg, "replica set") || strings.Contains(msg, "not supported"))
}
