package repository

import (
	"context"
	"database/sql"
	"fmt"

	"price-catalog/internal/domain"

	"go.uber.org/zap"
)

// TxRepositories are repositories bound to a single transaction
type TxRepositories struct {
	Products ProductRepository
	Stores   StoreRepository
	Prices   PriceRepository
	History  PriceHistoryRepository
	Audit    AuditLogRepository
}

// Transactor runs units of work atomically
type Transactor interface {
	// WithinTx runs fn in a transaction. The transaction is committed when fn
	// returns nil and rolled back when it returns an error or panics.
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

type sqlTransactor struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactor creates a Transactor backed by db
func NewTransactor(db *sql.DB, logger *zap.Logger) Transactor {
	return &sqlTransactor{db: db, logger: logger}
}

// Bind returns repositories that execute against conn
func Bind(conn DBTX) TxRepositories {
	return TxRepositories{
		Products: NewProductRepository(conn),
		Stores:   NewStoreRepository(conn),
		Prices:   NewPriceRepository(conn),
		History:  NewPriceHistoryRepository(conn),
		Audit:    NewAuditLogRepository(conn),
	}
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				t.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
			}
			panic(p)
		}
	}()

	if err := fn(Bind(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.NewStorageError("rollback transaction", fmt.Errorf("%v (after: %w)", rbErr, err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}

	return nil
}
