package repository

import (
	"context"
	"errors"

	"storefront-erp/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// lockForUpdate is SELECT ... FOR UPDATE; sqlite ignores it.
var lockForUpdate = clause.Locking{Strength: "UPDATE"}

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx runs fn inside a transaction. When ctx already carries one, fn joins
// it instead of opening a nested transaction.
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// paginate clamps page/limit the same way the HTTP layer does and applies
// them as OFFSET/LIMIT.
func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	p := pagination.Normalize(page, limit, pagination.DefaultLimit)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset).Limit(p.Limit)
	}
}

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
