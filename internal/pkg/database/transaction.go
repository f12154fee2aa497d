package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

// TxFunc runs inside a transaction. ctx carries the transaction so that
// repositories calling Conn(ctx) join it.
type TxFunc func(ctx context.Context) error

// Transaction runs fn in a transaction, joining an outer one if ctx
// already carries it
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
			db.logger.WithContext(ctx).Debug("transaction rolled back", zap.Error(err))
			return err
		}
		return nil
	})
}

// Conn returns the transaction carried by ctx, or the pool
func (db *DB) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.DB.WithContext(ctx)
}
