package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/uma-arai/hotelgen-batch/internal/common/utils"
)

// DB はX-Rayのサブセグメントでクエリを記録するsqlx.DBのラッパーです
type DB struct {
	*sqlx.DB
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	ctx, span := utils.BeginSubsegment(ctx, "DB.BeginTx")
	defer span.Close(nil)

	return db.DB.BeginTxx(ctx, nil)
}

// QueryxContext wraps sqlx.DB.QueryxContext with X-Ray tracing
func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	ctx, span := utils.BeginSubsegment(ctx, "DB.Queryx")
	defer span.Close(nil)

	// クエリをメタデータとして追加
	span.AddMetadata("query", query)

	rows, err := db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		span.Close(err)
		return nil, err
	}

	return rows, nil
}

// QueryRowxContext wraps sqlx.DB.QueryRowxContext with X-Ray tracing
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	ctx, span := utils.BeginSubsegment(ctx, "DB.QueryRowx")
	defer span.Close(nil)

	span.AddMetadata("query", query)

	return db.DB.QueryRowxContext(ctx, query, args...)
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, span := utils.BeginSubsegment(ctx, "DB.Exec")
	defer span.Close(nil)

	// クエリをメタデータとして追加
	span.AddMetadata("query", query)

	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		span.Close(err)
		return nil, err
	}

	return result, nil
}
