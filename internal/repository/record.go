package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/uma-arai/hotelgen-batch/internal/common/utils"
)

const (
	dialectPostgres = "postgres"
	tableRuns       = "generation_runs"
	tableIdentities = "record_identities"
	colRunID        = "run_id"
	colKind         = "kind"
	colNextID       = "next_id"
	colID           = "id"
	colRecord       = "record"
	colStatus       = "status"
	colFinishedAt   = "finished_at"
	colSummary      = "summary"
)

// RecordRepository は固定長レコードの一括格納を担当するインターフェースです
// IDは実行ごと・種類ごとに1から連番で採番されます
type RecordRepository interface {
	// BeginRun は実行を開始します。reset が真の場合は既存の出力をすべて消します
	// 実行中のIDを渡すと再開として扱います
	BeginRun(ctx context.Context, runID string, reset bool) error
	// Load はレコードを格納し、連続して採番したIDの先頭を返します
	Load(ctx context.Context, runID string, kind Kind, records [][]byte) (int64, error)
	// Truncate は種類ごとに marks のIDより後ろのレコードを削除し、採番を巻き戻します
	Truncate(ctx context.Context, runID string, marks map[string]int64) error
	DiscardRun(ctx context.Context, runID string) error
	CompleteRun(ctx context.Context, runID string, summary []byte) error
}

// RecordRepositoryImpl はPostgreSQLへのCOPYでレコードを格納します
type RecordRepositoryImpl struct {
	db     *DB
	logger *log.Logger
}

// NewRecordRepository は新しいRecordRepositoryを作成します
// logger が nil の場合は既定のロガーを使います
func NewRecordRepository(db *DB, logger *log.Logger) *RecordRepositoryImpl {
	if logger == nil {
		logger = log.Default()
	}
	return &RecordRepositoryImpl{db: db, logger: logger}
}

// BeginRun は実行を登録し、種類ごとの採番行を用意します
func (r *RecordRepositoryImpl) BeginRun(ctx context.Context, runID string, reset bool) error {
	ctx, span := utils.BeginSubsegment(ctx, "RecordRepository.BeginRun")
	defer span.Close(nil)
	span.AddMetadata("run_id", runID)

	if err := validateRunID(runID); err != nil {
		span.Close(err)
		return err
	}

	return r.inTx(ctx, span, func(tx *sqlx.Tx) error {
		if reset {
			query, _, err := resetQuery()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to reset previous output: %w", err)
			}
			r.logger.Info("previous output removed", "run_id", runID)
		}

		query, args, err := beginRunQuery(runID)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to register run %s: %w", runID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("run %s: %w", runID, ErrRunClosed)
		}

		query, args, err = initIdentitiesQuery(runID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to initialize identities for run %s: %w", runID, err)
		}
		return nil
	})
}

// Load はIDを予約してからCOPYでレコードを格納します
func (r *RecordRepositoryImpl) Load(ctx context.Context, runID string, kind Kind, records [][]byte) (int64, error) {
	ctx, span := utils.BeginSubsegment(ctx, "RecordRepository.Load")
	defer span.Close(nil)
	span.AddMetadata("kind", string(kind))
	span.AddMetadata("count", len(records))

	if len(records) == 0 {
		return 0, nil
	}
	if err := kind.check(records); err != nil {
		span.Close(err)
		return 0, err
	}

	var first int64
	err := r.inTx(ctx, span, func(tx *sqlx.Tx) error {
		query, args, err := reserveIdentitiesQuery(runID, kind, len(records))
		if err != nil {
			return err
		}
		var next int64
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&next); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("run %s: %w", runID, ErrRunNotStarted)
			}
			return fmt.Errorf("failed to reserve %d %s identities: %w", len(records), kind, err)
		}
		first = next - int64(len(records))

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(kind.Table(), colRunID, colID, colRecord))
		if err != nil {
			return fmt.Errorf("failed to prepare copy into %s: %w", kind.Table(), err)
		}
		for i, rec := range records {
			if _, err := stmt.ExecContext(ctx, runID, first+int64(i), rec); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to copy %s record: %w", kind, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to flush copy into %s: %w", kind.Table(), err)
		}
		return stmt.Close()
	})
	if err != nil {
		return 0, err
	}
	return first, nil
}

// Truncate はチェックポイント以降に書かれたレコードを取り消します
func (r *RecordRepositoryImpl) Truncate(ctx context.Context, runID string, marks map[string]int64) error {
	ctx, span := utils.BeginSubsegment(ctx, "RecordRepository.Truncate")
	defer span.Close(nil)
	span.AddMetadata("marks", marks)

	return r.inTx(ctx, span, func(tx *sqlx.Tx) error {
		for _, kind := range Kinds {
			mark := marks[string(kind)]
			query, args, err := truncateRecordsQuery(runID, kind, mark)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to truncate %s records after %d: %w", kind, mark, err)
			}
			query, args, err = rewindIdentityQuery(runID, kind, mark)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to rewind %s identity to %d: %w", kind, mark, err)
			}
		}
		return nil
	})
}

// DiscardRun は実行の出力をすべて削除し、破棄済みにします
func (r *RecordRepositoryImpl) DiscardRun(ctx context.Context, runID string) error {
	ctx, span := utils.BeginSubsegment(ctx, "RecordRepository.DiscardRun")
	defer span.Close(nil)

	return r.inTx(ctx, span, func(tx *sqlx.Tx) error {
		queries, err := discardRunQueries(runID)
		if err != nil {
			return err
		}
		for _, q := range queries {
			if _, err := tx.ExecContext(ctx, q.sql, q.args...); err != nil {
				return fmt.Errorf("failed to discard run %s: %w", runID, err)
			}
		}
		return nil
	})
}

// CompleteRun は実行を完了にし、サマリを保存します
func (r *RecordRepositoryImpl) CompleteRun(ctx context.Context, runID string, summary []byte) error {
	ctx, span := utils.BeginSubsegment(ctx, "RecordRepository.CompleteRun")
	defer span.Close(nil)

	query, args, err := completeRunQuery(runID, summary)
	if err != nil {
		span.Close(err)
		return err
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		span.Close(err)
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		err := fmt.Errorf("run %s: %w", runID, ErrRunNotStarted)
		span.Close(err)
		return err
	}
	return nil
}

// inTx はトランザクション内で fn を実行します
// fn がエラーを返した場合はロールバックします
func (r *RecordRepositoryImpl) inTx(ctx context.Context, span *utils.Span, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		span.Close(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		r.rollback(tx, err)
		span.Close(err)
		return err
	}
	if err := tx.Commit(); err != nil {
		span.Close(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type statement struct {
	sql  string
	args []interface{}
}

func resetQuery() (string, []interface{}, error) {
	tables := []interface{}{tableRuns, tableIdentities, tableCheckpoints}
	for _, kind := range Kinds {
		tables = append(tables, kind.Table())
	}
	return goqu.Dialect(dialectPostgres).Truncate(tables...).ToSQL()
}

func beginRunQuery(runID string) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		Insert(tableRuns).
		Rows(goqu.Record{colRunID: runID, colStatus: StatusRunning}).
		OnConflict(goqu.DoUpdate(colRunID, goqu.Record{colStatus: StatusRunning}).
			Where(goqu.T(tableRuns).Col(colStatus).Eq(StatusRunning))).
		Prepared(true).
		ToSQL()
}

func initIdentitiesQuery(runID string) (string, []interface{}, error) {
	rows := make([]interface{}, 0, len(Kinds))
	for _, kind := range Kinds {
		rows = append(rows, goqu.Record{colRunID: runID, colKind: string(kind), colNextID: 1})
	}
	return goqu.Dialect(dialectPostgres).
		Insert(tableIdentities).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
}

// reserveIdentitiesQuery は n 件分のIDを予約し、予約後の next_id を返すクエリです
func reserveIdentitiesQuery(runID string, kind Kind, n int) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		Update(tableIdentities).
		Set(goqu.Record{colNextID: goqu.L("? + ?", goqu.C(colNextID), n)}).
		Where(goqu.Ex{colRunID: runID, colKind: string(kind)}).
		Returning(colNextID).
		Prepared(true).
		ToSQL()
}

func truncateRecordsQuery(runID string, kind Kind, mark int64) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		Delete(kind.Table()).
		Where(goqu.C(colRunID).Eq(runID), goqu.C(colID).Gt(mark)).
		Prepared(true).
		ToSQL()
}

func rewindIdentityQuery(runID string, kind Kind, mark int64) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		Update(tableIdentities).
		Set(goqu.Record{colNextID: mark + 1}).
		Where(goqu.Ex{colRunID: runID, colKind: string(kind)}).
		Prepared(true).
		ToSQL()
}

func discardRunQueries(runID string) ([]statement, error) {
	dialect := goqu.Dialect(dialectPostgres)
	var stmts []statement
	add := func(query string, args []interface{}, err error) error {
		if err != nil {
			return err
		}
		stmts = append(stmts, statement{sql: query, args: args})
		return nil
	}

	byRun := goqu.Ex{colRunID: runID}
	tables := []string{tableIdentities, tableCheckpoints}
	for _, kind := range Kinds {
		tables = append(tables, kind.Table())
	}
	for _, table := range tables {
		if err := add(dialect.Delete(table).Where(byRun).Prepared(true).ToSQL()); err != nil {
			return nil, err
		}
	}
	if err := add(dialect.Update(tableRuns).
		Set(goqu.Record{colStatus: StatusDiscarded, colFinishedAt: goqu.L("NOW()")}).
		Where(byRun).
		Prepared(true).
		ToSQL()); err != nil {
		return nil, err
	}
	return stmts, nil
}

func completeRunQuery(runID string, summary []byte) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		Update(tableRuns).
		Set(goqu.Record{
			colStatus:     StatusCompleted,
			colFinishedAt: goqu.L("NOW()"),
			colSummary:    goqu.L("?::jsonb", string(summary)),
		}).
		Where(goqu.Ex{colRunID: runID, colStatus: StatusRunning}).
		Prepared(true).
		ToSQL()
}

type rollbacker interface {
	Rollback() error
}

// rollback はロールバックし、失敗した場合は元のエラーとあわせてログに残します
func (r *RecordRepositoryImpl) rollback(tx rollbacker, cause error) {
	if err := tx.Rollback(); err != nil {
		r.logger.Error("rollback failed", "err", err, "cause", cause)
	}
}
