package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/uma-arai/hotelgen-batch/internal/common/utils"
)

const (
	tableCheckpoints = "simulation_checkpoints"
	colDay           = "day"
	colData          = "data"
)

// CheckpointRepository はシミュレーションのチェックポイントを保存します
type CheckpointRepository interface {
	SaveCheckpoint(ctx context.Context, runID string, day int, data []byte) error
	// LatestCheckpoint は最も進んだ日のチェックポイントを返します
	// 1件もない場合は ErrNoCheckpoint を返します
	LatestCheckpoint(ctx context.Context, runID string) ([]byte, error)
}

// CheckpointRepositoryImpl はCheckpointRepositoryのPostgreSQL実装です
type CheckpointRepositoryImpl struct {
	db *DB
}

// NewCheckpointRepository は新しいCheckpointRepositoryを作成します
func NewCheckpointRepository(db *DB) *CheckpointRepositoryImpl {
	return &CheckpointRepositoryImpl{db: db}
}

// SaveCheckpoint はチェックポイントを保存します。同じ日のものは上書きします
func (r *CheckpointRepositoryImpl) SaveCheckpoint(ctx context.Context, runID string, day int, data []byte) error {
	ctx, span := utils.BeginSubsegment(ctx, "CheckpointRepository.SaveCheckpoint")
	defer span.Close(nil)
	span.AddMetadata("day", day)

	query, args, err := saveCheckpointQuery(runID, day, data)
	if err != nil {
		span.Close(err)
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		span.Close(err)
		return fmt.Errorf("failed to save checkpoint for day %d: %w", day, err)
	}
	return nil
}

// LatestCheckpoint は最新のチェックポイントを取得します
func (r *CheckpointRepositoryImpl) LatestCheckpoint(ctx context.Context, runID string) ([]byte, error) {
	ctx, span := utils.BeginSubsegment(ctx, "CheckpointRepository.LatestCheckpoint")
	defer span.Close(nil)

	query, args, err := latestCheckpointQuery(runID)
	if err != nil {
		span.Close(err)
		return nil, err
	}
	var data []byte
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNoCheckpoint)
		}
		span.Close(err)
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return data, nil
}

func saveCheckpointQuery(runID string, day int, data []byte) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		Insert(tableCheckpoints).
		Rows(goqu.Record{
			colRunID: runID,
			colDay:   day,
			colData:  goqu.L("?::jsonb", string(data)),
		}).
		OnConflict(goqu.DoUpdate(colRunID+", "+colDay, goqu.Record{colData: goqu.L("EXCLUDED.data")})).
		Prepared(true).
		ToSQL()
}

func latestCheckpointQuery(runID string) (string, []interface{}, error) {
	return goqu.Dialect(dialectPostgres).
		From(tableCheckpoints).
		Select(colData).
		Where(goqu.Ex{colRunID: runID}).
		Order(goqu.I(colDay).Desc()).
		Limit(1).
		Prepared(true).
		ToSQL()
}
