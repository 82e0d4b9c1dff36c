package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/uma-arai/hotelgen-batch/internal/common/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	runFile        = "run.json"
	checkpointFile = "checkpoint.json"
)

type runInfo struct {
	RunID      string              `json:"run_id"`
	Status     string              `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Summary    jsoniter.RawMessage `json:"summary,omitempty"`
}

// FileRepository はレコードを種類ごとのバイナリファイルに追記します
// <dir>/<run_id>/<kind>.bin にレコードが隙間なく並ぶため、IDはファイル内の位置+1です
// RecordRepository と CheckpointRepository の両方を実装します
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileRepository は新しいFileRepositoryを作成します
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

func (r *FileRepository) runDir(runID string) string {
	return filepath.Join(r.dir, runID)
}

func (r *FileRepository) recordPath(runID string, kind Kind) string {
	return filepath.Join(r.runDir(runID), string(kind)+".bin")
}

// BeginRun は実行用のディレクトリを用意します
func (r *FileRepository) BeginRun(ctx context.Context, runID string, reset bool) error {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.BeginRun")
	defer span.Close(nil)

	if err := validateRunID(runID); err != nil {
		span.Close(err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if reset {
		entries, err := os.ReadDir(r.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			span.Close(err)
			return fmt.Errorf("failed to list %s: %w", r.dir, err)
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(r.dir, e.Name())); err != nil {
				span.Close(err)
				return fmt.Errorf("failed to reset previous output: %w", err)
			}
		}
	}

	info, err := r.readRun(runID)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		info = &runInfo{RunID: runID, Status: StatusRunning, StartedAt: time.Now().UTC()}
	case err != nil:
		span.Close(err)
		return err
	case info.Status != StatusRunning:
		err := fmt.Errorf("run %s: %w", runID, ErrRunClosed)
		span.Close(err)
		return err
	}

	if err := os.MkdirAll(r.runDir(runID), 0o755); err != nil {
		span.Close(err)
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := r.writeRun(info); err != nil {
		span.Close(err)
		return err
	}
	return nil
}

// Load はレコードをファイル末尾に追記し、先頭のIDを返します
func (r *FileRepository) Load(ctx context.Context, runID string, kind Kind, records [][]byte) (int64, error) {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.Load")
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

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.runDir(runID)); err != nil {
		err = fmt.Errorf("run %s: %w", runID, ErrRunNotStarted)
		span.Close(err)
		return 0, err
	}

	f, err := os.OpenFile(r.recordPath(runID, kind), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		span.Close(err)
		return 0, fmt.Errorf("failed to open %s file: %w", kind, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		span.Close(err)
		return 0, fmt.Errorf("failed to stat %s file: %w", kind, err)
	}
	size := int64(kind.RecordSize())
	if st.Size()%size != 0 {
		f.Close()
		err := fmt.Errorf("%s file is %d bytes, not a multiple of %d", kind, st.Size(), size)
		span.Close(err)
		return 0, err
	}
	first := st.Size()/size + 1

	if err := appendAndClose(f, kind, records); err != nil {
		span.Close(err)
		return 0, err
	}
	return first, nil
}

// appendAndClose はレコードを書き込んで f を閉じます
// 閉じる際のエラーも最後の書き込みの失敗として返します
func appendAndClose(f io.WriteCloser, kind Kind, records [][]byte) error {
	w := bufio.NewWriterSize(f, 1<<16)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s record: %w", kind, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s file: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s file: %w", kind, err)
	}
	return nil
}

// Truncate は marks のIDより後ろのレコードをファイルから切り詰めます
func (r *FileRepository) Truncate(ctx context.Context, runID string, marks map[string]int64) error {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.Truncate")
	defer span.Close(nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range Kinds {
		path := r.recordPath(runID, kind)
		st, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			span.Close(err)
			return fmt.Errorf("failed to stat %s file: %w", kind, err)
		}
		keep := marks[string(kind)] * int64(kind.RecordSize())
		if st.Size() <= keep {
			continue
		}
		if err := os.Truncate(path, keep); err != nil {
			span.Close(err)
			return fmt.Errorf("failed to truncate %s file: %w", kind, err)
		}
	}
	return nil
}

// DiscardRun はレコードとチェックポイントを削除し、破棄済みにします
func (r *FileRepository) DiscardRun(ctx context.Context, runID string) error {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.DiscardRun")
	defer span.Close(nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.readRun(runID)
	if err != nil {
		span.Close(err)
		return fmt.Errorf("failed to read run %s: %w", runID, err)
	}
	for _, kind := range Kinds {
		if err := os.Remove(r.recordPath(runID, kind)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			span.Close(err)
			return fmt.Errorf("failed to remove %s file: %w", kind, err)
		}
	}
	if err := os.Remove(filepath.Join(r.runDir(runID), checkpointFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		span.Close(err)
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}

	now := time.Now().UTC()
	info.Status = StatusDiscarded
	info.FinishedAt = &now
	return r.writeRun(info)
}

// CompleteRun は実行を完了にし、サマリを保存します
func (r *FileRepository) CompleteRun(ctx context.Context, runID string, summary []byte) error {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.CompleteRun")
	defer span.Close(nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.readRun(runID)
	if err != nil {
		span.Close(err)
		return fmt.Errorf("run %s: %w", runID, ErrRunNotStarted)
	}
	now := time.Now().UTC()
	info.Status = StatusCompleted
	info.FinishedAt = &now
	info.Summary = summary
	return r.writeRun(info)
}

// SaveCheckpoint は最新のチェックポイントで置き換えます
func (r *FileRepository) SaveCheckpoint(ctx context.Context, runID string, day int, data []byte) error {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.SaveCheckpoint")
	defer span.Close(nil)
	span.AddMetadata("day", day)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeFileAtomic(filepath.Join(r.runDir(runID), checkpointFile), data); err != nil {
		span.Close(err)
		return fmt.Errorf("failed to save checkpoint for day %d: %w", day, err)
	}
	return nil
}

// LatestCheckpoint は保存済みのチェックポイントを返します
func (r *FileRepository) LatestCheckpoint(ctx context.Context, runID string) ([]byte, error) {
	_, span := utils.BeginSubsegment(ctx, "FileRepository.LatestCheckpoint")
	defer span.Close(nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(r.runDir(runID), checkpointFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNoCheckpoint)
	}
	if err != nil {
		span.Close(err)
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return data, nil
}

func (r *FileRepository) readRun(runID string) (*runInfo, error) {
	data, err := os.ReadFile(filepath.Join(r.runDir(runID), runFile))
	if err != nil {
		return nil, err
	}
	var info runInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", runFile, err)
	}
	return &info, nil
}

func (r *FileRepository) writeRun(info *runInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", runFile, err)
	}
	return writeFileAtomic(filepath.Join(r.runDir(info.RunID), runFile), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
