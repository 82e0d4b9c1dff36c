package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/uma-arai/hotelgen-batch/internal/repository"
)

// MockRecordRepository はテスト用のインメモリリポジトリです
type MockRecordRepository struct {
	mu        sync.Mutex
	status    map[string]string
	records   map[string]map[repository.Kind][][]byte
	summaries map[string][]byte
	discarded []string
	truncated []map[string]int64
	// beforeLoad がエラーを返すとLoadはそのエラーで失敗します
	beforeLoad func(kind repository.Kind) error
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		status:    map[string]string{},
		records:   map[string]map[repository.Kind][][]byte{},
		summaries: map[string][]byte{},
	}
}

func (m *MockRecordRepository) BeginRun(ctx context.Context, runID string, reset bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reset {
		m.status = map[string]string{}
		m.records = map[string]map[repository.Kind][][]byte{}
	}
	if st, ok := m.status[runID]; ok && st != repository.StatusRunning {
		return repository.ErrRunClosed
	}
	m.status[runID] = repository.StatusRunning
	if m.records[runID] == nil {
		m.records[runID] = map[repository.Kind][][]byte{}
	}
	return nil
}

func (m *MockRecordRepository) Load(ctx context.Context, runID string, kind repository.Kind, records [][]byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeLoad != nil {
		if err := m.beforeLoad(kind); err != nil {
			return 0, err
		}
	}
	byKind, ok := m.records[runID]
	if !ok {
		return 0, repository.ErrRunNotStarted
	}
	for _, rec := range records {
		if len(rec) != kind.RecordSize() {
			return 0, fmt.Errorf("bad %s record size %d", kind, len(rec))
		}
	}
	first := int64(len(byKind[kind])) + 1
	byKind[kind] = append(byKind[kind], records...)
	return first, nil
}

func (m *MockRecordRepository) Truncate(ctx context.Context, runID string, marks map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncated = append(m.truncated, marks)
	for kind, recs := range m.records[runID] {
		if mark := int(marks[string(kind)]); len(recs) > mark {
			m.records[runID][kind] = recs[:mark]
		}
	}
	return nil
}

func (m *MockRecordRepository) DiscardRun(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, runID)
	m.status[runID] = repository.StatusDiscarded
	delete(m.records, runID)
	return nil
}

func (m *MockRecordRepository) CompleteRun(ctx context.Context, runID string, summary []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status[runID] != repository.StatusRunning {
		return repository.ErrRunNotStarted
	}
	m.status[runID] = repository.StatusCompleted
	m.summaries[runID] = summary
	return nil
}

// onlyRun は唯一の実行IDを返します
func (m *MockRecordRepository) onlyRun() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.status {
		return id
	}
	return ""
}

// MockCheckpointRepository はテスト用のインメモリチェックポイントです
type MockCheckpointRepository struct {
	mu    sync.Mutex
	saved map[string]map[int][]byte
	saves int
}

func NewMockCheckpointRepository() *MockCheckpointRepository {
	return &MockCheckpointRepository{saved: map[string]map[int][]byte{}}
}

func (m *MockCheckpointRepository) SaveCheckpoint(ctx context.Context, runID string, day int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved[runID] == nil {
		m.saved[runID] = map[int][]byte{}
	}
	m.saved[runID][day] = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *MockCheckpointRepository) LatestCheckpoint(ctx context.Context, runID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := -1
	for day := range m.saved[runID] {
		best = max(best, day)
	}
	if best < 0 {
		return nil, repository.ErrNoCheckpoint
	}
	return m.saved[runID][best], nil
}

func (m *MockCheckpointRepository) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
