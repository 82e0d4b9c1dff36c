package batch

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uma-arai/hotelgen-batch/internal/codec"
	"github.com/uma-arai/hotelgen-batch/internal/common/config"
	jobconfig "github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/model"
	"github.com/uma-arai/hotelgen-batch/internal/repository"
	"github.com/uma-arai/hotelgen-batch/internal/simulation"
)

var discard = log.New(io.Discard)

func testParams(t *testing.T) *jobconfig.Params {
	t.Helper()
	seed := uint64(4242)
	ramp := 5
	target := 0.3
	p, err := jobconfig.Resolve(&jobconfig.Job{Generation: jobconfig.Generation{
		Seed:            &seed,
		Dates:           jobconfig.DateRange{Start: "2024-03-01", End: "2024-04-09"},
		Hotels:          jobconfig.CountSpec{Count: 10},
		Customers:       jobconfig.CustomerSpec{Count: 3000},
		RampUpDays:      &ramp,
		TargetOccupancy: &target,
	}})
	require.NoError(t, err)

	// テストを軽くするため部屋数を小さくする
	for pt, tp := range p.PropertyTypes {
		tp.TotalRooms = jobconfig.Range{Mean: 30, SD: 10, Min: 5, Max: 60}
		p.PropertyTypes[pt] = tp
	}
	regions := make([]jobconfig.TouristRegion, len(p.TouristRegions))
	copy(regions, p.TouristRegions)
	for i := range regions {
		regions[i].Rooms = jobconfig.Range{Mean: 60, SD: 10, Min: 20, Max: 100}
	}
	p.TouristRegions = regions
	return p
}

func testConfig(workers, batchSize, checkpointEvery int) *config.Config {
	return &config.Config{
		Env: "LOCAL",
		Generation: config.Generation{
			Output:          config.OutputFile,
			Workers:         workers,
			BatchSize:       batchSize,
			CheckpointEvery: checkpointEvery,
		},
	}
}

type testService struct {
	*GenerationBatchService
	records     *MockRecordRepository
	checkpoints *MockCheckpointRepository
}

func newTestService(t *testing.T, cfg *config.Config, params *jobconfig.Params) *testService {
	t.Helper()
	records := NewMockRecordRepository()
	checkpoints := NewMockCheckpointRepository()
	return &testService{
		GenerationBatchService: newGenerationBatchService(cfg, params, records, checkpoints, discard),
		records:                records,
		checkpoints:            checkpoints,
	}
}

func TestGenerationBatchService_Run(t *testing.T) {
	// X-Rayのセグメントを設定
	ctx, seg := xray.BeginSegment(context.Background(), "TestGenerationBatchService_Run")
	defer seg.Close(nil)

	params := testParams(t)
	s := newTestService(t, testConfig(4, 50, 10), params)

	require.NoError(t, s.Run(ctx))

	runID := s.records.onlyRun()
	require.NotEmpty(t, runID)
	assert.Equal(t, repository.StatusCompleted, s.records.status[runID])
	assert.Equal(t, 3, s.checkpoints.saveCount(), "days 10, 20 and 30 of 40")

	var summary Summary
	require.NoError(t, json.Unmarshal(s.records.summaries[runID], &summary))
	recs := s.records.records[runID]
	assert.Equal(t, runID, summary.RunID)
	assert.Equal(t, params.Days, summary.Days)
	assert.Nil(t, summary.ResumedFromDay)
	assert.Equal(t, int64(len(recs[repository.KindProperty])), summary.Properties)
	assert.Equal(t, int64(len(recs[repository.KindCustomer])), summary.Customers)
	assert.Equal(t, int64(len(recs[repository.KindTransaction])), summary.Transactions)
	assert.Equal(t, int64(len(recs[repository.KindTransactionLine])), summary.TransactionLines)
	assert.Equal(t, int64(len(recs[repository.KindTransactionCharge])), summary.TransactionCharges)
	assert.EqualValues(t, 10, summary.Properties)
	assert.EqualValues(t, 3000, summary.Customers)
	assert.Positive(t, summary.Transactions)
	assert.LessOrEqual(t, summary.PeakOccupancy, jobconfig.OccupancyCeiling)

	assertRecordsConsistent(t, recs)
}

// assertRecordsConsistent はレコード間の参照と金額の整合を確かめます
func assertRecordsConsistent(t *testing.T, recs map[repository.Kind][][]byte) {
	t.Helper()
	nProps := int64(len(recs[repository.KindProperty]))
	nCustomers := int64(len(recs[repository.KindCustomer]))
	nTxns := int64(len(recs[repository.KindTransaction]))

	for _, b := range recs[repository.KindProperty] {
		_, err := codec.DecodeProperty(b)
		require.NoError(t, err)
	}
	for _, b := range recs[repository.KindCustomer] {
		_, err := codec.DecodeCustomer(b)
		require.NoError(t, err)
	}

	totals := make([]model.Millicents, nTxns+1)
	for _, b := range recs[repository.KindTransaction] {
		txn, err := codec.DecodeTransaction(b)
		require.NoError(t, err)
		assert.True(t, txn.PropertyID >= 1 && txn.PropertyID <= nProps, "property id %d", txn.PropertyID)
		assert.True(t, txn.CustomerID >= 1 && txn.CustomerID <= nCustomers, "customer id %d", txn.CustomerID)
	}
	for _, b := range recs[repository.KindTransactionLine] {
		id, line, err := codec.DecodeLine(b)
		require.NoError(t, err)
		require.True(t, id >= 1 && id <= nTxns, "line transaction id %d", id)
		totals[id] += line.Amount()
	}
	for i, b := range recs[repository.KindTransaction] {
		txn, err := codec.DecodeTransaction(b)
		require.NoError(t, err)
		assert.Equal(t, txn.Total, totals[i+1], "transaction %d total", i+1)
	}
	for _, b := range recs[repository.KindTransactionCharge] {
		c, err := codec.DecodeCharge(b)
		require.NoError(t, err)
		assert.True(t, c.TransactionID >= 1 && c.TransactionID <= nTxns, "charge transaction id %d", c.TransactionID)
	}
}

func TestGenerationBatchService_Deterministic(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestGenerationBatchService_Deterministic")
	defer seg.Close(nil)

	params := testParams(t)
	a := newTestService(t, testConfig(1, 7, 0), params)
	_, err := a.Generate(ctx)
	require.NoError(t, err)

	b := newTestService(t, testConfig(8, 500, 3), params)
	_, err = b.Generate(ctx)
	require.NoError(t, err)

	recsA := a.records.records[a.records.onlyRun()]
	recsB := b.records.records[b.records.onlyRun()]
	for _, kind := range repository.Kinds {
		assert.Equal(t, recsA[kind], recsB[kind], "kind %s", kind)
	}
}

func TestGenerationBatchService_ResumeAfterFailure(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestGenerationBatchService_ResumeAfterFailure")
	defer seg.Close(nil)

	params := testParams(t)
	want := newTestService(t, testConfig(4, 40, 0), params)
	_, err := want.Generate(ctx)
	require.NoError(t, err)
	wantRecs := want.records.records[want.records.onlyRun()]

	// チェックポイント保存後、最初の明細書き込みで失敗させる
	s := newTestService(t, testConfig(4, 40, 10), params)
	failed := false
	s.records.beforeLoad = func(kind repository.Kind) error {
		if kind == repository.KindTransactionLine && s.checkpoints.saveCount() > 0 && !failed {
			failed = true
			return errors.New("connection reset by peer")
		}
		return nil
	}
	_, err = s.Generate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")

	runID := s.records.onlyRun()
	assert.Equal(t, repository.StatusRunning, s.records.status[runID])
	assert.Empty(t, s.records.discarded, "checkpointed output is kept for resume")

	// 同じリポジトリで再開する
	cfg := testConfig(2, 40, 10)
	cfg.Generation.ResumeRunID = runID
	resumed := &GenerationBatchService{}
	*resumed = *s.GenerationBatchService
	resumed.cfg = cfg

	summary, err := resumed.Generate(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary.ResumedFromDay)
	assert.Equal(t, 0, *summary.ResumedFromDay%10)
	assert.Equal(t, params.Days, summary.Days)
	assert.Len(t, s.records.truncated, 1)

	gotRecs := s.records.records[runID]
	for _, kind := range repository.Kinds {
		assert.Equal(t, wantRecs[kind], gotRecs[kind], "kind %s", kind)
	}
	assert.Equal(t, repository.StatusCompleted, s.records.status[runID])
}

func TestGenerationBatchService_DiscardWithoutCheckpoint(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestGenerationBatchService_DiscardWithoutCheckpoint")
	defer seg.Close(nil)

	tests := []struct {
		name       string
		beforeLoad func(kind repository.Kind) error
		ctx        func() context.Context
	}{
		{
			name: "書き込みエラー",
			beforeLoad: func(kind repository.Kind) error {
				if kind == repository.KindTransaction {
					return errors.New("disk full")
				}
				return nil
			},
			ctx: func() context.Context { return ctx },
		},
		{
			name: "キャンセル",
			ctx: func() context.Context {
				c, cancel := context.WithCancel(ctx)
				cancel()
				return c
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, testConfig(2, 50, 0), testParams(t))
			s.records.beforeLoad = tt.beforeLoad

			err := s.Run(tt.ctx())
			require.Error(t, err)

			runID := s.records.onlyRun()
			assert.Equal(t, []string{runID}, s.records.discarded)
			assert.Equal(t, repository.StatusDiscarded, s.records.status[runID])
			assert.Zero(t, s.checkpoints.saveCount())
		})
	}
}

func TestGenerationBatchService_DiscardOnInvariantAfterCheckpoint(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestGenerationBatchService_DiscardOnInvariantAfterCheckpoint")
	defer seg.Close(nil)

	s := newTestService(t, testConfig(2, 40, 10), testParams(t))
	s.records.beforeLoad = func(kind repository.Kind) error {
		if kind == repository.KindTransaction && s.checkpoints.saveCount() > 0 {
			return &simulation.InvariantError{Day: 11, PropertyID: 1, RoomType: "SK", Reason: "slot over capacity"}
		}
		return nil
	}

	err := s.Run(ctx)
	require.Error(t, err)
	var invariant *simulation.InvariantError
	assert.ErrorAs(t, err, &invariant)
	require.Positive(t, s.checkpoints.saveCount())

	runID := s.records.onlyRun()
	assert.Equal(t, []string{runID}, s.records.discarded)
	assert.Equal(t, repository.StatusDiscarded, s.records.status[runID])
	assert.Empty(t, s.records.records[runID])
}

func TestGenerationBatchService_ResumeWithoutCheckpointStartsOver(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestGenerationBatchService_ResumeWithoutCheckpointStartsOver")
	defer seg.Close(nil)

	params := testParams(t)
	cfg := testConfig(2, 100, 0)
	cfg.Generation.ResumeRunID = "0b8f8a5e-7a43-4e0a-8c55-4f5d3b1c2e01"
	s := newTestService(t, cfg, params)

	summary, err := s.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.Generation.ResumeRunID, summary.RunID)
	assert.Nil(t, summary.ResumedFromDay)
	require.Len(t, s.records.truncated, 1)
	assert.Empty(t, s.records.truncated[0])
	assertRecordsConsistent(t, s.records.records[summary.RunID])
}
