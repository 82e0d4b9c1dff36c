package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/uma-arai/hotelgen-batch/internal/codec"
	"github.com/uma-arai/hotelgen-batch/internal/common/config"
	"github.com/uma-arai/hotelgen-batch/internal/common/database"
	"github.com/uma-arai/hotelgen-batch/internal/common/utils"
	jobconfig "github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/generator"
	"github.com/uma-arai/hotelgen-batch/internal/model"
	"github.com/uma-arai/hotelgen-batch/internal/repository"
	"github.com/uma-arai/hotelgen-batch/internal/simulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Summary は生成バッチの実行結果です。Step Functionsへの出力になります
type Summary struct {
	RunID              string  `json:"run_id"`
	Seed               uint64  `json:"seed"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
	Days               int     `json:"days"`
	ResumedFromDay     *int    `json:"resumed_from_day,omitempty"`
	Properties         int64   `json:"properties"`
	Customers          int64   `json:"customers"`
	Transactions       int64   `json:"transactions"`
	TransactionLines   int64   `json:"transaction_lines"`
	TransactionCharges int64   `json:"transaction_charges"`
	Unpaid             int     `json:"unpaid"`
	ShortfallDays      int     `json:"shortfall_days"`
	MeanOccupancy      float64 `json:"mean_occupancy"`
	PeakOccupancy      float64 `json:"peak_occupancy"`
	TextOverflows      int64   `json:"text_overflows"`
	Duration           string  `json:"duration"`
}

// GenerationBatchService はホテルデータセットの生成バッチ処理を担当します
type GenerationBatchService struct {
	db             *database.DB
	recordRepo     repository.RecordRepository
	checkpointRepo repository.CheckpointRepository
	sfnClient      *sfn.Client
	cfg            *config.Config
	params         *jobconfig.Params
	pools          generator.Pools
	logger         *log.Logger
}

// NewGenerationBatchService は新しいGenerationBatchServiceを作成します
// ジョブ定義の読み込みと検証はここで行い、不正な場合は生成を始める前にエラーを返します
func NewGenerationBatchService(cfg *config.Config, sfnClient *sfn.Client) (*GenerationBatchService, error) {
	logger := utils.NewLogger(os.Stderr, cfg.LogLevel, cfg.IsLocal())

	job, err := jobconfig.LoadJob(cfg.Generation.JobFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load job file: %w", err)
	}
	if cfg.Generation.Seed != nil {
		job.Generation.Seed = cfg.Generation.Seed
	}
	params, err := jobconfig.Resolve(job)
	if err != nil {
		return nil, fmt.Errorf("invalid job %s: %w", cfg.Generation.JobFile, err)
	}

	s := newGenerationBatchService(cfg, params, nil, nil, logger)
	s.sfnClient = sfnClient

	switch cfg.Generation.Output {
	case config.OutputFile:
		repo := repository.NewFileRepository(cfg.Generation.OutputDir)
		s.recordRepo = repo
		s.checkpointRepo = repo
	default:
		dbCfg := cfg.DB
		dbCfg.MaxOpenConns = cfg.Generation.Workers + 2
		db, err := database.NewDB(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection: %w", err)
		}

		// database.DBをrepository.DBに変換
		repoDb := &repository.DB{DB: db.DB}
		if err := repository.EnsureSchema(context.Background(), repoDb); err != nil {
			db.Close()
			return nil, err
		}

		s.db = db
		s.recordRepo = repository.NewRecordRepository(repoDb, logger)
		s.checkpointRepo = repository.NewCheckpointRepository(repoDb)
	}
	return s, nil
}

func newGenerationBatchService(
	cfg *config.Config,
	params *jobconfig.Params,
	recordRepo repository.RecordRepository,
	checkpointRepo repository.CheckpointRepository,
	logger *log.Logger,
) *GenerationBatchService {
	if logger == nil {
		logger = log.Default()
	}
	return &GenerationBatchService{
		recordRepo:     recordRepo,
		checkpointRepo: checkpointRepo,
		cfg:            cfg,
		params:         params,
		pools:          generator.NewCuratedPools(),
		logger:         logger,
	}
}

// Close は終了処理を行います
func (s *GenerationBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run は生成バッチ処理を実行します
func (s *GenerationBatchService) Run(ctx context.Context) error {
	// X-Rayセグメントの作成
	ctx, span := utils.BeginSubsegment(ctx, "GenerationBatchService.Run")
	defer span.Close(nil)

	summary, err := s.Generate(ctx)
	if err != nil {
		span.Close(err)
		return utils.GetStackWithError(fmt.Errorf("failed to generate dataset: %w", err))
	}

	// 結果を通知
	if err := s.sendTaskSuccess(ctx, summary); err != nil {
		span.Close(err)
		return utils.GetStackWithError(fmt.Errorf("failed to send task success: %w", err))
	}

	span.AddMetadata("duration", summary.Duration)
	span.AddMetadata("transactions", summary.Transactions)
	return nil
}

// Generate はデータセットを生成して書き込み、実行結果を返します
// 途中で失敗した場合、チェックポイントがあれば再開できるよう出力を残し、なければ破棄します
func (s *GenerationBatchService) Generate(ctx context.Context) (*Summary, error) {
	startTime := time.Now()
	gen := s.cfg.Generation

	runID := gen.ResumeRunID
	resume := runID != ""
	if !resume {
		runID = uuid.NewString()
	}
	logger := s.logger.With("run_id", runID)

	if err := s.recordRepo.BeginRun(ctx, runID, gen.Reset); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}
	logger.Info("generation started",
		"seed", s.params.Seed,
		"start", s.params.Start.Format(time.DateOnly),
		"end", s.params.End.Format(time.DateOnly),
		"resume", resume,
		"workers", gen.Workers,
	)

	r := &run{
		GenerationBatchService: s,
		id:                     runID,
		logger:                 logger,
		encoder:                codec.NewEncoder(logger),
	}
	r.writer = NewRecordWriter(s.recordRepo, runID, r.encoder, gen.BatchSize, logger)

	summary, err := r.execute(ctx, resume)
	if err != nil {
		r.abort(ctx, err)
		return nil, err
	}

	summary.Duration = time.Since(startTime).String()
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := s.recordRepo.CompleteRun(ctx, runID, data); err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}

	logger.Info("generation completed",
		"days", summary.Days,
		"transactions", summary.Transactions,
		"unpaid", summary.Unpaid,
		"mean_occupancy", fmt.Sprintf("%.4f", summary.MeanOccupancy),
		"duration", summary.Duration,
	)
	return summary, nil
}

// run は1回の実行中の状態です
type run struct {
	*GenerationBatchService
	id           string
	logger       *log.Logger
	encoder      *codec.Encoder
	writer       *RecordWriter
	reports      []simulation.DayReport
	checkpointed bool
}

func (r *run) execute(ctx context.Context, resume bool) (*Summary, error) {
	properties, customers, err := r.population(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID: r.id,
		Seed:  r.params.Seed,
		Start: r.params.Start.Format(time.DateOnly),
		End:   r.params.End.Format(time.DateOnly),
	}

	var cp *simulation.Checkpoint
	if resume {
		cp, err = r.latestCheckpoint(ctx)
		if err != nil {
			return nil, err
		}
	}

	var state *simulation.State
	if cp != nil {
		state, err = r.restore(ctx, cp, properties, customers)
		if err != nil {
			return nil, err
		}
		day := cp.Day
		summary.ResumedFromDay = &day
		r.checkpointed = true
	} else {
		if resume {
			// チェックポイント前に中断した実行は最初からやり直す
			if err := r.recordRepo.Truncate(ctx, r.id, nil); err != nil {
				return nil, fmt.Errorf("failed to clear partial output: %w", err)
			}
		}
		if err := r.writePopulation(ctx, properties, customers); err != nil {
			return nil, err
		}
		state, err = simulation.NewState(r.params, properties, customers)
		if err != nil {
			return nil, err
		}
	}

	if err := r.simulate(ctx, state); err != nil {
		return nil, err
	}

	marks := r.writer.Marks()
	summary.Days = len(r.reports)
	summary.Properties = marks[string(repository.KindProperty)]
	summary.Customers = marks[string(repository.KindCustomer)]
	summary.Transactions = marks[string(repository.KindTransaction)]
	summary.TransactionLines = marks[string(repository.KindTransactionLine)]
	summary.TransactionCharges = marks[string(repository.KindTransactionCharge)]
	summary.TextOverflows = r.encoder.Overflows()
	var occupancy float64
	for _, rep := range r.reports {
		summary.Unpaid += rep.Unpaid
		if rep.Shortfall > 0 {
			summary.ShortfallDays++
		}
		occupancy += rep.Occupancy
		summary.PeakOccupancy = max(summary.PeakOccupancy, rep.Occupancy)
	}
	if len(r.reports) > 0 {
		summary.MeanOccupancy = occupancy / float64(len(r.reports))
	}
	return summary, nil
}

// population は施設と顧客を並行して生成します
func (r *run) population(ctx context.Context) ([]model.Property, []model.Customer, error) {
	ctx, span := utils.BeginSubsegment(ctx, "GenerationBatchService.population")
	defer span.Close(nil)

	g := generator.New(r.params, r.pools, r.cfg.Generation.Workers, r.logger)
	var (
		properties []model.Property
		customers  []model.Customer
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		properties, err = g.Properties(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		customers, err = g.Customers(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		span.Close(err)
		return nil, nil, fmt.Errorf("failed to generate population: %w", err)
	}

	span.AddMetadata("properties", len(properties))
	span.AddMetadata("customers", len(customers))
	r.logger.Info("population generated", "properties", len(properties), "customers", len(customers))
	return properties, customers, nil
}

func (r *run) writePopulation(ctx context.Context, properties []model.Property, customers []model.Customer) error {
	ctx, span := utils.BeginSubsegment(ctx, "GenerationBatchService.writePopulation")
	defer span.Close(nil)

	if err := r.writer.WriteProperties(ctx, properties); err != nil {
		span.Close(err)
		return err
	}
	if err := r.writer.WriteCustomers(ctx, customers); err != nil {
		span.Close(err)
		return err
	}
	return nil
}

func (r *run) latestCheckpoint(ctx context.Context) (*simulation.Checkpoint, error) {
	data, err := r.checkpointRepo.LatestCheckpoint(ctx, r.id)
	if errors.Is(err, repository.ErrNoCheckpoint) {
		r.logger.Warn("no checkpoint to resume from, starting over")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cp, err := simulation.DecodeCheckpoint(data)
	if err != nil {
		return nil, err
	}
	if cp.RunID != r.id {
		return nil, fmt.Errorf("checkpoint belongs to run %s", cp.RunID)
	}
	return cp, nil
}

// restore は再生成した施設と顧客にチェックポイント時点のIDを付け直し、作業状態を復元します
// チェックポイント以降に書かれたレコードは取り消します
func (r *run) restore(ctx context.Context, cp *simulation.Checkpoint, properties []model.Property, customers []model.Customer) (*simulation.State, error) {
	if got := cp.Marks[string(repository.KindProperty)]; cp.PropertyFirstID+int64(len(properties))-1 != got {
		return nil, fmt.Errorf("checkpoint has %d properties from id %d, regenerated %d", got, cp.PropertyFirstID, len(properties))
	}
	if got := cp.Marks[string(repository.KindCustomer)]; cp.CustomerFirstID+int64(len(customers))-1 != got {
		return nil, fmt.Errorf("checkpoint has %d customers from id %d, regenerated %d", got, cp.CustomerFirstID, len(customers))
	}
	for i := range properties {
		properties[i].ID = cp.PropertyFirstID + int64(i)
	}
	for i := range customers {
		customers[i].ID = cp.CustomerFirstID + int64(i)
	}

	if err := r.recordRepo.Truncate(ctx, r.id, cp.Marks); err != nil {
		return nil, fmt.Errorf("failed to roll back to checkpoint: %w", err)
	}
	r.writer.SetMarks(cp.Marks)
	r.reports = append(r.reports[:0], cp.Reports...)

	state, err := simulation.RestoreState(r.params, properties, customers, cp)
	if err != nil {
		return nil, err
	}
	r.logger.Info("resumed from checkpoint", "day", cp.Day, "days_left", cp.DaysLeft, "bookings", len(cp.Bookings))
	return state, nil
}

// simulate は最終日まで1日ずつ進め、取引を書き込みます
func (r *run) simulate(ctx context.Context, state *simulation.State) error {
	ctx, span := utils.BeginSubsegment(ctx, "GenerationBatchService.simulate")
	defer span.Close(nil)

	every := r.cfg.Generation.CheckpointEvery
	sched := simulation.NewScheduler(state, r.pools, r.cfg.Generation.Workers, r.logger)
	for !sched.Done() {
		res, err := sched.Step(ctx)
		if err != nil {
			span.Close(err)
			return err
		}
		r.reports = append(r.reports, res.Report)
		if err := r.writer.WriteTransactions(ctx, res.Transactions); err != nil {
			span.Close(err)
			return err
		}

		if res.Report.Date.Day() == 1 {
			r.logger.Info("simulating",
				"date", res.Report.Date.Format(time.DateOnly),
				"occupancy", fmt.Sprintf("%.4f", res.Report.Occupancy),
				"target", fmt.Sprintf("%.4f", res.Report.Target),
				"eligible", state.Eligible(),
			)
		}

		if every > 0 && state.Day%every == 0 && !sched.Done() {
			if err := r.checkpoint(ctx, state); err != nil {
				span.Close(err)
				return err
			}
		}
	}
	if err := r.writer.Flush(ctx); err != nil {
		span.Close(err)
		return err
	}
	return nil
}

func (r *run) checkpoint(ctx context.Context, state *simulation.State) error {
	if err := r.writer.Flush(ctx); err != nil {
		return err
	}
	cp := state.Checkpoint(r.id)
	cp.Marks = r.writer.Marks()
	cp.Reports = r.reports
	data, err := cp.Encode()
	if err != nil {
		return err
	}
	if err := r.checkpointRepo.SaveCheckpoint(ctx, r.id, cp.Day, data); err != nil {
		return err
	}
	r.checkpointed = true
	r.logger.Debug("checkpoint saved", "day", cp.Day, "bytes", len(data))
	return nil
}

// abort は失敗した実行の後始末をします
// チェックポイント保存済みなら出力を残して再開に備えますが、InvariantError の場合は常に破棄します
func (r *run) abort(ctx context.Context, cause error) {
	// キャンセル後も後始末だけは行う
	ctx = context.WithoutCancel(ctx)
	var invariant *simulation.InvariantError
	if r.checkpointed && !errors.As(cause, &invariant) {
		r.logger.Error("generation failed, output kept for resume", "err", cause, "resume_run_id", r.id)
		return
	}
	r.logger.Error("generation failed, discarding output", "err", cause)
	if err := r.recordRepo.DiscardRun(ctx, r.id); err != nil {
		r.logger.Error("failed to discard run", "err", err)
	}
}

// sendTaskSuccess は、Step Functionsのタスク成功を通知し、実行結果を返却します
func (s *GenerationBatchService) sendTaskSuccess(ctx context.Context, summary *Summary) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if s.cfg.IsLocal() || s.sfnClient == nil {
		s.logger.Info("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	output, err := json.Marshal(map[string]any{
		"summary": summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	// タスクトークンを設定から取得
	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return fmt.Errorf("SFN_TASK_TOKEN is not set in config")
	}

	input := &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	}
	if _, err := s.sfnClient.SendTaskSuccess(ctx, input); err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	s.logger.Info("Successfully sent task success", "output", string(output))
	return nil
}
