package batch

import (
	"context"
	"fmt"
	"maps"

	"github.com/charmbracelet/log"

	"github.com/uma-arai/hotelgen-batch/internal/codec"
	"github.com/uma-arai/hotelgen-batch/internal/model"
	"github.com/uma-arai/hotelgen-batch/internal/repository"
)

// RecordWriter はエンティティをレコードに変換してリポジトリへ書き込みます
// 取引は batchSize 件たまるまでバッファし、格納時に払い出されたIDを取引へ書き戻してから
// 明細と決済試行を書き込みます
type RecordWriter struct {
	repo      repository.RecordRepository
	runID     string
	encoder   *codec.Encoder
	batchSize int
	logger    *log.Logger

	pending []model.Transaction
	// marks は種類ごとに書き込み済みの最大IDです
	marks map[string]int64
}

// NewRecordWriter は新しいRecordWriterを作成します
func NewRecordWriter(repo repository.RecordRepository, runID string, encoder *codec.Encoder, batchSize int, logger *log.Logger) *RecordWriter {
	if batchSize < 1 {
		batchSize = 1
	}
	return &RecordWriter{
		repo:      repo,
		runID:     runID,
		encoder:   encoder,
		batchSize: batchSize,
		logger:    logger,
		pending:   make([]model.Transaction, 0, batchSize),
		marks:     map[string]int64{},
	}
}

// Marks は種類ごとの書き込み済み最大IDの写しを返します
func (w *RecordWriter) Marks() map[string]int64 {
	return maps.Clone(w.marks)
}

// SetMarks はチェックポイントから再開するときに書き込み位置を戻します
func (w *RecordWriter) SetMarks(marks map[string]int64) {
	w.marks = maps.Clone(marks)
	if w.marks == nil {
		w.marks = map[string]int64{}
	}
}

// Pending はバッファ中の取引数です
func (w *RecordWriter) Pending() int {
	return len(w.pending)
}

// WriteProperties は施設を書き込み、払い出されたIDを設定します
func (w *RecordWriter) WriteProperties(ctx context.Context, properties []model.Property) error {
	for start := 0; start < len(properties); start += w.batchSize {
		chunk := properties[start:min(start+w.batchSize, len(properties))]
		recs := make([][]byte, len(chunk))
		for i, p := range chunk {
			recs[i] = w.encoder.EncodeProperty(p)
		}
		first, err := w.load(ctx, repository.KindProperty, recs)
		if err != nil {
			return err
		}
		for i := range chunk {
			chunk[i].ID = first + int64(i)
		}
	}
	return nil
}

// WriteCustomers は顧客を書き込み、払い出されたIDを設定します
func (w *RecordWriter) WriteCustomers(ctx context.Context, customers []model.Customer) error {
	for start := 0; start < len(customers); start += w.batchSize {
		chunk := customers[start:min(start+w.batchSize, len(customers))]
		recs := make([][]byte, len(chunk))
		for i, c := range chunk {
			recs[i] = w.encoder.EncodeCustomer(c)
		}
		first, err := w.load(ctx, repository.KindCustomer, recs)
		if err != nil {
			return err
		}
		for i := range chunk {
			chunk[i].ID = first + int64(i)
		}
	}
	return nil
}

// WriteTransactions は取引をバッファし、batchSize 件に達したら書き込みます
func (w *RecordWriter) WriteTransactions(ctx context.Context, transactions []model.Transaction) error {
	w.pending = append(w.pending, transactions...)
	if len(w.pending) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush はバッファ中の取引をすべて書き込みます
func (w *RecordWriter) Flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}

	recs := make([][]byte, len(w.pending))
	for i, t := range w.pending {
		recs[i] = w.encoder.EncodeTransaction(t)
	}
	first, err := w.load(ctx, repository.KindTransaction, recs)
	if err != nil {
		return err
	}

	var lines, charges [][]byte
	for i := range w.pending {
		t := &w.pending[i]
		t.AssignID(first + int64(i))
		for _, l := range t.Lines {
			lines = append(lines, w.encoder.EncodeLine(t.ID, l))
		}
		for _, c := range t.Charges {
			charges = append(charges, w.encoder.EncodeCharge(c))
		}
	}
	if _, err := w.load(ctx, repository.KindTransactionLine, lines); err != nil {
		return err
	}
	if _, err := w.load(ctx, repository.KindTransactionCharge, charges); err != nil {
		return err
	}

	w.logger.Debug("flushed transactions",
		"transactions", len(w.pending),
		"lines", len(lines),
		"charges", len(charges),
		"last_transaction_id", w.marks[string(repository.KindTransaction)],
	)
	w.pending = w.pending[:0]
	return nil
}

// load はレコードを格納し、IDが前回の続きから連続していることを確かめます
func (w *RecordWriter) load(ctx context.Context, kind repository.Kind, recs [][]byte) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	first, err := w.repo.Load(ctx, w.runID, kind, recs)
	if err != nil {
		return 0, fmt.Errorf("failed to load %d %s records: %w", len(recs), kind, err)
	}
	if want := w.marks[string(kind)] + 1; first != want {
		return 0, fmt.Errorf("%s identities are not contiguous: got first id %d, want %d", kind, first, want)
	}
	w.marks[string(kind)] = first + int64(len(recs)) - 1
	return first, nil
}
