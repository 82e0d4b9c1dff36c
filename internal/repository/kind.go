package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/uma-arai/hotelgen-batch/internal/codec"
)

// Kind はレコードの種類です
type Kind string

const (
	KindProperty          Kind = "property"
	KindCustomer          Kind = "customer"
	KindTransaction       Kind = "transaction"
	KindTransactionLine   Kind = "transaction_line"
	KindTransactionCharge Kind = "transaction_charge"
)

// Kinds は全種類を書き込み順に並べたものです
var Kinds = []Kind{KindProperty, KindCustomer, KindTransaction, KindTransactionLine, KindTransactionCharge}

// 実行状態
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusDiscarded = "discarded"
)

var (
	// ErrRunNotStarted はBeginRunされていない実行IDに書き込もうとした場合のエラーです
	ErrRunNotStarted = errors.New("generation run has not been started")
	// ErrRunClosed は完了または破棄済みの実行を再開しようとした場合のエラーです
	ErrRunClosed = errors.New("generation run is already completed or discarded")
	// ErrNoCheckpoint はチェックポイントが1件もない場合のエラーです
	ErrNoCheckpoint = errors.New("no checkpoint found")
)

// Table はレコードを格納するテーブル名です
func (k Kind) Table() string {
	return string(k) + "_records"
}

// RecordSize は1レコードのバイト数です
func (k Kind) RecordSize() int {
	switch k {
	case KindProperty:
		return codec.PropertySize
	case KindCustomer:
		return codec.CustomerSize
	case KindTransaction:
		return codec.TransactionSize
	case KindTransactionLine:
		return codec.TransactionLineSize
	case KindTransactionCharge:
		return codec.TransactionChargeSize
	}
	return 0
}

func (k Kind) check(records [][]byte) error {
	size := k.RecordSize()
	if size == 0 {
		return fmt.Errorf("unknown record kind %q", k)
	}
	for i, rec := range records {
		if len(rec) != size {
			return fmt.Errorf("%s record %d is %d bytes, want %d", k, i, len(rec), size)
		}
	}
	return nil
}

func validateRunID(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return nil
}
