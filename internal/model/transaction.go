package model

import (
	"fmt"
	"time"
)

// Booking は有効な予約を表します
// SimulationState の占有インデックスだけが所有し、チェックアウトと同時に消滅します
type Booking struct {
	PropertyID int64     `json:"property_id"`
	RoomType   string    `json:"room_type"`
	CustomerID int64     `json:"customer_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
}

// Nights は宿泊数を返します
func (b Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// TransactionLine は取引の明細行です
type TransactionLine struct {
	LineNumber  int        `json:"line_number"`
	Description string     `json:"description"`
	UnitAmount  Millicents `json:"unit_amount"`
	Quantity    int        `json:"quantity"`
}

// Amount は明細行の金額 (単価×数量) を返します
func (l TransactionLine) Amount() Millicents {
	return l.UnitAmount.Mul(l.Quantity)
}

// ChargeResult は決済試行の結果コードです
type ChargeResult uint8

const (
	ChargeSuccess ChargeResult = iota
	ChargeInsufficientFunds
	ChargeCardExpired
	ChargeInvalidCardNumber
	ChargePaymentNetworkError
	ChargeFraudSuspected
	ChargeOtherError
)

// ChargeResults は全結果コードを定義順に返します
var ChargeResults = []ChargeResult{
	ChargeSuccess,
	ChargeInsufficientFunds,
	ChargeCardExpired,
	ChargeInvalidCardNumber,
	ChargePaymentNetworkError,
	ChargeFraudSuspected,
	ChargeOtherError,
}

var chargeResultNames = []string{
	"Success",
	"InsufficientFunds",
	"CardExpired",
	"InvalidCardNumber",
	"PaymentNetworkError",
	"FraudSuspected",
	"OtherError",
}

func (r ChargeResult) String() string {
	if int(r) < len(chargeResultNames) {
		return chargeResultNames[r]
	}
	return fmt.Sprintf("ChargeResult(%d)", uint8(r))
}

// ParseChargeResult は名前から結果コードを解決します
func ParseChargeResult(s string) (ChargeResult, error) {
	for i, name := range chargeResultNames {
		if name == s {
			return ChargeResult(i), nil
		}
	}
	return 0, fmt.Errorf("unknown charge result %q", s)
}

// TransactionCharge は1回の決済試行です
// 成功・失敗にかかわらず試行ごとに1件記録されます
type TransactionCharge struct {
	TransactionID int64        `json:"transaction_id"`
	Timestamp     Timestamp    `json:"timestamp"`
	Amount        Millicents   `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	Result        ChargeResult `json:"result"`
}

// Transaction は宿泊1件分の取引です
// Total は明細行金額の合計と常に一致します
type Transaction struct {
	ID         int64               `json:"id"`
	CustomerID int64               `json:"customer_id"`
	PropertyID int64               `json:"property_id"`
	Timestamp  Timestamp           `json:"timestamp"`
	CheckIn    time.Time           `json:"check_in"`
	CheckOut   time.Time           `json:"check_out"`
	Lines      []TransactionLine   `json:"lines"`
	Total      Millicents          `json:"total"`
	Charges    []TransactionCharge `json:"charges"`
	Paid       bool                `json:"paid"`
}

// LineTotal は明細行金額の合計を返します
func (t Transaction) LineTotal() Millicents {
	var total Millicents
	for _, line := range t.Lines {
		total += line.Amount()
	}
	return total
}

// AssignID は永続化後に払い出されたIDを取引と決済試行に反映します
func (t *Transaction) AssignID(id int64) {
	t.ID = id
	for i := range t.Charges {
		t.Charges[i].TransactionID = id
	}
}
