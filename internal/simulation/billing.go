package simulation

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/generator"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// Biller は予約から取引を作成し、決済を試行します
type Biller struct {
	params *config.Params
	pools  generator.Pools
}

// NewBiller は新しいBillerを作成します
func NewBiller(params *config.Params, pools generator.Pools) *Biller {
	return &Biller{params: params, pools: pools}
}

// billedAt は請求時刻を返します
// チェックアウト請求は朝、チェックイン請求は午後のいずれかの時刻です
func (b *Biller) billedAt(r *rand.Rand, booking model.Booking) time.Time {
	if b.params.Billing == config.BillingAtCheckin {
		return booking.CheckIn.Add(14*time.Hour + time.Duration(r.IntN(8*3600))*time.Second)
	}
	return booking.CheckOut.Add(7*time.Hour + time.Duration(r.IntN(5*3600))*time.Second)
}

// Bill は予約1件分の取引を作成します
// 1泊ごとの室料、リゾートフィー (数量は泊数)、州の売上税を明細とし、合計は明細金額の総和です
// 課税対象額が LuxuryTaxThreshold を超える場合は州のラグジュアリー税も加えます
func (b *Biller) Bill(r *rand.Rand, property *model.Property, booking model.Booking) model.Transaction {
	nights := booking.Nights()
	room := property.Rooms[booking.RoomType]

	lines := make([]model.TransactionLine, 0, nights+3)
	for n := 0; n < nights; n++ {
		night := booking.CheckIn.AddDate(0, 0, n)
		lines = append(lines, model.TransactionLine{
			LineNumber:  len(lines) + 1,
			Description: fmt.Sprintf("Room Charge %s %s", booking.RoomType, night.Format("2006-01-02")),
			UnitAmount:  room.Price,
			Quantity:    1,
		})
	}
	if property.ResortFee > 0 {
		lines = append(lines, model.TransactionLine{
			LineNumber:  len(lines) + 1,
			Description: fmt.Sprintf("Resort Fee @ %s/night", property.ResortFee),
			UnitAmount:  property.ResortFee,
			Quantity:    nights,
		})
	}

	var taxable model.Millicents
	for _, l := range lines {
		taxable += l.Amount()
	}
	if bp := generator.SalesTaxBasisPoints(property.State); bp > 0 {
		if tax := taxable.ApplyBasisPoints(bp); tax > 0 {
			lines = append(lines, model.TransactionLine{
				LineNumber:  len(lines) + 1,
				Description: fmt.Sprintf("%s Sales Tax @ %d.%02d%%", property.State, bp/100, bp%100),
				UnitAmount:  tax,
				Quantity:    1,
			})
		}
	}
	if bp := generator.LuxuryTaxBasisPoints(property.State); bp > 0 && taxable > generator.LuxuryTaxThreshold {
		if tax := taxable.ApplyBasisPoints(bp); tax > 0 {
			lines = append(lines, model.TransactionLine{
				LineNumber:  len(lines) + 1,
				Description: fmt.Sprintf("%s Luxury Tax @ %d.%02d%%", property.State, bp/100, bp%100),
				UnitAmount:  tax,
				Quantity:    1,
			})
		}
	}

	txn := model.Transaction{
		CustomerID: booking.CustomerID,
		PropertyID: booking.PropertyID,
		Timestamp:  model.NewTimestamp(b.billedAt(r, booking)),
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		Lines:      lines,
	}
	txn.Total = txn.LineTotal()
	return txn
}

// Settle は決済を試行します
// 結果は発生確率表から抽選し、失敗した場合は別の支払手段で上限回数まで再試行します
// 成功しないまま上限に達した取引は未払いのまま確定します
func (b *Biller) Settle(r *rand.Rand, txn *model.Transaction) {
	weights := make([]float64, len(b.params.PaymentOutcomes))
	for i, o := range b.params.PaymentOutcomes {
		weights[i] = o.Likelihood
	}

	at := txn.Timestamp.Time()
	used := make([]string, 0, b.params.MaxAttempts)
	for attempt := 0; attempt < b.params.MaxAttempts; attempt++ {
		method := b.paymentMethod(r, used)
		used = append(used, method)
		if attempt > 0 {
			at = at.Add(time.Duration(60+r.IntN(540)) * time.Second)
		}

		result := b.params.PaymentOutcomes[rng.Weighted(r, weights)].Result
		txn.Charges = append(txn.Charges, model.TransactionCharge{
			TransactionID: txn.ID,
			Timestamp:     model.NewTimestamp(at),
			Amount:        txn.Total,
			PaymentMethod: method,
			Result:        result,
		})
		if result == model.ChargeSuccess {
			txn.Paid = true
			return
		}
	}
}

// paymentMethod はこれまでの試行で使っていない支払手段を返します
func (b *Biller) paymentMethod(r *rand.Rand, used []string) string {
	method := generator.PaymentMethod(b.pools, r)
	for tries := 0; tries < 8 && slices.Contains(used, method); tries++ {
		method = generator.PaymentMethod(b.pools, r)
	}
	return method
}
