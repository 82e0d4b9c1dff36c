package codec

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// Encoder はエンティティを固定長レコードに変換します
// 文字列の切り詰めは警告ログと件数の記録のみで、処理は継続します
type Encoder struct {
	logger    *log.Logger
	overflows atomic.Int64
}

// NewEncoder は新しいEncoderを作成します
func NewEncoder(logger *log.Logger) *Encoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Encoder{logger: logger}
}

// Overflows はこれまでに切り詰めたフィールド数を返します
func (e *Encoder) Overflows() int64 {
	return e.overflows.Load()
}

func slot(buf []byte, l Layout, name string) []byte {
	f := l.Field(name)
	return buf[f.Offset:f.End()]
}

func (e *Encoder) text(buf []byte, l Layout, name, value string) {
	dst := slot(buf, l, name)
	if putText(dst, value) {
		e.overflows.Add(1)
		e.logger.Warn("text field truncated",
			"record", l.Name,
			"field", name,
			"budget", len(dst),
			"length", len(value),
		)
	}
}

// EncodeCustomer は顧客を256バイトのレコードに変換します
func (e *Encoder) EncodeCustomer(c model.Customer) []byte {
	buf := make([]byte, CustomerSize)
	e.text(buf, CustomerLayout, "first_name", c.FirstName)
	e.text(buf, CustomerLayout, "last_name", c.LastName)
	e.text(buf, CustomerLayout, "street", c.Street)
	e.text(buf, CustomerLayout, "city", c.City)
	e.text(buf, CustomerLayout, "state", c.State)
	e.text(buf, CustomerLayout, "zip", c.Zip)
	e.text(buf, CustomerLayout, "phone", c.Phone)
	e.text(buf, CustomerLayout, "email", c.Email)
	binary.LittleEndian.PutUint32(slot(buf, CustomerLayout, "archetype"), uint32(c.Archetype))
	return buf
}

// EncodeProperty は施設を512バイトのレコードに変換します
func (e *Encoder) EncodeProperty(p model.Property) []byte {
	buf := make([]byte, PropertySize)
	binary.LittleEndian.PutUint32(slot(buf, PropertyLayout, "type"), uint32(p.Type))
	e.text(buf, PropertyLayout, "name", p.Name)
	e.text(buf, PropertyLayout, "street", p.Street)
	e.text(buf, PropertyLayout, "city", p.City)
	e.text(buf, PropertyLayout, "state", p.State)
	e.text(buf, PropertyLayout, "zip", p.Zip)
	e.text(buf, PropertyLayout, "phone", p.Phone)
	e.text(buf, PropertyLayout, "email", p.Email)
	e.text(buf, PropertyLayout, "website", p.Website)
	return buf
}

// EncodeTransaction は取引を32バイトのレコードに変換します
// 明細と決済試行は別レコードです
func (e *Encoder) EncodeTransaction(t model.Transaction) []byte {
	buf := make([]byte, TransactionSize)
	binary.LittleEndian.PutUint32(slot(buf, TransactionLayout, "customer_id"), uint32(t.CustomerID))
	binary.LittleEndian.PutUint32(slot(buf, TransactionLayout, "property_id"), uint32(t.PropertyID))
	binary.LittleEndian.PutUint64(slot(buf, TransactionLayout, "timestamp"), uint64(t.Timestamp))
	binary.LittleEndian.PutUint64(slot(buf, TransactionLayout, "amount"), uint64(t.Total))
	return buf
}

// EncodeLine は明細行を128バイトのレコードに変換します
// 金額には単価×数量を書き込みます
func (e *Encoder) EncodeLine(transactionID int64, l model.TransactionLine) []byte {
	buf := make([]byte, TransactionLineSize)
	binary.LittleEndian.PutUint16(slot(buf, TransactionLineLayout, "line_number"), uint16(l.LineNumber))
	binary.LittleEndian.PutUint32(slot(buf, TransactionLineLayout, "transaction_id"), uint32(transactionID))
	e.text(buf, TransactionLineLayout, "description", l.Description)
	binary.LittleEndian.PutUint64(slot(buf, TransactionLineLayout, "amount"), uint64(l.Amount()))
	return buf
}

// EncodeCharge は決済試行を64バイトのレコードに変換します
func (e *Encoder) EncodeCharge(c model.TransactionCharge) []byte {
	buf := make([]byte, TransactionChargeSize)
	binary.LittleEndian.PutUint32(slot(buf, TransactionChargeLayout, "transaction_id"), uint32(c.TransactionID))
	binary.LittleEndian.PutUint64(slot(buf, TransactionChargeLayout, "timestamp"), uint64(c.Timestamp))
	binary.LittleEndian.PutUint64(slot(buf, TransactionChargeLayout, "amount"), uint64(c.Amount))
	e.text(buf, TransactionChargeLayout, "payment_method", c.PaymentMethod)
	slot(buf, TransactionChargeLayout, "result")[0] = byte(c.Result)
	return buf
}

func checkSize(l Layout, b []byte) error {
	if len(b) != l.Size {
		return fmt.Errorf("%s record must be %d bytes (got %d)", l.Name, l.Size, len(b))
	}
	return nil
}

// DecodeCustomer はレコードから顧客を復元します
// IDはレコードに含まれないため0のままです
func DecodeCustomer(b []byte) (model.Customer, error) {
	if err := checkSize(CustomerLayout, b); err != nil {
		return model.Customer{}, err
	}
	archetype := model.Archetype(binary.LittleEndian.Uint32(slot(b, CustomerLayout, "archetype")))
	if archetype < model.ArchetypeRareLeisure || archetype > model.ArchetypeRoadWarrior {
		return model.Customer{}, fmt.Errorf("invalid archetype tag %d", uint32(archetype))
	}
	return model.Customer{
		FirstName: getText(slot(b, CustomerLayout, "first_name")),
		LastName:  getText(slot(b, CustomerLayout, "last_name")),
		Street:    getText(slot(b, CustomerLayout, "street")),
		City:      getText(slot(b, CustomerLayout, "city")),
		State:     getText(slot(b, CustomerLayout, "state")),
		Zip:       getText(slot(b, CustomerLayout, "zip")),
		Phone:     getText(slot(b, CustomerLayout, "phone")),
		Email:     getText(slot(b, CustomerLayout, "email")),
		Archetype: archetype,
	}, nil
}

// DecodeProperty はレコードから施設を復元します
// 部屋在庫と料金はレコードに含まれません
func DecodeProperty(b []byte) (model.Property, error) {
	if err := checkSize(PropertyLayout, b); err != nil {
		return model.Property{}, err
	}
	pt := model.PropertyType(binary.LittleEndian.Uint32(slot(b, PropertyLayout, "type")))
	if pt < model.PropertyTypeMotel || pt > model.PropertyTypeResort {
		return model.Property{}, fmt.Errorf("invalid property type tag %d", uint32(pt))
	}
	return model.Property{
		Type:    pt,
		Name:    getText(slot(b, PropertyLayout, "name")),
		Street:  getText(slot(b, PropertyLayout, "street")),
		City:    getText(slot(b, PropertyLayout, "city")),
		State:   getText(slot(b, PropertyLayout, "state")),
		Zip:     getText(slot(b, PropertyLayout, "zip")),
		Phone:   getText(slot(b, PropertyLayout, "phone")),
		Email:   getText(slot(b, PropertyLayout, "email")),
		Website: getText(slot(b, PropertyLayout, "website")),
	}, nil
}

// DecodeTransaction はレコードから取引のヘッダを復元します
func DecodeTransaction(b []byte) (model.Transaction, error) {
	if err := checkSize(TransactionLayout, b); err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		CustomerID: int64(binary.LittleEndian.Uint32(slot(b, TransactionLayout, "customer_id"))),
		PropertyID: int64(binary.LittleEndian.Uint32(slot(b, TransactionLayout, "property_id"))),
		Timestamp:  model.Timestamp(binary.LittleEndian.Uint64(slot(b, TransactionLayout, "timestamp"))),
		Total:      model.Millicents(binary.LittleEndian.Uint64(slot(b, TransactionLayout, "amount"))),
	}, nil
}

// DecodeLine はレコードから明細行と取引IDを復元します
// レコードは金額のみを持つため、数量は1として復元します
func DecodeLine(b []byte) (int64, model.TransactionLine, error) {
	if err := checkSize(TransactionLineLayout, b); err != nil {
		return 0, model.TransactionLine{}, err
	}
	transactionID := int64(binary.LittleEndian.Uint32(slot(b, TransactionLineLayout, "transaction_id")))
	return transactionID, model.TransactionLine{
		LineNumber:  int(binary.LittleEndian.Uint16(slot(b, TransactionLineLayout, "line_number"))),
		Description: getText(slot(b, TransactionLineLayout, "description")),
		UnitAmount:  model.Millicents(binary.LittleEndian.Uint64(slot(b, TransactionLineLayout, "amount"))),
		Quantity:    1,
	}, nil
}

// DecodeCharge はレコードから決済試行を復元します
func DecodeCharge(b []byte) (model.TransactionCharge, error) {
	if err := checkSize(TransactionChargeLayout, b); err != nil {
		return model.TransactionCharge{}, err
	}
	result := model.ChargeResult(slot(b, TransactionChargeLayout, "result")[0])
	if result > model.ChargeOtherError {
		return model.TransactionCharge{}, fmt.Errorf("invalid charge result code %d", uint8(result))
	}
	return model.TransactionCharge{
		TransactionID: int64(binary.LittleEndian.Uint32(slot(b, TransactionChargeLayout, "transaction_id"))),
		Timestamp:     model.Timestamp(binary.LittleEndian.Uint64(slot(b, TransactionChargeLayout, "timestamp"))),
		Amount:        model.Millicents(binary.LittleEndian.Uint64(slot(b, TransactionChargeLayout, "amount"))),
		PaymentMethod: getText(slot(b, TransactionChargeLayout, "payment_method")),
		Result:        result,
	}, nil
}
