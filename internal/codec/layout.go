package codec

import (
	"fmt"
)

// レコードサイズ (バイト)
const (
	CustomerSize          = 256
	PropertySize          = 512
	TransactionSize       = 32
	TransactionLineSize   = 128
	TransactionChargeSize = 64
)

// Field はレコード内のフィールド位置です
type Field struct {
	Name   string
	Offset int
	Size   int
}

// End はフィールド直後のオフセットを返します
func (f Field) End() int {
	return f.Offset + f.Size
}

// Layout は固定長レコードのフィールド配置です
type Layout struct {
	Name   string
	Size   int
	Fields []Field
}

// Field は名前でフィールドを取得します
// 定義済みのレイアウトに存在しない名前はプログラムの誤りなので panic します
func (l Layout) Field(name string) Field {
	for _, f := range l.Fields {
		if f.Name == name {
			return f
		}
	}
	panic(fmt.Sprintf("codec: %s has no field %q", l.Name, name))
}

func newLayout(name string, size int, fields ...Field) Layout {
	offset := 0
	for i := range fields {
		fields[i].Offset = offset
		offset += fields[i].Size
	}
	return Layout{Name: name, Size: size, Fields: fields}
}

// 各レコードのレイアウト
// オフセットは定義順にフィールドサイズを積み上げて求めます
var (
	CustomerLayout = newLayout("customer", CustomerSize,
		Field{Name: "first_name", Size: 32},
		Field{Name: "last_name", Size: 32},
		Field{Name: "street", Size: 64},
		Field{Name: "city", Size: 24},
		Field{Name: "state", Size: 2},
		Field{Name: "zip", Size: 10},
		Field{Name: "phone", Size: 16},
		Field{Name: "email", Size: 64},
		Field{Name: "archetype", Size: 4},
		Field{Name: "padding", Size: 8},
	)

	PropertyLayout = newLayout("property", PropertySize,
		Field{Name: "type", Size: 4},
		Field{Name: "name", Size: 64},
		Field{Name: "street", Size: 64},
		Field{Name: "city", Size: 24},
		Field{Name: "state", Size: 2},
		Field{Name: "zip", Size: 10},
		Field{Name: "phone", Size: 16},
		Field{Name: "email", Size: 64},
		Field{Name: "website", Size: 64},
		Field{Name: "padding", Size: 200},
	)

	TransactionLayout = newLayout("transaction", TransactionSize,
		Field{Name: "customer_id", Size: 4},
		Field{Name: "property_id", Size: 4},
		Field{Name: "timestamp", Size: 8},
		Field{Name: "amount", Size: 8},
		Field{Name: "padding", Size: 8},
	)

	TransactionLineLayout = newLayout("transaction_line", TransactionLineSize,
		Field{Name: "line_number", Size: 2},
		Field{Name: "transaction_id", Size: 4},
		Field{Name: "description", Size: 64},
		Field{Name: "amount", Size: 8},
		Field{Name: "padding", Size: 50},
	)

	TransactionChargeLayout = newLayout("transaction_charge", TransactionChargeSize,
		Field{Name: "transaction_id", Size: 4},
		Field{Name: "timestamp", Size: 8},
		Field{Name: "amount", Size: 8},
		Field{Name: "payment_method", Size: 32},
		Field{Name: "result", Size: 1},
		Field{Name: "padding", Size: 11},
	)
)

// Layouts は全レコードのレイアウトです
var Layouts = []Layout{
	CustomerLayout,
	PropertyLayout,
	TransactionLayout,
	TransactionLineLayout,
	TransactionChargeLayout,
}
