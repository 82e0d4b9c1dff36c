package model

import (
	"github.com/shopspring/decimal"
)

// MillicentsPerDollar は1ドルあたりのミリセント数です
const MillicentsPerDollar = 100_000

// Millicents は金額を表す固定小数点数です (1/100000ドル)
// 金額計算で浮動小数点数は使用しません
type Millicents int64

// Dollars はドル建ての値をセント単位に丸めてからミリセントに変換します
// 設定ファイルの価格は浮動小数点数で与えられるため、変換はここに集約します
func Dollars(amount float64) Millicents {
	return Millicents(decimal.NewFromFloat(amount).Round(2).Shift(5).IntPart())
}

// Decimal はミリセントを decimal.Decimal (ドル建て) に変換します
func (m Millicents) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -5)
}

// Mul は数量を掛けた金額を返します
func (m Millicents) Mul(quantity int) Millicents {
	return m * Millicents(quantity)
}

// ApplyBasisPoints は金額にベーシスポイント (1/10000) の率を掛け、
// 半端を四捨五入したミリセントを返します
func (m Millicents) ApplyBasisPoints(bp int64) Millicents {
	v := int64(m) * bp
	if v >= 0 {
		return Millicents((v + 5_000) / 10_000)
	}
	return Millicents((v - 5_000) / 10_000)
}

// String は "$12.34" 形式の文字列を返します
func (m Millicents) String() string {
	return "$" + m.Decimal().StringFixed(2)
}
