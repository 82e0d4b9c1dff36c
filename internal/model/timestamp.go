package model

import (
	"time"
)

// Timestamp はレコード用の64ビット固定小数点時刻です
// 上位32ビットがUNIX秒、下位32ビットが 1/2^32 秒単位の端数です
type Timestamp uint64

// NewTimestamp は time.Time を Timestamp に変換します
func NewTimestamp(t time.Time) Timestamp {
	secs := uint64(uint32(t.Unix()))
	frac := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	return Timestamp(secs<<32 | frac)
}

// Seconds はUNIX秒部分を返します
func (ts Timestamp) Seconds() uint32 {
	return uint32(ts >> 32)
}

// Fraction は秒未満の端数部分を返します
func (ts Timestamp) Fraction() uint32 {
	return uint32(ts)
}

// Time は Timestamp を UTC の time.Time に変換します
// 端数はナノ秒に切り捨てられます
func (ts Timestamp) Time() time.Time {
	nanos := (uint64(ts.Fraction()) * uint64(time.Second)) >> 32
	return time.Unix(int64(ts.Seconds()), int64(nanos)).UTC()
}
