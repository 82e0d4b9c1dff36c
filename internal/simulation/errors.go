package simulation

import (
	"fmt"
)

// ShortfallError は予約可能な顧客が足りず、目標の部屋数を埋められなかったことを表します
// 処理は継続し、ログと日次レポートにのみ記録します
type ShortfallError struct {
	Day        int
	PropertyID int64
	Wanted     int
	Missing    int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("day %d: property %d short-filled by %d of %d rooms", e.Day, e.PropertyID, e.Missing, e.Wanted)
}

// InvariantError は占有状態の不整合です
// データではなくエンジンの不具合を意味するため、実行を中断します
type InvariantError struct {
	Day        int
	PropertyID int64
	RoomType   string
	CustomerID int64
	Reason     string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated on day %d (property=%d room_type=%q customer=%d): %s",
		e.Day, e.PropertyID, e.RoomType, e.CustomerID, e.Reason)
}
