package model

import (
	"fmt"
	"slices"
	"strings"
)

// PropertyType は施設の種別を表します
type PropertyType uint32

const (
	// PropertyTypeMotel はモーテルを表します
	PropertyTypeMotel PropertyType = iota + 1
	// PropertyTypeHotel はホテルを表します
	PropertyTypeHotel
	// PropertyTypeResort はリゾートを表します
	PropertyTypeResort
)

// PropertyTypes は全種別を定義順に返します
var PropertyTypes = []PropertyType{PropertyTypeMotel, PropertyTypeHotel, PropertyTypeResort}

func (t PropertyType) String() string {
	switch t {
	case PropertyTypeMotel:
		return "Motel"
	case PropertyTypeHotel:
		return "Hotel"
	case PropertyTypeResort:
		return "Resort"
	default:
		return fmt.Sprintf("PropertyType(%d)", uint32(t))
	}
}

// Key はジョブ設定で使われる小文字の名前を返します
func (t PropertyType) Key() string {
	return strings.ToLower(t.String())
}

// ParsePropertyType は名前から種別を解決します (大文字小文字は区別しません)
func ParsePropertyType(s string) (PropertyType, error) {
	for _, t := range PropertyTypes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown property type %q", s)
}

// RoomInfo は部屋タイプごとの在庫数と1泊料金です
type RoomInfo struct {
	Count int        `json:"count"`
	Price Millicents `json:"price"`
}

// Property は施設のドメインモデルです
// フェーズ1で生成された後は、永続化時のID付与を除いて変更されません
type Property struct {
	ID            int64               `json:"id"`
	Type          PropertyType        `json:"type"`
	Name          string              `json:"name"`
	Street        string              `json:"street"`
	City          string              `json:"city"`
	State         string              `json:"state"`
	Zip           string              `json:"zip"`
	Phone         string              `json:"phone"`
	Email         string              `json:"email"`
	Website       string              `json:"website"`
	TouristRegion string              `json:"tourist_region,omitempty"`
	Rooms         map[string]RoomInfo `json:"rooms"`
	BasePrice     Millicents          `json:"base_price"`
	ResortFee     Millicents          `json:"resort_fee"`
}

// RoomCodes は部屋タイプコードをソート済みで返します
// マップの反復順序に依存しないよう、部屋タイプを走査する処理は必ずこれを使います
func (p Property) RoomCodes() []string {
	codes := make([]string, 0, len(p.Rooms))
	for code := range p.Rooms {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// TotalRooms は全部屋タイプの在庫合計を返します
func (p Property) TotalRooms() int {
	total := 0
	for _, info := range p.Rooms {
		total += info.Count
	}
	return total
}
