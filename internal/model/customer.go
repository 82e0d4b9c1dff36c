package model

import (
	"fmt"
)

// Archetype は顧客の行動類型です
// 滞在日数と予約頻度を左右します
type Archetype uint32

const (
	ArchetypeRareLeisure Archetype = iota + 1
	ArchetypeRegularLeisure
	ArchetypeBusiness
	ArchetypeCorporate
	ArchetypeRoadWarrior
)

// Archetypes は全類型を定義順に返します
var Archetypes = []Archetype{
	ArchetypeRareLeisure,
	ArchetypeRegularLeisure,
	ArchetypeBusiness,
	ArchetypeCorporate,
	ArchetypeRoadWarrior,
}

var archetypeKeys = map[Archetype]string{
	ArchetypeRareLeisure:    "rare_leisure",
	ArchetypeRegularLeisure: "regular_leisure",
	ArchetypeBusiness:       "business",
	ArchetypeCorporate:      "corporate",
	ArchetypeRoadWarrior:    "road_warrior",
}

func (a Archetype) String() string {
	if key, ok := archetypeKeys[a]; ok {
		return key
	}
	return fmt.Sprintf("Archetype(%d)", uint32(a))
}

// ParseArchetype はジョブ設定のキーから類型を解決します
func ParseArchetype(s string) (Archetype, error) {
	for a, key := range archetypeKeys {
		if key == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown customer archetype %q", s)
}

// Customer は顧客のドメインモデルです
// フェーズ2で生成された後は変更されません
type Customer struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Archetype Archetype `json:"archetype"`
}
