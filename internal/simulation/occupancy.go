package simulation

import (
	"math"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
	"github.com/uma-arai/hotelgen-batch/internal/config"
)

// TargetOccupancy は day 日目 (0始まり) の目標稼働率を抽選します
// 立ち上がり期間は目標値と揺らぎを日数に比例して縮め、いずれの期間も [0, 0.5] に収めます
func TargetOccupancy(params *config.Params, day int) float64 {
	base := params.TargetOccupancy
	sd := params.TargetOccupancySD
	if day < params.RampUpDays {
		f := float64(day) / float64(params.RampUpDays)
		base *= f
		sd *= f
	}
	r := rng.New(params.Seed, rng.DomainOccupancy, uint64(day))
	return rng.BoundedNormal(r, base, sd, 0, config.OccupancyCeiling)
}

// desiredRooms は稼働率 target での施設の目標使用部屋数です
// 丸めで上限を超えないよう、部屋数の半分 (切り捨て) で頭打ちにします
func desiredRooms(target float64, rooms int) int {
	ceiling := int(math.Floor(config.OccupancyCeiling * float64(rooms)))
	return min(int(math.Round(target*float64(rooms))), ceiling)
}
