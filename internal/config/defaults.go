package config

import (
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// 既定値
// ジョブファイルで省略された項目はここで定義した値を使用します
const (
	DefaultSeed              uint64 = 1
	DefaultRampUpDays               = 45
	DefaultTargetOccupancy          = 0.3
	DefaultTargetOccupancySD        = 0.05
	DefaultMaxAttempts              = 3
	DefaultMinGapDays               = 14

	DefaultResortRatio = 0.05
	DefaultHotelRatio  = 0.55
	DefaultMotelRatio  = 0.40

	// MinPropertyCount は施設数の下限です
	MinPropertyCount = 10
	// OccupancyCeiling は設定にかかわらず適用される稼働率の上限です
	OccupancyCeiling = 0.5
	// RatioTolerance は施設種別の比率の合計に許容する誤差です
	RatioTolerance = 0.01
)

// DefaultPaymentOutcomes は決済結果の既定の発生確率です
var DefaultPaymentOutcomes = map[model.ChargeResult]float64{
	model.ChargeSuccess:             0.95,
	model.ChargeInsufficientFunds:   0.02,
	model.ChargeCardExpired:         0.01,
	model.ChargeInvalidCardNumber:   0.005,
	model.ChargePaymentNetworkError: 0.01,
	model.ChargeFraudSuspected:      0.003,
	model.ChargeOtherError:          0.002,
}

type defaultArchetype struct {
	percentage      float64
	selectionWeight float64
	minGapDays      int
	stays           map[string]float64
}

// defaultArchetypes は顧客類型ごとの既定の構成比と滞在日数分布です
// 滞在日数のキーは "n" (n泊) または "a-b" (a泊以上b泊未満) です
var defaultArchetypes = map[model.Archetype]defaultArchetype{
	model.ArchetypeRareLeisure: {
		percentage:      0.35,
		selectionWeight: 0.5,
		minGapDays:      90,
		stays:           map[string]float64{"1": 0.2, "2": 0.3, "3-5": 0.35, "5-8": 0.15},
	},
	model.ArchetypeRegularLeisure: {
		percentage:      0.25,
		selectionWeight: 1.0,
		minGapDays:      30,
		stays:           map[string]float64{"1": 0.25, "2": 0.35, "3-5": 0.3, "5-8": 0.1},
	},
	model.ArchetypeBusiness: {
		percentage:      0.2,
		selectionWeight: 1.5,
		minGapDays:      DefaultMinGapDays,
		stays:           map[string]float64{"1": 0.4, "2": 0.35, "3-5": 0.25},
	},
	model.ArchetypeCorporate: {
		percentage:      0.12,
		selectionWeight: 2.0,
		minGapDays:      10,
		stays:           map[string]float64{"1": 0.3, "2": 0.3, "3-5": 0.3, "5-10": 0.1},
	},
	model.ArchetypeRoadWarrior: {
		percentage:      0.08,
		selectionWeight: 3.0,
		minGapDays:      3,
		stays:           map[string]float64{"1": 0.5, "2": 0.3, "3-5": 0.2},
	},
}

// defaultRoomTypes は部屋タイプごとの料金倍率です
var defaultRoomTypes = map[string]RoomType{
	"SK": {Code: "SK", Name: "Standard King", PriceMultiplier: Range{Mean: 1.0, SD: 0.05, Min: 0.5}},
	"DQ": {Code: "DQ", Name: "Double Queen", PriceMultiplier: Range{Mean: 1.1, SD: 0.05, Min: 0.5}},
	"KS": {Code: "KS", Name: "King Suite", PriceMultiplier: Range{Mean: 1.6, SD: 0.1, Min: 0.5}},
	"ST": {Code: "ST", Name: "Suite", PriceMultiplier: Range{Mean: 2.2, SD: 0.2, Min: 0.5}},
	"PH": {Code: "PH", Name: "Penthouse", PriceMultiplier: Range{Mean: 4.0, SD: 0.5, Min: 0.5}},
}

// defaultPropertyTypes は施設種別ごとの部屋数・料金の分布です
var defaultPropertyTypes = map[model.PropertyType]PropertyTypeParams{
	model.PropertyTypeMotel: {
		TotalRooms: Range{Mean: 40, SD: 15, Min: 10, Max: 100},
		BasePrice:  Range{Mean: 65, SD: 10, Min: 40},
		Distribution: map[string]Range{
			"SK": {Mean: 0.45, SD: 0.1, Min: 0, Max: 1},
			"DQ": {Mean: 0.55, SD: 0.1, Min: 0, Max: 1},
		},
	},
	model.PropertyTypeHotel: {
		TotalRooms: Range{Mean: 180, SD: 60, Min: 50, Max: 400},
		BasePrice:  Range{Mean: 110, SD: 20, Min: 40},
		Distribution: map[string]Range{
			"SK": {Mean: 0.35, SD: 0.1, Min: 0, Max: 1},
			"DQ": {Mean: 0.45, SD: 0.1, Min: 0, Max: 1},
			"KS": {Mean: 0.15, SD: 0.05, Min: 0, Max: 1},
			"ST": {Mean: 0.05, SD: 0.02, Min: 0, Max: 1},
		},
	},
	model.PropertyTypeResort: {
		TotalRooms: Range{Mean: 600, SD: 200, Min: 200, Max: 1500},
		BasePrice:  Range{Mean: 180, SD: 30, Min: 40},
		Distribution: map[string]Range{
			"SK": {Mean: 0.3, SD: 0.1, Min: 0, Max: 1},
			"DQ": {Mean: 0.35, SD: 0.1, Min: 0, Max: 1},
			"KS": {Mean: 0.2, SD: 0.05, Min: 0, Max: 1},
			"ST": {Mean: 0.1, SD: 0.03, Min: 0, Max: 1},
			"PH": {Mean: 0.05, SD: 0.02, Min: 0, Max: 1},
		},
	},
}

// defaultTouristRegions はリゾートを配置する観光地です
var defaultTouristRegions = []TouristRegion{
	{
		Name: "Orlando", State: "FL", City: "Orlando", Zip: "32830",
		Rooms:      Range{Mean: 1500, SD: 500, Min: 500, Max: 4000},
		Multiplier: Range{Mean: 1.4, SD: 0.15, Min: 0.5},
		ResortFee:  ResortFee{Mean: 35, SD: 5, Probability: 0.9},
	},
	{
		Name: "Las Vegas Strip", State: "NV", City: "Las Vegas", Zip: "89109",
		Rooms:      Range{Mean: 3000, SD: 800, Min: 1000, Max: 6000},
		Multiplier: Range{Mean: 1.3, SD: 0.2, Min: 0.5},
		ResortFee:  ResortFee{Mean: 45, SD: 8, Probability: 0.95},
	},
	{
		Name: "Maui", State: "HI", City: "Lahaina", Zip: "96761",
		Rooms:      Range{Mean: 700, SD: 200, Min: 200, Max: 1500},
		Multiplier: Range{Mean: 2.2, SD: 0.25, Min: 0.5},
		ResortFee:  ResortFee{Mean: 40, SD: 5, Probability: 0.85},
	},
	{
		Name: "Aspen", State: "CO", City: "Aspen", Zip: "81611",
		Rooms:      Range{Mean: 300, SD: 100, Min: 100, Max: 800},
		Multiplier: Range{Mean: 2.5, SD: 0.3, Min: 0.5},
		ResortFee:  ResortFee{Mean: 30, SD: 5, Probability: 0.7},
	},
	{
		Name: "Myrtle Beach", State: "SC", City: "Myrtle Beach", Zip: "29577",
		Rooms:      Range{Mean: 500, SD: 150, Min: 150, Max: 1200},
		Multiplier: Range{Mean: 1.2, SD: 0.1, Min: 0.5},
		ResortFee:  ResortFee{Mean: 20, SD: 4, Probability: 0.8},
	},
	{
		Name: "Gatlinburg", State: "TN", City: "Gatlinburg", Zip: "37738",
		Rooms:      Range{Mean: 350, SD: 100, Min: 100, Max: 800},
		Multiplier: Range{Mean: 1.15, SD: 0.1, Min: 0.5},
		ResortFee:  ResortFee{Mean: 18, SD: 4, Probability: 0.6},
	},
	{
		Name: "Lake Tahoe", State: "CA", City: "South Lake Tahoe", Zip: "96150",
		Rooms:      Range{Mean: 400, SD: 120, Min: 100, Max: 1000},
		Multiplier: Range{Mean: 1.8, SD: 0.2, Min: 0.5},
		ResortFee:  ResortFee{Mean: 30, SD: 5, Probability: 0.75},
	},
	{
		Name: "Florida Keys", State: "FL", City: "Key West", Zip: "33040",
		Rooms:      Range{Mean: 300, SD: 80, Min: 100, Max: 700},
		Multiplier: Range{Mean: 2.0, SD: 0.2, Min: 0.5},
		ResortFee:  ResortFee{Mean: 35, SD: 5, Probability: 0.85},
	},
	{
		Name: "Sedona", State: "AZ", City: "Sedona", Zip: "86336",
		Rooms:      Range{Mean: 250, SD: 80, Min: 80, Max: 600},
		Multiplier: Range{Mean: 1.7, SD: 0.2, Min: 0.5},
		ResortFee:  ResortFee{Mean: 28, SD: 5, Probability: 0.7},
	},
	{
		Name: "Cape Cod", State: "MA", City: "Hyannis", Zip: "02601",
		Rooms:      Range{Mean: 250, SD: 80, Min: 80, Max: 600},
		Multiplier: Range{Mean: 1.6, SD: 0.15, Min: 0.5},
		ResortFee:  ResortFee{Mean: 25, SD: 5, Probability: 0.65},
	},
}
