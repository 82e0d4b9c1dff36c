package config

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/uma-arai/hotelgen-batch/internal/model"
)

const dateLayout = "2006-01-02"

// BillingMode は取引を発行するタイミングです
type BillingMode string

const (
	// BillingAtCheckout はチェックアウト時に請求します
	BillingAtCheckout BillingMode = "checkout"
	// BillingAtCheckin はチェックイン時に請求します
	BillingAtCheckin BillingMode = "checkin"
)

// Range は上下限付き正規分布のパラメータです
// Max が0以下の場合は上限なしとして扱います
type Range struct {
	Mean float64 `yaml:"mean" json:"mean"`
	SD   float64 `yaml:"sd" json:"sd"`
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
}

// Bounds は下限と上限を返します
func (r Range) Bounds() (float64, float64) {
	if r.Max <= 0 {
		return r.Min, math.Inf(1)
	}
	return r.Min, r.Max
}

// Distribution は件数を決める正規分布です
type Distribution struct {
	Mean float64
	SD   float64
}

// Ratios は施設種別の構成比です
type Ratios struct {
	Resort float64
	Hotel  float64
	Motel  float64
}

// StayBucket は滞在日数の区間と重みです (Max は含みません)
type StayBucket struct {
	Min    int
	Max    int
	Weight float64
}

// ArchetypeParams は顧客類型ごとの解決済みパラメータです
type ArchetypeParams struct {
	Archetype       model.Archetype
	Percentage      float64
	SelectionWeight float64
	MinGapDays      int
	Stays           []StayBucket
}

// PaymentOutcome は決済結果と発生確率の組です
type PaymentOutcome struct {
	Result     model.ChargeResult
	Likelihood float64
}

// RoomType は部屋タイプの定義です
type RoomType struct {
	Code            string
	Name            string
	PriceMultiplier Range
}

// PropertyTypeParams は施設種別ごとの部屋数・料金分布です
type PropertyTypeParams struct {
	TotalRooms   Range
	BasePrice    Range
	Distribution map[string]Range
}

// ResortFee はリゾートフィーの分布と課金確率です
type ResortFee struct {
	Mean        float64
	SD          float64
	Probability float64
}

// TouristRegion はリゾートを配置する観光地です
type TouristRegion struct {
	Name       string
	State      string
	City       string
	Zip        string
	Rooms      Range
	Multiplier Range
	ResortFee  ResortFee
}

// Params は検証・正規化済みの生成パラメータです
type Params struct {
	Seed              uint64
	Start             time.Time
	End               time.Time
	Days              int
	Hotels            Distribution
	Ratios            Ratios
	Customers         Distribution
	StateSD           float64
	RampUpDays        int
	TargetOccupancy   float64
	TargetOccupancySD float64
	Billing           BillingMode
	MaxAttempts       int
	PaymentOutcomes   []PaymentOutcome
	Archetypes        []ArchetypeParams
	PropertyTypes     map[model.PropertyType]PropertyTypeParams
	RoomTypes         map[string]RoomType
	TouristRegions    []TouristRegion
}

// Date は0始まりの日番号に対応する日付を返します
func (p *Params) Date(day int) time.Time {
	return p.Start.AddDate(0, 0, day)
}

// Archetype は類型のパラメータを返します
func (p *Params) Archetype(a model.Archetype) ArchetypeParams {
	for _, ap := range p.Archetypes {
		if ap.Archetype == a {
			return ap
		}
	}
	return ArchetypeParams{Archetype: a, MinGapDays: DefaultMinGapDays}
}

// TypeCounts は施設数 n を構成比で種別ごとに分配します
// 比率は合計で正規化してからホテルとモーテルを切り捨て、残りをすべてリゾートに割り当てます
// 合計は常に n になります
func (p *Params) TypeCounts(n int) map[model.PropertyType]int {
	sum := p.Ratios.Resort + p.Ratios.Hotel + p.Ratios.Motel
	if sum <= 0 || n <= 0 {
		return map[model.PropertyType]int{
			model.PropertyTypeResort: max(n, 0),
			model.PropertyTypeHotel:  0,
			model.PropertyTypeMotel:  0,
		}
	}
	share := func(ratio float64) int {
		return int(math.Floor(ratio/sum*float64(n) + 1e-9))
	}
	hotel := share(p.Ratios.Hotel)
	motel := min(share(p.Ratios.Motel), n-hotel)
	return map[model.PropertyType]int{
		model.PropertyTypeResort: n - hotel - motel,
		model.PropertyTypeHotel:  hotel,
		model.PropertyTypeMotel:  motel,
	}
}

// Resolve はジョブを検証し、既定値を補った Params を返します
// 問題はすべて1つの *ValidationError にまとめて返します
func Resolve(job *Job) (*Params, error) {
	verr := &ValidationError{}
	if job == nil {
		verr.addf("job is required")
		return nil, verr
	}
	g := job.Generation

	p := &Params{
		Seed:              DefaultSeed,
		Hotels:            Distribution{Mean: g.Hotels.Count, SD: g.Hotels.SD},
		Customers:         Distribution{Mean: g.Customers.Count, SD: g.Customers.SD},
		StateSD:           g.Customers.StateSD,
		RampUpDays:        derefOr(g.RampUpDays, DefaultRampUpDays),
		TargetOccupancy:   derefOr(g.TargetOccupancy, DefaultTargetOccupancy),
		TargetOccupancySD: derefOr(g.TargetOccupancySD, DefaultTargetOccupancySD),
		MaxAttempts:       derefOr(g.Payment.MaxAttempts, DefaultMaxAttempts),
		RoomTypes:         defaultRoomTypes,
		TouristRegions:    defaultTouristRegions,
	}
	if g.Seed != nil {
		p.Seed = *g.Seed
	}

	resolveDates(verr, p, g.Dates)

	if p.Hotels.Mean <= 0 {
		verr.addf("hotels.count must be > 0 (got %v)", p.Hotels.Mean)
	}
	if p.Hotels.SD < 0 {
		verr.addf("hotels.sd must be >= 0 (got %v)", p.Hotels.SD)
	}
	if p.Customers.Mean <= 0 {
		verr.addf("customers.count must be > 0 (got %v)", p.Customers.Mean)
	}
	if p.Customers.SD < 0 {
		verr.addf("customers.sd must be >= 0 (got %v)", p.Customers.SD)
	}
	if p.StateSD < 0 {
		verr.addf("customers.state_sd must be >= 0 (got %v)", p.StateSD)
	}
	if p.RampUpDays < 0 {
		verr.addf("ramp_up_days must be >= 0 (got %d)", p.RampUpDays)
	}
	if p.TargetOccupancy < 0 || p.TargetOccupancy > 1 {
		verr.addf("target_occupancy must be within [0, 1] (got %v)", p.TargetOccupancy)
	}
	if p.TargetOccupancySD < 0 {
		verr.addf("target_occupancy_sd must be >= 0 (got %v)", p.TargetOccupancySD)
	}

	switch BillingMode(strings.ToLower(g.Billing)) {
	case "", BillingAtCheckout:
		p.Billing = BillingAtCheckout
	case BillingAtCheckin:
		p.Billing = BillingAtCheckin
	default:
		verr.addf("billing must be %q or %q (got %q)", BillingAtCheckout, BillingAtCheckin, g.Billing)
	}

	p.Ratios = resolveRatios(verr, g.Ratios)
	p.PaymentOutcomes = resolvePayment(verr, g.Payment)
	if p.MaxAttempts < 1 {
		verr.addf("payment.max_attempts must be >= 1 (got %d)", p.MaxAttempts)
	}
	p.Archetypes = resolveArchetypes(verr, g.Archetypes)
	p.PropertyTypes = resolvePropertyTypes(verr, g.PropertyTypes)

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

func resolveDates(verr *ValidationError, p *Params, dates DateRange) {
	start, err := time.ParseInLocation(dateLayout, dates.Start, time.UTC)
	if err != nil {
		verr.addf("dates.start must be YYYY-MM-DD (got %q)", dates.Start)
	}
	end, err2 := time.ParseInLocation(dateLayout, dates.End, time.UTC)
	if err2 != nil {
		verr.addf("dates.end must be YYYY-MM-DD (got %q)", dates.End)
	}
	if err != nil || err2 != nil {
		return
	}
	if end.Before(start) {
		verr.addf("dates.end (%s) must not be before dates.start (%s)", dates.End, dates.Start)
		return
	}
	p.Start = start
	p.End = end
	p.Days = int(end.Sub(start).Hours()/24) + 1
}

func resolveRatios(verr *ValidationError, spec RatioSpec) Ratios {
	r := Ratios{
		Resort: derefOr(spec.Resorts, DefaultResortRatio),
		Hotel:  derefOr(spec.Hotels, DefaultHotelRatio),
		Motel:  derefOr(spec.Motels, DefaultMotelRatio),
	}
	checks := []struct {
		name  string
		value float64
	}{
		{"resorts", r.Resort},
		{"hotels", r.Hotel},
		{"motels", r.Motel},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > 1 {
			verr.addf("ratios.%s must be within [0, 1] (got %v)", c.name, c.value)
		}
	}
	if sum := r.Resort + r.Hotel + r.Motel; math.Abs(sum-1) > RatioTolerance {
		verr.addf("ratios must sum to 1.0 (got %.4f)", sum)
	}
	return r
}

func resolvePayment(verr *ValidationError, spec PaymentSpec) []PaymentOutcome {
	likelihoods := make(map[model.ChargeResult]float64, len(DefaultPaymentOutcomes))
	if len(spec.Outcomes) == 0 {
		for result, l := range DefaultPaymentOutcomes {
			likelihoods[result] = l
		}
	}
	for name, l := range spec.Outcomes {
		result, err := model.ParseChargeResult(name)
		if err != nil {
			verr.addf("payment.outcomes: %v", err)
			continue
		}
		if l < 0 {
			verr.addf("payment.outcomes.%s must be >= 0 (got %v)", name, l)
		}
		likelihoods[result] = l
	}

	total := 0.0
	outcomes := make([]PaymentOutcome, 0, len(model.ChargeResults))
	for _, result := range model.ChargeResults {
		l := likelihoods[result]
		total += math.Max(l, 0)
		outcomes = append(outcomes, PaymentOutcome{Result: result, Likelihood: l})
	}
	if total <= 0 {
		verr.addf("payment.outcomes must have a positive total likelihood")
	}
	return outcomes
}

func resolveArchetypes(verr *ValidationError, specs map[string]ArchetypeSpec) []ArchetypeParams {
	for name := range specs {
		if _, err := model.ParseArchetype(name); err != nil {
			verr.addf("archetypes: %v", err)
		}
	}

	total := 0.0
	result := make([]ArchetypeParams, 0, len(model.Archetypes))
	for _, a := range model.Archetypes {
		def := defaultArchetypes[a]
		spec := specs[a.String()]
		ap := ArchetypeParams{
			Archetype:       a,
			Percentage:      derefOr(spec.Percentage, def.percentage),
			SelectionWeight: derefOr(spec.SelectionWeight, def.selectionWeight),
			MinGapDays:      derefOr(spec.MinGapDays, def.minGapDays),
		}
		if ap.Percentage < 0 {
			verr.addf("archetypes.%s.percentage must be >= 0 (got %v)", a, ap.Percentage)
		}
		if ap.SelectionWeight < 0 {
			verr.addf("archetypes.%s.selection_weight must be >= 0 (got %v)", a, ap.SelectionWeight)
		}
		if ap.MinGapDays < 0 {
			verr.addf("archetypes.%s.min_gap_days must be >= 0 (got %d)", a, ap.MinGapDays)
		}

		weights := def.stays
		if len(spec.StayDurationWeights) > 0 {
			weights = spec.StayDurationWeights
		}
		stays, err := ParseStayBuckets(weights)
		if err != nil {
			verr.addf("archetypes.%s.stay_duration_weights: %v", a, err)
		}
		ap.Stays = stays

		total += math.Max(ap.Percentage, 0)
		result = append(result, ap)
	}
	if total <= 0 {
		verr.addf("archetypes must have a positive total percentage")
	}
	return result
}

func resolvePropertyTypes(verr *ValidationError, specs map[string]PropertyTypeSpec) map[model.PropertyType]PropertyTypeParams {
	result := make(map[model.PropertyType]PropertyTypeParams, len(defaultPropertyTypes))
	for pt, def := range defaultPropertyTypes {
		result[pt] = def
	}

	for name, spec := range specs {
		pt, err := model.ParsePropertyType(name)
		if err != nil {
			verr.addf("property_types: %v", err)
			continue
		}
		params := result[pt]
		if spec.TotalRooms != nil {
			params.TotalRooms = *spec.TotalRooms
		}
		if spec.BasePrice != nil {
			params.BasePrice = *spec.BasePrice
		}
		if len(spec.Distribution) > 0 {
			for code := range spec.Distribution {
				if _, ok := defaultRoomTypes[code]; !ok {
					verr.addf("property_types.%s.distribution: unknown room type %q", name, code)
				}
			}
			params.Distribution = spec.Distribution
		}
		if lo, hi := params.TotalRooms.Bounds(); lo < 1 || hi < lo {
			verr.addf("property_types.%s.total_rooms must have 1 <= min <= max", name)
		}
		result[pt] = params
	}
	return result
}

// ParseStayBuckets は滞在日数の重み表を解釈します
// キーは "n" または "a-b" (b は含まない) で、結果は下限の昇順に並びます
func ParseStayBuckets(weights map[string]float64) ([]StayBucket, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("at least one bucket is required")
	}

	buckets := make([]StayBucket, 0, len(weights))
	total := 0.0
	for key, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weight for %q must be >= 0", key)
		}
		b := StayBucket{Weight: w}
		if lo, hi, ok := strings.Cut(key, "-"); ok {
			minNights, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid bucket %q", key)
			}
			maxNights, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid bucket %q", key)
			}
			b.Min, b.Max = minNights, maxNights
		} else {
			n, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				return nil, fmt.Errorf("invalid bucket %q", key)
			}
			b.Min, b.Max = n, n+1
		}
		if b.Min < 1 || b.Max <= b.Min {
			return nil, fmt.Errorf("bucket %q must satisfy 1 <= min < max", key)
		}
		total += w
		buckets = append(buckets, b)
	}
	if total <= 0 {
		return nil, fmt.Errorf("weights must have a positive total")
	}

	slices.SortFunc(buckets, func(a, b StayBucket) int {
		if a.Min != b.Min {
			return a.Min - b.Min
		}
		return a.Max - b.Max
	})
	return buckets, nil
}

func derefOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
