package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// MinCustomerCount は顧客数の下限です
const MinCustomerCount = 1

// chunkSize は1つのワーカーがまとめて生成する件数です
const chunkSize = 512

// Generator は施設と顧客の母集団を生成します
// 各エンティティは (シード, 用途, インデックス) から導いた乱数ストリームだけで生成されるため、
// 結果はワーカー数に依存しません
type Generator struct {
	params  *config.Params
	pools   Pools
	workers int
	logger  *log.Logger
}

// New は新しいGeneratorを作成します
func New(params *config.Params, pools Pools, workers int, logger *log.Logger) *Generator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		params:  params,
		pools:   pools,
		workers: workers,
		logger:  logger,
	}
}

// parallel は 0..n-1 の各インデックスについて fn をワーカー数の上限内で並列に実行します
func (g *Generator) parallel(ctx context.Context, n int, fn func(i int)) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for start := 0; start < n; start += chunkSize {
		if egCtx.Err() != nil {
			break
		}
		end := min(start+chunkSize, n)
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

type propertySlot struct {
	propertyType model.PropertyType
	state        string
	region       *config.TouristRegion
}

// Properties は施設を生成します
// IDは 1 から始まる仮の値で、永続化後に払い出されたIDで置き換えます
func (g *Generator) Properties(ctx context.Context) ([]model.Property, error) {
	r := rng.New(g.params.Seed, rng.DomainPropertyPlan)
	n := max(config.MinPropertyCount, int(math.Floor(rng.Normal(r, g.params.Hotels.Mean, g.params.Hotels.SD))))

	slots := g.planProperties(r, n)
	properties := make([]model.Property, len(slots))
	err := g.parallel(ctx, len(slots), func(i int) {
		properties[i] = g.buildProperty(i, slots[i])
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate properties: %w", err)
	}

	g.logger.Info("properties generated", "count", len(properties), "rooms", totalRooms(properties))
	return properties, nil
}

func (g *Generator) planProperties(r *rand.Rand, n int) []propertySlot {
	counts := g.params.TypeCounts(n)
	slots := make([]propertySlot, 0, n)

	resorts := counts[model.PropertyTypeResort]
	regions := g.params.TouristRegions
	if len(regions) == 0 {
		counts[model.PropertyTypeHotel] += resorts
		resorts = 0
	}
	// 観光地は一巡するまで重複させない
	var order []int
	for i := 0; i < resorts; i++ {
		if len(order) == 0 {
			order = r.Perm(len(regions))
		}
		region := &regions[order[0]]
		order = order[1:]
		slots = append(slots, propertySlot{
			propertyType: model.PropertyTypeResort,
			state:        region.State,
			region:       region,
		})
	}

	for _, pt := range []model.PropertyType{model.PropertyTypeHotel, model.PropertyTypeMotel} {
		c := counts[pt]
		for _, state := range StateDistribution(r, c, 0, c/25) {
			slots = append(slots, propertySlot{propertyType: pt, state: state})
		}
	}

	rng.Shuffle(r, slots)
	return slots
}

func (g *Generator) buildProperty(i int, slot propertySlot) model.Property {
	r := rng.New(g.params.Seed, rng.DomainProperty, uint64(i))
	typeParams := g.params.PropertyTypes[slot.propertyType]

	p := model.Property{
		ID:    int64(i + 1),
		Type:  slot.propertyType,
		State: slot.state,
	}

	// 所在地
	if slot.region != nil {
		p.City = slot.region.City
		p.Zip = slot.region.Zip
		p.TouristRegion = slot.region.Name
	} else if st, ok := LookupState(slot.state); ok {
		city := st.Cities[r.IntN(len(st.Cities))]
		p.City, p.Zip = city.Name, city.Zip
	}
	p.Name, p.Email, p.Website = propertyIdentity(g.pools, r, p.Type, p.City)
	p.Street = street(g.pools, r)
	p.Phone = usPhone(r)

	// 部屋数と部屋タイプの構成
	roomRange := typeParams.TotalRooms
	if slot.region != nil {
		roomRange = slot.region.Rooms
	}
	total := max(1, int(math.Round(sampleRange(r, roomRange))))
	counts := g.roomMix(r, typeParams.Distribution, total)

	// 料金
	base := sampleRange(r, typeParams.BasePrice)
	multiplier := config.Range{Mean: 1}
	if slot.region != nil {
		multiplier = slot.region.Multiplier
	} else if st, ok := LookupState(slot.state); ok {
		multiplier = st.PriceMultiplier
	}
	base *= sampleRange(r, multiplier)
	p.BasePrice = model.Dollars(base)

	p.Rooms = make(map[string]model.RoomInfo, len(counts))
	for _, rc := range counts {
		rt, ok := g.params.RoomTypes[rc.code]
		if !ok {
			rt = config.RoomType{Code: rc.code, PriceMultiplier: config.Range{Mean: 1}}
		}
		price := model.Dollars(base * sampleRange(r, rt.PriceMultiplier))
		if rc.count > 0 {
			p.Rooms[rc.code] = model.RoomInfo{Count: rc.count, Price: price}
		}
	}

	// リゾートフィーはリゾートのみ
	if slot.region != nil && r.Float64() < slot.region.ResortFee.Probability {
		fee := rng.BoundedNormal(r, slot.region.ResortFee.Mean, slot.region.ResortFee.SD, 5, math.Inf(1))
		p.ResortFee = model.Dollars(fee)
	}
	return p
}

type roomCount struct {
	code  string
	count int
}

// roomMix は部屋タイプごとの構成比を抽選し、合計がちょうど total になるよう調整します
func (g *Generator) roomMix(r *rand.Rand, dist map[string]config.Range, total int) []roomCount {
	codes := make([]string, 0, len(dist))
	for code := range dist {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	if len(codes) == 0 {
		return []roomCount{{code: "SK", count: total}}
	}

	counts := make([]roomCount, len(codes))
	sum := 0
	for i, code := range codes {
		share := sampleRange(r, dist[code])
		counts[i] = roomCount{code: code, count: int(math.Round(share * float64(total)))}
		sum += counts[i].count
	}
	for sum < total {
		counts[r.IntN(len(counts))].count++
		sum++
	}
	for sum > total {
		i := r.IntN(len(counts))
		if counts[i].count > 0 {
			counts[i].count--
			sum--
		}
	}
	return counts
}

// Customers は顧客を生成します
// 州と類型の割り当てを先に決めてから、各顧客を独立に生成します
func (g *Generator) Customers(ctx context.Context) ([]model.Customer, error) {
	r := rng.New(g.params.Seed, rng.DomainCustomerPlan)
	n := max(MinCustomerCount, int(math.Floor(rng.Normal(r, g.params.Customers.Mean, g.params.Customers.SD))))

	states := StateDistribution(r, n, g.params.StateSD, n/500)

	weights := make([]float64, len(g.params.Archetypes))
	for i, ap := range g.params.Archetypes {
		weights[i] = ap.Percentage
	}
	archetypes := make([]model.Archetype, 0, n)
	for i, c := range apportion(r, n, weights) {
		for j := 0; j < c; j++ {
			archetypes = append(archetypes, g.params.Archetypes[i].Archetype)
		}
	}

	rng.Shuffle(r, states)
	rng.Shuffle(r, archetypes)

	customers := make([]model.Customer, n)
	err := g.parallel(ctx, n, func(i int) {
		customers[i] = g.buildCustomer(i, states[i], archetypes[i])
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate customers: %w", err)
	}

	g.logger.Info("customers generated", "count", len(customers))
	return customers, nil
}

func (g *Generator) buildCustomer(i int, state string, archetype model.Archetype) model.Customer {
	r := rng.New(g.params.Seed, rng.DomainCustomer, uint64(i))

	c := model.Customer{
		ID:        int64(i + 1),
		FirstName: g.pools.Pick(KindFirstName, r),
		LastName:  g.pools.Pick(KindLastName, r),
		State:     state,
		Archetype: archetype,
	}
	if st, ok := LookupState(state); ok {
		city := st.Cities[r.IntN(len(st.Cities))]
		c.City, c.Zip = city.Name, city.Zip
	}
	c.Street = street(g.pools, r)
	c.Phone = usPhone(r)
	c.Email = customerEmail(g.pools, r, c.FirstName, c.LastName)
	return c
}

func sampleRange(r *rand.Rand, rg config.Range) float64 {
	lo, hi := rg.Bounds()
	return rng.BoundedNormal(r, rg.Mean, rg.SD, lo, hi)
}

func totalRooms(properties []model.Property) int {
	total := 0
	for _, p := range properties {
		total += p.TotalRooms()
	}
	return total
}
