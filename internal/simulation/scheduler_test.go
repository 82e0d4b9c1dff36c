package simulation

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/generator"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

var discard = log.New(io.Discard)

type jobOption func(*config.Generation)

func testParams(t *testing.T, opts ...jobOption) *config.Params {
	t.Helper()
	seed := uint64(777)
	ramp := 5
	target := 0.3
	g := config.Generation{
		Seed:            &seed,
		Dates:           config.DateRange{Start: "2024-03-01", End: "2024-04-14"},
		Hotels:          config.CountSpec{Count: 10},
		Customers:       config.CustomerSpec{Count: 4000},
		RampUpDays:      &ramp,
		TargetOccupancy: &target,
	}
	for _, opt := range opts {
		opt(&g)
	}
	p, err := config.Resolve(&config.Job{Generation: g})
	require.NoError(t, err)

	// テストを軽くするため部屋数を小さくする
	for pt, tp := range p.PropertyTypes {
		tp.TotalRooms = config.Range{Mean: 30, SD: 10, Min: 5, Max: 60}
		p.PropertyTypes[pt] = tp
	}
	regions := make([]config.TouristRegion, len(p.TouristRegions))
	copy(regions, p.TouristRegions)
	for i := range regions {
		regions[i].Rooms = config.Range{Mean: 60, SD: 10, Min: 20, Max: 100}
	}
	p.TouristRegions = regions
	return p
}

func population(t *testing.T, params *config.Params) ([]model.Property, []model.Customer) {
	t.Helper()
	g := generator.New(params, generator.NewCuratedPools(), 4, discard)
	props, err := g.Properties(context.Background())
	require.NoError(t, err)
	customers, err := g.Customers(context.Background())
	require.NoError(t, err)
	return props, customers
}

func newTestScheduler(t *testing.T, params *config.Params, workers int) *Scheduler {
	t.Helper()
	props, customers := population(t, params)
	state, err := NewState(params, props, customers)
	require.NoError(t, err)
	return NewScheduler(state, generator.NewCuratedPools(), workers, discard)
}

func runAll(t *testing.T, s *Scheduler) []*DayResult {
	t.Helper()
	var results []*DayResult
	for !s.Done() {
		res, err := s.Step(context.Background())
		require.NoError(t, err)
		results = append(results, res)
	}
	return results
}

func TestScheduler_Invariants(t *testing.T) {
	params := testParams(t)
	s := newTestScheduler(t, params, 4)

	booked := 0
	for !s.Done() {
		res, err := s.Step(context.Background())
		require.NoError(t, err)

		st := s.State()
		seen := map[int64]bool{}
		for _, b := range st.ActiveBookings() {
			assert.False(t, seen[b.CustomerID], "customer %d double-booked on day %d", b.CustomerID, res.Report.Day)
			seen[b.CustomerID] = true
			assert.True(t, b.CheckOut.After(res.Report.Date))
		}
		for p, prop := range st.Properties {
			occupied, capacity := st.Occupancy(p)
			assert.Equal(t, prop.TotalRooms(), capacity)
			assert.LessOrEqual(t, occupied, capacity/2)
		}
		assert.LessOrEqual(t, res.Report.Occupancy, config.OccupancyCeiling)

		for _, txn := range res.Transactions {
			assertTransaction(t, params, txn)
		}
		booked += res.Report.Checkins
	}
	assert.Positive(t, booked)
	assert.Equal(t, params.Days, s.State().Day)
}

func assertTransaction(t *testing.T, params *config.Params, txn model.Transaction) {
	t.Helper()

	var sum model.Millicents
	for i, l := range txn.Lines {
		assert.Equal(t, i+1, l.LineNumber)
		sum += l.UnitAmount * model.Millicents(l.Quantity)
	}
	assert.Equal(t, sum, txn.Total)
	assert.Positive(t, txn.Total)

	require.NotEmpty(t, txn.Charges)
	assert.LessOrEqual(t, len(txn.Charges), params.MaxAttempts)
	methods := map[string]bool{}
	for i, c := range txn.Charges {
		assert.Equal(t, txn.Total, c.Amount)
		assert.False(t, methods[c.PaymentMethod], "payment method reused")
		methods[c.PaymentMethod] = true
		if i < len(txn.Charges)-1 {
			assert.NotEqual(t, model.ChargeSuccess, c.Result)
		}
	}
	last := txn.Charges[len(txn.Charges)-1]
	assert.Equal(t, last.Result == model.ChargeSuccess, txn.Paid)
}

func TestScheduler_Deterministic(t *testing.T) {
	params := testParams(t)
	a := runAll(t, newTestScheduler(t, params, 1))
	b := runAll(t, newTestScheduler(t, params, 8))
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i], "day %d", i)
	}
}

func TestScheduler_CeilingAboveHalf(t *testing.T) {
	params := testParams(t, func(g *config.Generation) {
		target := 0.9
		ramp := 0
		g.TargetOccupancy = &target
		g.RampUpDays = &ramp
	})
	s := newTestScheduler(t, params, 4)

	for _, res := range runAll(t, s) {
		assert.LessOrEqual(t, res.Report.Target, 0.5)
		assert.LessOrEqual(t, res.Report.Occupancy, 0.5)
	}
}

func TestTargetOccupancy(t *testing.T) {
	t.Run("立ち上がりなしは初日から目標値の周辺", func(t *testing.T) {
		params := testParams(t, func(g *config.Generation) {
			ramp := 0
			target := 0.3
			sd := 0.02
			g.RampUpDays = &ramp
			g.TargetOccupancy = &target
			g.TargetOccupancySD = &sd
		})
		assert.InDelta(t, 0.3, TargetOccupancy(params, 0), 0.1)

		sum := 0.0
		for d := 0; d < 200; d++ {
			sum += TargetOccupancy(params, d)
		}
		assert.InDelta(t, 0.3, sum/200, 0.01)
	})

	t.Run("立ち上がり初日はゼロ", func(t *testing.T) {
		params := testParams(t)
		assert.Zero(t, TargetOccupancy(params, 0))
	})

	t.Run("上限0.5", func(t *testing.T) {
		params := testParams(t, func(g *config.Generation) {
			target := 1.0
			ramp := 0
			g.TargetOccupancy = &target
			g.RampUpDays = &ramp
		})
		for d := 0; d < 50; d++ {
			assert.LessOrEqual(t, TargetOccupancy(params, d), 0.5)
		}
	})
}

func TestDesiredRooms(t *testing.T) {
	tests := []struct {
		target float64
		rooms  int
		want   int
	}{
		{target: 0.3, rooms: 100, want: 30},
		{target: 0.5, rooms: 51, want: 25},
		{target: 0.49, rooms: 51, want: 25},
		{target: 0, rooms: 10, want: 0},
		{target: 0.5, rooms: 1, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, desiredRooms(tt.target, tt.rooms), "%v×%d", tt.target, tt.rooms)
	}
}

func TestScheduler_Shortfall(t *testing.T) {
	params := testParams(t, func(g *config.Generation) {
		g.Customers.Count = 5
		ramp := 0
		target := 0.5
		g.RampUpDays = &ramp
		g.TargetOccupancy = &target
	})
	s := newTestScheduler(t, params, 2)

	res, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Report.Checkins)
	assert.Positive(t, res.Report.Shortfall)
	assert.Zero(t, s.State().Eligible())
}

func TestScheduler_CheckinBilling(t *testing.T) {
	params := testParams(t, func(g *config.Generation) {
		g.Billing = "checkin"
	})
	s := newTestScheduler(t, params, 4)

	for _, res := range runAll(t, s) {
		assert.Equal(t, res.Report.Checkins, len(res.Transactions))
		for _, txn := range res.Transactions {
			assert.True(t, txn.CheckIn.Equal(res.Report.Date))
		}
	}
}

func TestScheduler_Cooldown(t *testing.T) {
	params := testParams(t, func(g *config.Generation) {
		gap := 1000
		g.Archetypes = map[string]config.ArchetypeSpec{}
		for _, a := range model.Archetypes {
			g.Archetypes[a.String()] = config.ArchetypeSpec{MinGapDays: &gap}
		}
	})
	s := newTestScheduler(t, params, 4)

	customers := map[int64]int{}
	for _, res := range runAll(t, s) {
		assert.Zero(t, res.Report.Reactivations)
		for _, txn := range res.Transactions {
			customers[txn.CustomerID]++
		}
	}
	for id, n := range customers {
		assert.Equal(t, 1, n, "customer %d stayed more than once", id)
	}
}

func TestScheduler_Canceled(t *testing.T) {
	s := newTestScheduler(t, testParams(t), 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.State().Day)
}

func TestScheduler_StepAfterDone(t *testing.T) {
	params := testParams(t, func(g *config.Generation) {
		g.Dates.End = g.Dates.Start
	})
	s := newTestScheduler(t, params, 1)
	runAll(t, s)

	_, err := s.Step(context.Background())
	assert.Error(t, err)
}

func TestBiller_Bill(t *testing.T) {
	params := testParams(t)
	b := NewBiller(params, generator.NewCuratedPools())

	property := &model.Property{
		ID:        3,
		State:     "MN",
		ResortFee: model.Dollars(25),
		Rooms:     map[string]model.RoomInfo{"SK": {Count: 10, Price: model.Dollars(129.99)}},
	}
	checkIn := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	booking := model.Booking{
		PropertyID: 3,
		RoomType:   "SK",
		CustomerID: 9,
		CheckIn:    checkIn,
		CheckOut:   checkIn.AddDate(0, 0, 3),
	}

	txn := b.Bill(newRand(), property, booking)
	require.Len(t, txn.Lines, 5)

	for i := 0; i < 3; i++ {
		assert.Equal(t, model.Dollars(129.99), txn.Lines[i].UnitAmount)
		assert.Equal(t, 1, txn.Lines[i].Quantity)
	}
	assert.Equal(t, "Room Charge SK 2024-03-02", txn.Lines[1].Description)
	assert.Equal(t, model.Dollars(25), txn.Lines[3].UnitAmount)
	assert.Equal(t, 3, txn.Lines[3].Quantity)

	// (129.99×3 + 25×3) × 6.88% = 31.99...
	taxable := model.Dollars(129.99)*3 + model.Dollars(25)*3
	assert.Equal(t, taxable.ApplyBasisPoints(688), txn.Lines[4].UnitAmount)
	assert.Equal(t, "MN Sales Tax @ 6.88%", txn.Lines[4].Description)
	assert.Equal(t, taxable+taxable.ApplyBasisPoints(688), txn.Total)
	assert.Equal(t, int64(9), txn.CustomerID)

	billed := txn.Timestamp.Time()
	assert.True(t, !billed.Before(booking.CheckOut) && billed.Before(booking.CheckOut.AddDate(0, 0, 1)))
}

func TestBiller_BillLuxuryTax(t *testing.T) {
	params := testParams(t)
	b := NewBiller(params, generator.NewCuratedPools())
	checkIn := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		state     string
		price     model.Millicents
		nights    int
		wantLines []string
	}{
		{
			name:      "課税対象額が100ドルを超えるとラグジュアリー税が付く",
			state:     "NY",
			price:     model.Dollars(80),
			nights:    2,
			wantLines: []string{"NY Sales Tax @ 4.00%", "NY Luxury Tax @ 5.87%"},
		},
		{
			name:      "課税対象額がちょうど100ドルならラグジュアリー税は付かない",
			state:     "NY",
			price:     model.Dollars(50),
			nights:    2,
			wantLines: []string{"NY Sales Tax @ 4.00%"},
		},
		{
			name:      "ラグジュアリー税のない州",
			state:     "MN",
			price:     model.Dollars(300),
			nights:    1,
			wantLines: []string{"MN Sales Tax @ 6.88%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			property := &model.Property{
				ID:    1,
				State: tt.state,
				Rooms: map[string]model.RoomInfo{"DQ": {Count: 5, Price: tt.price}},
			}
			booking := model.Booking{
				PropertyID: 1,
				RoomType:   "DQ",
				CustomerID: 2,
				CheckIn:    checkIn,
				CheckOut:   checkIn.AddDate(0, 0, tt.nights),
			}

			txn := b.Bill(newRand(), property, booking)
			require.Len(t, txn.Lines, tt.nights+len(tt.wantLines))

			taxable := tt.price.Mul(tt.nights)
			want := taxable
			for i, desc := range tt.wantLines {
				line := txn.Lines[tt.nights+i]
				assert.Equal(t, desc, line.Description)
				assert.Equal(t, tt.nights+i+1, line.LineNumber)
				bp := generator.SalesTaxBasisPoints(tt.state)
				if i == 1 {
					bp = generator.LuxuryTaxBasisPoints(tt.state)
				}
				assert.Equal(t, taxable.ApplyBasisPoints(bp), line.UnitAmount)
				want += line.UnitAmount
			}
			assert.Equal(t, want, txn.Total)
		})
	}
}

func TestBiller_Settle(t *testing.T) {
	tests := []struct {
		name        string
		outcomes    map[string]float64
		maxAttempts int
		wantCharges int
		wantPaid    bool
	}{
		{
			name:        "常に成功",
			outcomes:    map[string]float64{"Success": 1},
			maxAttempts: 3,
			wantCharges: 1,
			wantPaid:    true,
		},
		{
			name:        "常に失敗",
			outcomes:    map[string]float64{"CardExpired": 1, "FraudSuspected": 1},
			maxAttempts: 4,
			wantCharges: 4,
			wantPaid:    false,
		},
		{
			name:        "試行1回で失敗",
			outcomes:    map[string]float64{"PaymentNetworkError": 1},
			maxAttempts: 1,
			wantCharges: 1,
			wantPaid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams(t, func(g *config.Generation) {
				g.Payment.Outcomes = tt.outcomes
				g.Payment.MaxAttempts = &tt.maxAttempts
			})
			b := NewBiller(params, generator.NewCuratedPools())

			txn := model.Transaction{
				Total:     model.Dollars(100),
				Timestamp: model.NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
			}
			b.Settle(newRand(), &txn)

			assert.Len(t, txn.Charges, tt.wantCharges)
			assert.Equal(t, tt.wantPaid, txn.Paid)
			methods := map[string]bool{}
			prev := model.Timestamp(0)
			for _, c := range txn.Charges {
				assert.False(t, methods[c.PaymentMethod])
				methods[c.PaymentMethod] = true
				assert.Greater(t, c.Timestamp, prev)
				prev = c.Timestamp
			}
		})
	}
}

func TestStayLength(t *testing.T) {
	buckets := []config.StayBucket{{Min: 1, Max: 2, Weight: 1}, {Min: 3, Max: 6, Weight: 1}}
	r := newRand()
	for i := 0; i < 500; i++ {
		n := stayLength(r, buckets)
		assert.True(t, n == 1 || (n >= 3 && n < 6), "got %d", n)
	}
	assert.Equal(t, 1, stayLength(r, nil))
}

func TestScheduler_RealizedOccupancyTracksTarget(t *testing.T) {
	params := testParams(t, func(g *config.Generation) {
		ramp := 0
		g.RampUpDays = &ramp
	})
	results := runAll(t, newTestScheduler(t, params, 4))

	// 滞在が重なって安定した後半は目標値に近づく
	late := results[len(results)-10:]
	sum := 0.0
	for _, res := range late {
		sum += res.Report.Occupancy
	}
	assert.False(t, math.IsNaN(sum))
	assert.InDelta(t, 0.3, sum/float64(len(late)), 0.08)
}
