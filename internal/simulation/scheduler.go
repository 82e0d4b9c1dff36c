package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/generator"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// DayReport は1日分の処理結果です
type DayReport struct {
	Day           int       `json:"day"`
	Date          time.Time `json:"date"`
	Checkins      int       `json:"checkins"`
	Checkouts     int       `json:"checkouts"`
	Reactivations int       `json:"reactivations"`
	Target        float64   `json:"target"`
	Occupancy     float64   `json:"occupancy"`
	Shortfall     int       `json:"shortfall"`
	Transactions  int       `json:"transactions"`
	Unpaid        int       `json:"unpaid"`
}

// DayResult は1日分の処理で確定した取引と日次レポートです
type DayResult struct {
	Report       DayReport
	Transactions []model.Transaction
}

// Scheduler は日単位でシミュレーションを進めます
// 日は順番に処理し、施設への割り当ては施設順に逐次、請求は予約ごとに並列で行います
type Scheduler struct {
	state   *State
	biller  *Biller
	workers int
	logger  *log.Logger
}

// NewScheduler は新しいSchedulerを作成します
func NewScheduler(state *State, pools generator.Pools, workers int, logger *log.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		state:   state,
		biller:  NewBiller(state.Params, pools),
		workers: workers,
		logger:  logger,
	}
}

// State は作業状態を返します
func (s *Scheduler) State() *State {
	return s.state
}

// Done は全日程の処理が終わったかを返します
func (s *Scheduler) Done() bool {
	return s.state.Done()
}

// Step は1日分を処理します
// チェックアウト、待機期間明けの復帰、目標稼働率の決定、割り当て、請求、決済の順に行い、
// 最後に占有状態を検査してから日を進めます
func (s *Scheduler) Step(ctx context.Context) (*DayResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st := s.state
	if st.Done() {
		return nil, fmt.Errorf("simulation already finished after %d days", st.Day)
	}

	day := st.Day
	date := st.Date()
	report := DayReport{Day: day, Date: date}

	// 1. チェックアウト
	released := st.release(date)
	for _, b := range released {
		gap := st.archetypeParams(b.customer).MinGapDays
		st.startCooldown(b.customer, day+gap)
	}
	report.Checkouts = len(released)

	// 2. 待機期間が終わった顧客を戻す
	report.Reactivations = st.reactivate(day)

	// 3. 目標稼働率
	report.Target = TargetOccupancy(st.Params, day)

	// 4. 割り当て
	checkins, shortfall := s.allocate(day, date, report.Target)
	report.Checkins = len(checkins)
	report.Shortfall = shortfall

	// 5. 請求と決済
	toBill := make([]model.Booking, 0, len(released))
	if st.Params.Billing == config.BillingAtCheckin {
		toBill = append(toBill, checkins...)
	} else {
		for _, b := range released {
			toBill = append(toBill, b.Booking)
		}
	}
	transactions, err := s.bill(ctx, day, toBill)
	if err != nil {
		return nil, err
	}
	report.Transactions = len(transactions)
	for _, txn := range transactions {
		if !txn.Paid {
			report.Unpaid++
		}
	}

	// 6. 検査
	if err := st.Verify(); err != nil {
		return nil, err
	}

	if total := st.RoomsTotal(); total > 0 {
		report.Occupancy = float64(st.RoomsOccupied()) / float64(total)
	}
	st.Day++
	st.DaysLeft--

	s.logger.Debug("day complete",
		"day", day,
		"date", date.Format("2006-01-02"),
		"checkins", report.Checkins,
		"checkouts", report.Checkouts,
		"reactivated", report.Reactivations,
		"target", fmt.Sprintf("%.4f", report.Target),
		"occupancy", fmt.Sprintf("%.4f", report.Occupancy),
	)
	return &DayResult{Report: report, Transactions: transactions}, nil
}

// allocate は施設順に新規予約を作成します
func (s *Scheduler) allocate(day int, date time.Time, target float64) ([]model.Booking, int) {
	st := s.state
	var checkins []model.Booking
	shortfall := 0

	for p := range st.Properties {
		occupied, capacity := st.Occupancy(p)
		need := desiredRooms(target, capacity) - occupied
		need = min(max(need, 0), capacity-occupied)
		if need == 0 {
			continue
		}

		r := rng.New(st.Params.Seed, rng.DomainAllocate, uint64(day), uint64(p))
		placed := 0
		for ; placed < need; placed++ {
			b, ok := s.checkin(r, p, date)
			if !ok {
				break
			}
			checkins = append(checkins, b)
		}

		if missing := need - placed; missing > 0 {
			shortfall += missing
			s.logger.Warn("allocation short-filled",
				"err", &ShortfallError{Day: day, PropertyID: st.Properties[p].ID, Wanted: need, Missing: missing},
				"eligible", st.Eligible())
		}
	}
	return checkins, shortfall
}

// checkin は空室のある部屋タイプと予約可能な顧客を抽選し、予約を登録します
func (s *Scheduler) checkin(r *rand.Rand, p int, date time.Time) (model.Booking, bool) {
	st := s.state
	occ := &st.occupancy[p]

	k := rng.Weighted(r, occ.vacancies())
	if k < 0 {
		return model.Booking{}, false
	}
	c, ok := st.pool.Claim(r)
	if !ok {
		return model.Booking{}, false
	}

	nights := stayLength(r, st.archetypeParams(c).Stays)
	b := activeBooking{
		Booking: model.Booking{
			PropertyID: st.Properties[p].ID,
			RoomType:   occ.rooms[k].code,
			CustomerID: st.Customers[c].ID,
			CheckIn:    date,
			CheckOut:   date.AddDate(0, 0, nights),
		},
		customer: c,
	}
	st.insert(p, k, b)
	return b.Booking, true
}

// stayLength は滞在日数の区間を重みで選び、区間内で一様に泊数を決めます
func stayLength(r *rand.Rand, buckets []config.StayBucket) int {
	weights := make([]float64, len(buckets))
	for i, b := range buckets {
		weights[i] = b.Weight
	}
	i := rng.Weighted(r, weights)
	if i < 0 {
		return 1
	}
	b := buckets[i]
	return b.Min + r.IntN(b.Max-b.Min)
}

// bill は予約ごとに並列で取引を作成し、決済を試行します
// 各予約は (シード, 日, 日内の順番) の乱数ストリームを使うため、結果は並列度に依存しません
func (s *Scheduler) bill(ctx context.Context, day int, bookings []model.Booking) ([]model.Transaction, error) {
	if len(bookings) == 0 {
		return nil, nil
	}
	st := s.state
	transactions := make([]model.Transaction, len(bookings))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, b := range bookings {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			property, ok := st.PropertyByID(b.PropertyID)
			if !ok {
				return &InvariantError{Day: day, PropertyID: b.PropertyID, RoomType: b.RoomType, CustomerID: b.CustomerID, Reason: "unknown property"}
			}
			r := rng.New(st.Params.Seed, rng.DomainBill, uint64(day), uint64(i))
			txn := s.biller.Bill(r, property, b)
			s.biller.Settle(r, &txn)
			transactions[i] = txn
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		var ierr *InvariantError
		if errors.As(err, &ierr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to bill day %d: %w", day, err)
	}
	return transactions, nil
}
