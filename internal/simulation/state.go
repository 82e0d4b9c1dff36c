package simulation

import (
	"fmt"
	"slices"
	"time"

	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// activeBooking は占有インデックス内の予約です
type activeBooking struct {
	model.Booking
	customer int
}

// roomSlots は1施設・1部屋タイプの在庫と有効な予約です
type roomSlots struct {
	code     string
	capacity int
	bookings []activeBooking
}

type propertyOccupancy struct {
	rooms    []roomSlots
	capacity int
	occupied int
}

func (o *propertyOccupancy) vacancies() []float64 {
	v := make([]float64, len(o.rooms))
	for k, rs := range o.rooms {
		v[k] = float64(rs.capacity - len(rs.bookings))
	}
	return v
}

// State は1回の実行に閉じたシミュレーションの作業状態です
// 予約はすべて State の占有インデックスが所有し、施設の位置と部屋タイプの位置で引けます
// ID引きのキャッシュは施設・顧客の一覧から作り直せるため、直接は永続化しません
type State struct {
	Params     *config.Params
	Properties []model.Property
	Customers  []model.Customer

	// Day は次に処理する日の番号 (0始まり)
	Day      int
	DaysLeft int

	occupancy []propertyOccupancy
	pool      *Pool
	cooldowns map[int][]int
	active    []bool

	propertiesByID map[int64]int
	customersByID  map[int64]int
	archetypeIndex map[model.Archetype]int
}

// NewState は初日開始前の状態を作成します
// すべての顧客が予約可能な状態から始まります
func NewState(params *config.Params, properties []model.Property, customers []model.Customer) (*State, error) {
	s := &State{
		Params:         params,
		Properties:     properties,
		Customers:      customers,
		DaysLeft:       params.Days,
		occupancy:      make([]propertyOccupancy, len(properties)),
		cooldowns:      make(map[int][]int),
		active:         make([]bool, len(customers)),
		propertiesByID: make(map[int64]int, len(properties)),
		customersByID:  make(map[int64]int, len(customers)),
		archetypeIndex: make(map[model.Archetype]int, len(params.Archetypes)),
	}

	for i, p := range properties {
		if _, dup := s.propertiesByID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate property id %d", p.ID)
		}
		s.propertiesByID[p.ID] = i

		occ := propertyOccupancy{}
		for _, code := range p.RoomCodes() {
			info := p.Rooms[code]
			occ.rooms = append(occ.rooms, roomSlots{code: code, capacity: info.Count})
			occ.capacity += info.Count
		}
		s.occupancy[i] = occ
	}

	weights := make([]float64, len(params.Archetypes))
	for i, ap := range params.Archetypes {
		s.archetypeIndex[ap.Archetype] = i
		weights[i] = ap.SelectionWeight
	}

	groups := make([]int, len(customers))
	for i, c := range customers {
		if _, dup := s.customersByID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate customer id %d", c.ID)
		}
		s.customersByID[c.ID] = i
		g, ok := s.archetypeIndex[c.Archetype]
		if !ok {
			return nil, fmt.Errorf("customer %d has unknown archetype %v", c.ID, c.Archetype)
		}
		groups[i] = g
	}

	s.pool = NewPool(groups, weights)
	for i := range customers {
		s.pool.Add(i)
	}
	return s, nil
}

// Date は次に処理する日の日付を返します
func (s *State) Date() time.Time {
	return s.Params.Date(s.Day)
}

// Done は全日程の処理が終わったかを返します
func (s *State) Done() bool {
	return s.DaysLeft <= 0
}

// PropertyByID は施設をIDで引きます
func (s *State) PropertyByID(id int64) (*model.Property, bool) {
	i, ok := s.propertiesByID[id]
	if !ok {
		return nil, false
	}
	return &s.Properties[i], true
}

// Eligible は予約可能な顧客数を返します
func (s *State) Eligible() int {
	return s.pool.Len()
}

// RoomsTotal は全施設の部屋数の合計を返します
func (s *State) RoomsTotal() int {
	total := 0
	for _, o := range s.occupancy {
		total += o.capacity
	}
	return total
}

// RoomsOccupied は使用中の部屋数の合計を返します
func (s *State) RoomsOccupied() int {
	total := 0
	for _, o := range s.occupancy {
		total += o.occupied
	}
	return total
}

// Occupancy は施設ごとの (使用中, 部屋数) を返します
func (s *State) Occupancy(p int) (occupied, capacity int) {
	return s.occupancy[p].occupied, s.occupancy[p].capacity
}

// ActiveBookings は有効な予約を施設・部屋タイプ・登録順で返します
func (s *State) ActiveBookings() []model.Booking {
	var out []model.Booking
	for _, o := range s.occupancy {
		for _, rs := range o.rooms {
			for _, b := range rs.bookings {
				out = append(out, b.Booking)
			}
		}
	}
	return out
}

func (s *State) insert(p, k int, b activeBooking) {
	rs := &s.occupancy[p].rooms[k]
	rs.bookings = append(rs.bookings, b)
	s.occupancy[p].occupied++
	s.active[b.customer] = true
}

// release はチェックアウト日が date 以前の予約を取り出します
// 残る予約の順序は保たれ、取り出した予約は施設・部屋タイプ・登録順に並びます
func (s *State) release(date time.Time) []activeBooking {
	var released []activeBooking
	for p := range s.occupancy {
		o := &s.occupancy[p]
		for k := range o.rooms {
			rs := &o.rooms[k]
			kept := rs.bookings[:0]
			for _, b := range rs.bookings {
				if b.CheckOut.After(date) {
					kept = append(kept, b)
					continue
				}
				released = append(released, b)
				o.occupied--
				s.active[b.customer] = false
			}
			clear(rs.bookings[len(kept):])
			rs.bookings = kept
		}
	}
	return released
}

func (s *State) startCooldown(c, until int) {
	s.cooldowns[until] = append(s.cooldowns[until], c)
}

// reactivate は待機期間が day までに終わった顧客を予約可能に戻します
func (s *State) reactivate(day int) int {
	var due []int
	for until := range s.cooldowns {
		if until <= day {
			due = append(due, until)
		}
	}
	slices.Sort(due)

	n := 0
	for _, until := range due {
		for _, c := range s.cooldowns[until] {
			s.pool.Add(c)
			n++
		}
		delete(s.cooldowns, until)
	}
	return n
}

func (s *State) archetypeParams(c int) config.ArchetypeParams {
	return s.Params.Archetypes[s.archetypeIndex[s.Customers[c].Archetype]]
}

// Verify は在庫超過と顧客の重複予約がないことを検査します
func (s *State) Verify() error {
	seen := make(map[int]int64)
	for p, o := range s.occupancy {
		prop := s.Properties[p]
		occupied := 0
		for _, rs := range o.rooms {
			if len(rs.bookings) > rs.capacity {
				return &InvariantError{
					Day:        s.Day,
					PropertyID: prop.ID,
					RoomType:   rs.code,
					Reason:     fmt.Sprintf("%d bookings exceed capacity %d", len(rs.bookings), rs.capacity),
				}
			}
			occupied += len(rs.bookings)
			for _, b := range rs.bookings {
				if other, dup := seen[b.customer]; dup {
					return &InvariantError{
						Day:        s.Day,
						PropertyID: prop.ID,
						RoomType:   rs.code,
						CustomerID: b.CustomerID,
						Reason:     fmt.Sprintf("customer also booked at property %d", other),
					}
				}
				seen[b.customer] = prop.ID
				if s.pool.Contains(b.customer) {
					return &InvariantError{
						Day:        s.Day,
						PropertyID: prop.ID,
						RoomType:   rs.code,
						CustomerID: b.CustomerID,
						Reason:     "booked customer is still eligible",
					}
				}
			}
		}
		if occupied != o.occupied {
			return &InvariantError{
				Day:        s.Day,
				PropertyID: prop.ID,
				Reason:     fmt.Sprintf("occupied counter %d does not match %d bookings", o.occupied, occupied),
			}
		}
	}
	return nil
}
