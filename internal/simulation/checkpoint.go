package simulation

import (
	"fmt"
	"slices"

	jsoniter "github.com/json-iterator/go"

	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// CheckpointVersion はチェックポイント形式の版です
// 同じ版の間でのみ復元できます
const CheckpointVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cooldown は待機中の顧客と、予約可能に戻る日番号です
type Cooldown struct {
	CustomerID int64 `json:"customer_id"`
	Until      int   `json:"until"`
}

// Checkpoint は日の区切りで保存する作業状態です
// 施設と顧客はシードから再生成できるため、先頭IDのみを保持します
type Checkpoint struct {
	Version         int              `json:"version"`
	RunID           string           `json:"run_id"`
	Seed            uint64           `json:"seed"`
	Day             int              `json:"day"`
	DaysLeft        int              `json:"days_left"`
	PropertyFirstID int64            `json:"property_first_id"`
	CustomerFirstID int64            `json:"customer_first_id"`
	Bookings        []model.Booking  `json:"bookings"`
	Cooldowns       []Cooldown       `json:"cooldowns"`
	Marks           map[string]int64 `json:"marks,omitempty"`
	Reports         []DayReport      `json:"reports,omitempty"`
}

// Checkpoint は現在の状態をチェックポイントにします
// 予約は占有インデックスの順、待機中の顧客は復帰日と登録順に並びます
func (s *State) Checkpoint(runID string) *Checkpoint {
	cp := &Checkpoint{
		Version:  CheckpointVersion,
		RunID:    runID,
		Seed:     s.Params.Seed,
		Day:      s.Day,
		DaysLeft: s.DaysLeft,
		Bookings: s.ActiveBookings(),
	}
	if len(s.Properties) > 0 {
		cp.PropertyFirstID = s.Properties[0].ID
	}
	if len(s.Customers) > 0 {
		cp.CustomerFirstID = s.Customers[0].ID
	}

	days := make([]int, 0, len(s.cooldowns))
	for until := range s.cooldowns {
		days = append(days, until)
	}
	slices.Sort(days)
	for _, until := range days {
		for _, c := range s.cooldowns[until] {
			cp.Cooldowns = append(cp.Cooldowns, Cooldown{CustomerID: s.Customers[c].ID, Until: until})
		}
	}
	return cp
}

// Encode はチェックポイントをJSONにします
func (cp *Checkpoint) Encode() ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return data, nil
}

// DecodeCheckpoint はJSONからチェックポイントを復元します
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	if !jsoniter.ConfigFastest.Valid(data) {
		return nil, fmt.Errorf("checkpoint is not valid JSON")
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != CheckpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d (want %d)", cp.Version, CheckpointVersion)
	}
	return &cp, nil
}

// RestoreState はチェックポイントから作業状態を復元します
// 施設と顧客は再生成・ID付与済みのものを渡します
func RestoreState(params *config.Params, properties []model.Property, customers []model.Customer, cp *Checkpoint) (*State, error) {
	if cp.Seed != params.Seed {
		return nil, fmt.Errorf("checkpoint seed %d does not match %d", cp.Seed, params.Seed)
	}
	if cp.Day < 0 || cp.DaysLeft < 0 || cp.Day+cp.DaysLeft != params.Days {
		return nil, fmt.Errorf("checkpoint day %d/%d does not match %d simulated days", cp.Day, cp.DaysLeft, params.Days)
	}

	s, err := NewState(params, properties, customers)
	if err != nil {
		return nil, err
	}
	s.Day = cp.Day
	s.DaysLeft = cp.DaysLeft

	for _, b := range cp.Bookings {
		p, ok := s.propertiesByID[b.PropertyID]
		if !ok {
			return nil, fmt.Errorf("checkpoint booking references unknown property %d", b.PropertyID)
		}
		c, ok := s.customersByID[b.CustomerID]
		if !ok {
			return nil, fmt.Errorf("checkpoint booking references unknown customer %d", b.CustomerID)
		}
		k := slices.IndexFunc(s.occupancy[p].rooms, func(rs roomSlots) bool { return rs.code == b.RoomType })
		if k < 0 {
			return nil, fmt.Errorf("checkpoint booking references unknown room type %q at property %d", b.RoomType, b.PropertyID)
		}
		if !s.pool.Remove(c) {
			return nil, fmt.Errorf("checkpoint books customer %d more than once", b.CustomerID)
		}
		s.insert(p, k, activeBooking{Booking: b, customer: c})
	}

	for _, cd := range cp.Cooldowns {
		c, ok := s.customersByID[cd.CustomerID]
		if !ok {
			return nil, fmt.Errorf("checkpoint cooldown references unknown customer %d", cd.CustomerID)
		}
		if !s.pool.Remove(c) {
			return nil, fmt.Errorf("checkpoint customer %d is both booked and cooling down", cd.CustomerID)
		}
		s.startCooldown(c, cd.Until)
	}

	if err := s.Verify(); err != nil {
		return nil, fmt.Errorf("restored state is inconsistent: %w", err)
	}
	return s, nil
}
