package rng

import (
	"math"
	"math/rand/v2"
)

// Domain は乱数ストリームの用途を表します
// 同じキーでも用途が異なれば独立したストリームになります
type Domain uint64

const (
	DomainPropertyPlan Domain = iota + 1
	DomainProperty
	DomainCustomerPlan
	DomainCustomer
	DomainOccupancy
	DomainAllocate
	DomainBill
)

// New はシードと用途、安定したインデックス列から決定的な乱数生成器を作成します
// ワーカー数やスケジューリングに依存しない出力を得るため、共有の生成器は使用しません
func New(seed uint64, domain Domain, keys ...uint64) *rand.Rand {
	s1 := mix(seed ^ mix(uint64(domain)))
	s2 := mix(s1 ^ 0x6a09e667f3bcc909)
	for _, k := range keys {
		s1 = mix(s1 ^ mix(k))
		s2 = mix(s2 + s1)
	}
	return rand.New(rand.NewPCG(s1, s2))
}

// mix は splitmix64 の最終化関数です
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Normal は平均 mean、標準偏差 sd の正規乱数を返します
func Normal(r *rand.Rand, mean, sd float64) float64 {
	if sd <= 0 {
		return mean
	}
	return mean + r.NormFloat64()*sd
}

// BoundedNormal は正規乱数を [lo, hi] に収めて返します
func BoundedNormal(r *rand.Rand, mean, sd, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, Normal(r, mean, sd)))
}

// Weighted は重みに比例した確率でインデックスを返します
// 重みの合計が0以下の場合は -1 を返します
func Weighted(r *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	x := r.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if x < w {
			return i
		}
		x -= w
	}
	return last
}

// Shuffle はスライスを決定的に並べ替えます
func Shuffle[T any](r *rand.Rand, s []T) {
	r.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}
