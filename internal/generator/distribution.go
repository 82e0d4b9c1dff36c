package generator

import (
	"math"
	"math/rand/v2"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
)

// StateDistribution は count 件を人口比で州に配分し、州コードの列を返します
// sd > 0 の場合は州ごとの倍率に揺らぎを与えます
// 合計は常に count になるよう乱択で調整し、その後 reassignments 回だけ州間で移し替えます
func StateDistribution(r *rand.Rand, count int, sd float64, reassignments int) []string {
	if count <= 0 {
		return nil
	}

	total := 0.0
	for _, s := range States {
		total += s.Population
	}
	scaling := float64(count) / total

	dist := make([]int, len(States))
	sum := 0
	for i, s := range States {
		factor := scaling
		if sd > 0 {
			factor = math.Max(0, rng.Normal(r, scaling, sd))
		}
		dist[i] = int(math.Round(s.Population * factor))
		sum += dist[i]
	}

	for sum < count {
		dist[r.IntN(len(dist))]++
		sum++
	}
	for sum > count {
		i := r.IntN(len(dist))
		if dist[i] > 0 {
			dist[i]--
			sum--
		}
	}

	for n := 0; n < reassignments; n++ {
		for {
			from := r.IntN(len(dist))
			to := r.IntN(len(dist) - 1)
			if to >= from {
				to++
			}
			if dist[from] > 0 {
				dist[from]--
				dist[to]++
				break
			}
		}
	}

	codes := make([]string, 0, count)
	for i, n := range dist {
		for j := 0; j < n; j++ {
			codes = append(codes, States[i].Code)
		}
	}
	return codes
}

// apportion は重みに比例して n を整数に配分します
// 四捨五入の過不足は乱択で調整し、合計は常に n になります
func apportion(r *rand.Rand, n int, weights []float64) []int {
	counts := make([]int, len(weights))
	total := 0.0
	for _, w := range weights {
		total += math.Max(w, 0)
	}
	if n <= 0 || total <= 0 {
		return counts
	}

	sum := 0
	positive := make([]int, 0, len(weights))
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		positive = append(positive, i)
		counts[i] = int(math.Round(w / total * float64(n)))
		sum += counts[i]
	}
	for sum < n {
		counts[positive[r.IntN(len(positive))]]++
		sum++
	}
	for sum > n {
		i := positive[r.IntN(len(positive))]
		if counts[i] > 0 {
			counts[i]--
			sum--
		}
	}
	return counts
}
