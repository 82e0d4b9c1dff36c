package simulation

import (
	"math/bits"
	"math/rand/v2"
	"sync"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
)

// fenwick は 0/1 の所属フラグに対する累積和の木です
// k 番目の要素の検索を O(log n) で行います
type fenwick struct {
	tree []int
}

func newFenwick(n int) *fenwick {
	return &fenwick{tree: make([]int, n+1)}
}

func (f *fenwick) add(i, delta int) {
	for j := i + 1; j < len(f.tree); j += j & -j {
		f.tree[j] += delta
	}
}

// find は 0 始まりで k 番目に立っているフラグの位置を返します
func (f *fenwick) find(k int) int {
	n := len(f.tree) - 1
	if n == 0 {
		return 0
	}
	pos := 0
	for step := 1 << (bits.Len(uint(n)) - 1); step > 0; step >>= 1 {
		if pos+step <= n && f.tree[pos+step] <= k {
			pos += step
			k -= f.tree[pos]
		}
	}
	return pos
}

// Pool は予約可能な顧客の集合です
// 顧客は類型ごとに管理し、抽選は (類型の選択重み × 予約可能人数) に比例して類型を選んでから
// その類型内で一様に行います
// 抽選結果は集合の内容だけで決まり、追加・削除の順序には依存しません
type Pool struct {
	mu sync.Mutex

	weights []float64
	// members[a] は類型 a に属する顧客の位置 (昇順)
	members [][]int
	trees   []*fenwick
	counts  []int
	// group[c], slot[c] は顧客 c の類型と members 内の位置
	group    []int
	slot     []int
	eligible []bool
	size     int
}

// NewPool は顧客ごとの類型インデックスと類型ごとの選択重みからPoolを作成します
// 作成直後は空です
func NewPool(groups []int, weights []float64) *Pool {
	p := &Pool{
		weights:  weights,
		members:  make([][]int, len(weights)),
		trees:    make([]*fenwick, len(weights)),
		counts:   make([]int, len(weights)),
		group:    groups,
		slot:     make([]int, len(groups)),
		eligible: make([]bool, len(groups)),
	}
	for c, g := range groups {
		p.slot[c] = len(p.members[g])
		p.members[g] = append(p.members[g], c)
	}
	for g := range p.members {
		p.trees[g] = newFenwick(len(p.members[g]))
	}
	return p
}

// Add は顧客を予約可能にします
func (p *Pool) Add(c int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(c, true)
}

// Remove は顧客を予約不可にします
// 予約可能だった場合に true を返します
func (p *Pool) Remove(c int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setLocked(c, false)
}

func (p *Pool) setLocked(c int, eligible bool) bool {
	if p.eligible[c] == eligible {
		return false
	}
	p.eligible[c] = eligible
	delta := 1
	if !eligible {
		delta = -1
	}
	g := p.group[c]
	p.trees[g].add(p.slot[c], delta)
	p.counts[g] += delta
	p.size += delta
	return true
}

// Contains は顧客が予約可能かを返します
func (p *Pool) Contains(c int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eligible[c]
}

// Len は予約可能な顧客数を返します
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Claim は顧客を1人抽選し、同じ操作の中で予約不可にします
// 予約可能な顧客がいない場合は false を返します
func (p *Pool) Claim(r *rand.Rand) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.size == 0 {
		return 0, false
	}

	weights := make([]float64, len(p.counts))
	for g, n := range p.counts {
		weights[g] = p.weights[g] * float64(n)
	}
	g := rng.Weighted(r, weights)
	if g < 0 {
		// 選択重みがすべて0の場合は人数だけで選ぶ
		for i, n := range p.counts {
			weights[i] = float64(n)
		}
		g = rng.Weighted(r, weights)
	}

	k := r.IntN(p.counts[g])
	c := p.members[g][p.trees[g].find(k)]
	p.setLocked(c, false)
	return c, true
}
