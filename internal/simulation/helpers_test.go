package simulation

import (
	"math/rand/v2"

	"github.com/uma-arai/hotelgen-batch/internal/common/rng"
)

func newRand() *rand.Rand {
	return rng.New(42, rng.DomainBill, 0)
}
