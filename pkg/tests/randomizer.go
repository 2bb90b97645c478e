package tests

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

type Randomizer struct {
	Float64 func() float64
	Bool    func() bool
	Intn    func(n int) int
}

func NewRandomizer() Randomizer {
	random := rand.New(rand.NewSource(time.Now().Unix())) //nolint:gosec // for tests

	return Randomizer{
		Float64: random.Float64,
		Bool:    func() bool { return random.Intn(2) == 0 }, //nolint:mnd // skip
		Intn:    random.Intn,
	}
}

// Money returns a non-negative amount with cents below maxWhole.
func (r Randomizer) Money(maxWhole int) decimal.Decimal {
	return decimal.New(int64(r.Intn(maxWhole*100)), -2) //nolint:mnd // cents
}

// Rate returns a fraction in [0, 0.25) with four decimal places.
func (r Randomizer) Rate() decimal.Decimal {
	return decimal.New(int64(r.Intn(2500)), -4) //nolint:mnd // skip
}
