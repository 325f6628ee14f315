// Package factories generates synthetic restaurants, workers and orders for simulations.
package factories

import (
	"math/rand"

	"github.com/jaswdr/faker"
)

// Factory draws every random value from one seed so a simulation can be replayed.
type Factory struct {
	fake faker.Faker
	rng  *rand.Rand
}

func New(seed int64) *Factory {
	return &Factory{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		rng:  rand.New(rand.NewSource(seed + 1)),
	}
}

// Rand exposes the factory's generator for callers that need draws in the same sequence.
func (f *Factory) Rand() *rand.Rand {
	return f.rng
}
