package utils

import (
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique placeholder names for assets that
// shipped with an empty name field. Fixed seed keeps names stable between
// runs so exports stay diffable. Safe for concurrent use, so documents
// sharing one generator can still be loaded in parallel.
type RandomNameGenerator struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func (rng *RandomNameGenerator) RandomName() string {
	rng.mu.Lock()
	defer rng.mu.Unlock()

	if rng.used == nil {
		rng.used = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}
