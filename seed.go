package garage

import (
	"math/rand"
	"sync"
)

var seedLock sync.Mutex
var currentSeed int64

// SetSeed seeds the global random source used by the
// samplers, parameter initializers, and minibatching.
//
// Runs with a single sampler environment are fully
// reproducible for a given seed.
func SetSeed(seed int64) {
	seedLock.Lock()
	defer seedLock.Unlock()
	currentSeed = seed
	rand.Seed(seed)
}

// Seed returns the seed last passed to SetSeed.
func Seed() int64 {
	seedLock.Lock()
	defer seedLock.Unlock()
	return currentSeed
}
