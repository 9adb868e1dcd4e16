package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateNumber produces a new human-readable order number. The millisecond
// timestamp plus a random suffix makes collisions rare but not impossible;
// the store retries with a fresh number on a uniqueness conflict.
func GenerateNumber() string {
	return fmt.Sprintf("ORD-%d-%03d", time.Now().UnixMilli(), rand.IntN(1000))
}
