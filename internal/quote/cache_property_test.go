package quote

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestProperty_CacheBoundedAndFresh checks that random Set/Get/Advance
// sequences never grow the cache past its bound and never return an
// entry older than the TTL.
func TestProperty_CacheBoundedAndFresh(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const ttl = time.Minute
		maxSize := rapid.IntRange(1, 8).Draw(t, "maxSize")
		clock := newManualClock()
		c := NewCache[time.Time](ttl, maxSize, clock)
		keys := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			key := rapid.SampledFrom(keys).Draw(t, "key")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				c.Set(key, clock.Now())
			case 1:
				if storedAt, ok := c.Get(key); ok {
					if age := clock.Now().Sub(storedAt); age >= ttl {
						t.Fatalf("Get(%s) returned entry aged %s", key, age)
					}
				}
			case 2:
				clock.Advance(time.Duration(rapid.IntRange(0, 90).Draw(t, "secs")) * time.Second)
			}
			if n := c.Len(); n > maxSize {
				t.Fatalf("Len() = %d exceeds maxSize %d", n, maxSize)
			}
		}
	})
}
