// Package cache provides a small in-process TTL cache used for per-owner
// dashboard snapshots.
package cache

import "time"

// Cache is a keyed store with expiry. Implementations must be safe for
// concurrent use.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Len() int
}

// Sweeper is implemented by caches that can drop expired entries eagerly.
type Sweeper interface {
	SweepExpired() int
}

// Janitor periodically sweeps registered caches. Expired entries are also
// dropped lazily on Get, so the janitor only bounds memory between reads.
type Janitor struct {
	caches []Sweeper
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor(caches ...Sweeper) *Janitor {
	return &Janitor{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (j *Janitor) Start(interval time.Duration) {
	go j.run(interval)
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range j.caches {
				c.SweepExpired()
			}
		case <-j.stop:
			return
		}
	}
}

func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
