package metrics

import "sync"

// Collector captures named counters from the compaction control loop.
type Collector struct {
	mu       sync.RWMutex
	counters map[string]float64
}

func NewCollector() *Collector {
	return &Collector{counters: make(map[string]float64)}
}

// Inc adds delta to the named counter, creating it at zero if needed.
func (c *Collector) Inc(name string, delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// Counter returns the current value of the named counter.
func (c *Collector) Counter(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// Counters returns a copy of every counter.
func (c *Collector) Counters() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]float64, len(c.counters))
	for name, value := range c.counters {
		out[name] = value
	}
	return out
}
