package metrics

import (
	"math"
	"sync"
	"time"
)

// meters tick at a fixed cadence; rates are folded in lazily on read
const tickInterval = 5 * time.Second

// ewma is an exponentially weighted moving rate over a fixed window.
type ewma struct {
	window      time.Duration
	rate        float64 // events per second
	initialized bool
	uncounted   int64
}

func (e *ewma) mark(n int64) {
	e.uncounted += n
}

func (e *ewma) tick() {
	instant := float64(e.uncounted) / tickInterval.Seconds()
	e.uncounted = 0

	if !e.initialized {
		e.rate = instant
		e.initialized = true
		return
	}

	alpha := 1 - math.Exp(-tickInterval.Seconds()/e.window.Seconds())
	e.rate += alpha * (instant - e.rate)
}

// RateMeter measures the rate of events over a fifteen-minute and a
// two-hour window. The two-hour rate is what the compaction strategy
// consumes when scoring table hotness.
//
// A meter is safe for concurrent use; the read path marks it while the
// compaction loop samples it.
type RateMeter struct {
	mu sync.Mutex

	fifteenMinute ewma
	twoHour       ewma

	count    int64
	lastTick time.Time
	now      func() time.Time
}

func NewRateMeter() *RateMeter {
	return newRateMeterWithClock(time.Now)
}

func newRateMeterWithClock(now func() time.Time) *RateMeter {
	return &RateMeter{
		fifteenMinute: ewma{window: 15 * time.Minute},
		twoHour:       ewma{window: 2 * time.Hour},
		lastTick:      now(),
		now:           now,
	}
}

// RestoreRateMeter builds a meter whose windows start at previously
// recorded rates (events per second). Used when reopening a table so
// its read history survives a restart.
func RestoreRateMeter(fifteenMinuteRate, twoHourRate float64) *RateMeter {
	m := NewRateMeter()
	m.fifteenMinute.rate = fifteenMinuteRate
	m.fifteenMinute.initialized = true
	m.twoHour.rate = twoHourRate
	m.twoHour.initialized = true
	return m
}

// Mark records n events.
func (m *RateMeter) Mark(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickIfNecessary()
	m.count += n
	m.fifteenMinute.mark(n)
	m.twoHour.mark(n)
}

// FifteenMinuteRate returns the fifteen-minute rate in events per second.
func (m *RateMeter) FifteenMinuteRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickIfNecessary()
	return m.fifteenMinute.rate
}

// TwoHourRate returns the two-hour rate in events per second.
func (m *RateMeter) TwoHourRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickIfNecessary()
	return m.twoHour.rate
}

// Count returns the total number of events recorded.
func (m *RateMeter) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *RateMeter) tickIfNecessary() {
	elapsed := m.now().Sub(m.lastTick)
	if elapsed < tickInterval {
		return
	}

	ticks := elapsed / tickInterval
	for i := time.Duration(0); i < ticks; i++ {
		m.fifteenMinute.tick()
		m.twoHour.tick()
	}
	m.lastTick = m.lastTick.Add(ticks * tickInterval)
}
