// Package telemetry collects per-run query events in a bounded in-memory
// buffer. Everything stays local; nothing is reported anywhere.
package telemetry

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity bounds the event buffer.
const DefaultCapacity = 1000

// QueryEvent is one recorded search iteration.
type QueryEvent struct {
	Query       string        `json:"query"`
	Strategy    string        `json:"strategy"`
	ResultCount int           `json:"result_count"`
	Quality     float64       `json:"quality"`
	Latency     time.Duration `json:"latency"`
	Timestamp   time.Time     `json:"timestamp"`
}

// ZeroResult reports whether the iteration came back empty.
func (e QueryEvent) ZeroResult() bool {
	return e.ResultCount == 0
}

// StrategySummary aggregates the recorded events for one strategy.
type StrategySummary struct {
	Strategy    string        `json:"strategy"`
	Runs        int           `json:"runs"`
	ZeroResults int           `json:"zero_results"`
	AvgQuality  float64       `json:"avg_quality"`
	AvgLatency  time.Duration `json:"avg_latency"`
}

// Collector is a fixed-capacity ring of query events. When full, the oldest
// event is evicted. Safe for concurrent use.
type Collector struct {
	mu       sync.RWMutex
	events   []QueryEvent
	next     int
	size     int
	capacity int
	since    time.Time
}

// NewCollector returns a collector holding up to capacity events.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collector{
		events:   make([]QueryEvent, capacity),
		capacity: capacity,
		since:    time.Now(),
	}
}

// Record adds an event, evicting the oldest when the buffer is full.
func (c *Collector) Record(e QueryEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[c.next] = e
	c.next = (c.next + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
}

// Events returns the buffered events oldest first.
func (c *Collector) Events() []QueryEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]QueryEvent, 0, c.size)
	if c.size < c.capacity {
		out = append(out, c.events[:c.size]...)
		return out
	}
	out = append(out, c.events[c.next:]...)
	out = append(out, c.events[:c.next]...)
	return out
}

// Size reports how many events are buffered.
func (c *Collector) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Since reports when collection started.
func (c *Collector) Since() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.since
}

// Summaries aggregates the buffer per strategy, sorted by run count
// descending then name.
func (c *Collector) Summaries() []StrategySummary {
	events := c.Events()

	agg := make(map[string]*StrategySummary)
	latency := make(map[string]time.Duration)
	quality := make(map[string]float64)
	for _, e := range events {
		s, ok := agg[e.Strategy]
		if !ok {
			s = &StrategySummary{Strategy: e.Strategy}
			agg[e.Strategy] = s
		}
		s.Runs++
		if e.ZeroResult() {
			s.ZeroResults++
		}
		latency[e.Strategy] += e.Latency
		quality[e.Strategy] += e.Quality
	}

	out := make([]StrategySummary, 0, len(agg))
	for name, s := range agg {
		s.AvgQuality = quality[name] / float64(s.Runs)
		s.AvgLatency = latency[name] / time.Duration(s.Runs)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Runs != out[j].Runs {
			return out[i].Runs > out[j].Runs
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

// ZeroResultQueries returns the distinct queries that came back empty,
// oldest first.
func (c *Collector) ZeroResultQueries() []string {
	events := c.Events()
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		if e.ZeroResult() && !seen[e.Query] {
			seen[e.Query] = true
			out = append(out, e.Query)
		}
	}
	return out
}
