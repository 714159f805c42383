package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAndReadBack(t *testing.T) {
	c := NewCollector(10)

	c.Record(QueryEvent{Query: "one", Strategy: "direct_expert", ResultCount: 3})
	c.Record(QueryEvent{Query: "two", Strategy: "direct_expert", ResultCount: 0})

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Query)
	assert.False(t, events[0].ZeroResult())
	assert.True(t, events[1].ZeroResult())
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestCollector_EvictsOldestWhenFull(t *testing.T) {
	c := NewCollector(3)

	for i := 1; i <= 5; i++ {
		c.Record(QueryEvent{Query: fmt.Sprintf("q%d", i)})
	}

	events := c.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "q3", events[0].Query)
	assert.Equal(t, "q5", events[2].Query)
	assert.Equal(t, 3, c.Size())
}

func TestCollector_SummariesPerStrategy(t *testing.T) {
	c := NewCollector(10)
	c.Record(QueryEvent{Strategy: "direct_expert", ResultCount: 5, Quality: 0.8, Latency: 100 * time.Millisecond})
	c.Record(QueryEvent{Strategy: "direct_expert", ResultCount: 0, Quality: 0.0, Latency: 300 * time.Millisecond})
	c.Record(QueryEvent{Strategy: "project_based", ResultCount: 2, Quality: 0.6, Latency: 50 * time.Millisecond})

	summaries := c.Summaries()
	require.Len(t, summaries, 2)

	// Most-used strategy first
	direct := summaries[0]
	assert.Equal(t, "direct_expert", direct.Strategy)
	assert.Equal(t, 2, direct.Runs)
	assert.Equal(t, 1, direct.ZeroResults)
	assert.InDelta(t, 0.4, direct.AvgQuality, 1e-9)
	assert.Equal(t, 200*time.Millisecond, direct.AvgLatency)
}

func TestCollector_ZeroResultQueriesDeduplicated(t *testing.T) {
	c := NewCollector(10)
	c.Record(QueryEvent{Query: "ghost", ResultCount: 0})
	c.Record(QueryEvent{Query: "ghost", ResultCount: 0})
	c.Record(QueryEvent{Query: "found", ResultCount: 4})

	assert.Equal(t, []string{"ghost"}, c.ZeroResultQueries())
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := NewCollector(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Record(QueryEvent{Query: "q", Strategy: "direct_expert", ResultCount: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Size())
	summaries := c.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, 100, summaries[0].Runs)
}
