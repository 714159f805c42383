package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expertsFixture = `{"id": 1, "name": "Alex Rivera", "headline": "Supply chain director", "bio": "Led supply chain transformation across Southeast Asia for a global logistics group.", "functions": ["Supply Chain"], "years_experience": 12}
{"id": 2, "name": "Priya Shah", "headline": "Logistics operations lead", "bio": "Warehouse automation and last-mile logistics operations.", "functions": ["Logistics"], "years_experience": 8}
{"id": 3, "name": "Chen Wei", "headline": "Renewable energy advisor", "bio": "Solar and wind project development, grid integration policy.", "functions": ["Energy"], "years_experience": 15}
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexThenSearch_EndToEnd(t *testing.T) {
	// Given: an offline config and an indexed experts corpus
	cfgPath := writeTestConfig(t)
	corpus := writeFixture(t, "experts.jsonl", expertsFixture)

	out, err := runCommand(t, "--config", cfgPath, "index", "experts", corpus)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 records")

	// The vector snapshot is gob-encoded, named to match
	snapshot := filepath.Join(filepath.Dir(cfgPath), "data", "vectors", "experts.gob")
	_, statErr := os.Stat(snapshot)
	require.NoError(t, statErr)

	// When: searching the corpus
	out, err = runCommand(t, "--config", cfgPath, "search", "supply chain expert")

	// Then: the supply chain expert is reported with a session id
	require.NoError(t, err)
	assert.Contains(t, out, "Alex Rivera")
	assert.Contains(t, out, "session ")
}

func TestSearch_TraceFlagPrintsStates(t *testing.T) {
	// Given: an indexed corpus
	cfgPath := writeTestConfig(t)
	corpus := writeFixture(t, "experts.jsonl", expertsFixture)
	_, err := runCommand(t, "--config", cfgPath, "index", "experts", corpus)
	require.NoError(t, err)

	// When: searching with --trace
	out, err := runCommand(t, "--config", cfgPath, "search", "logistics", "--trace")

	// Then: the state trace is printed through the final decision
	require.NoError(t, err)
	assert.Contains(t, out, "Trace:")
	assert.Contains(t, out, "decision: ")
}

func TestSearch_StatsFlagPrintsTelemetry(t *testing.T) {
	// Given: an indexed corpus
	cfgPath := writeTestConfig(t)
	corpus := writeFixture(t, "experts.jsonl", expertsFixture)
	_, err := runCommand(t, "--config", cfgPath, "index", "experts", corpus)
	require.NoError(t, err)

	// When: searching with --stats
	out, err := runCommand(t, "--config", cfgPath, "search", "logistics", "--stats")

	// Then: per-strategy telemetry for the run is printed
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy activity")
	assert.Contains(t, out, "runs")
}

func TestSearch_JSONFormat(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeFixture(t, "experts.jsonl", expertsFixture)
	_, err := runCommand(t, "--config", cfgPath, "index", "experts", corpus)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", cfgPath, "search", "renewable energy", "--format", "json")

	require.NoError(t, err)
	assert.Contains(t, out, `"query": "renewable energy"`)
	assert.Contains(t, out, `"quality"`)
}

func TestIndex_UnknownCollectionRejected(t *testing.T) {
	cfgPath := writeTestConfig(t)
	corpus := writeFixture(t, "experts.jsonl", expertsFixture)

	_, err := runCommand(t, "--config", cfgPath, "index", "widgets", corpus)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection")
}

func TestSessions_ListsAfterSearch(t *testing.T) {
	// Given: one completed search
	cfgPath := writeTestConfig(t)
	corpus := writeFixture(t, "experts.jsonl", expertsFixture)
	_, err := runCommand(t, "--config", cfgPath, "index", "experts", corpus)
	require.NoError(t, err)
	_, err = runCommand(t, "--config", cfgPath, "search", "logistics lead")
	require.NoError(t, err)

	// When: listing sessions
	out, err := runCommand(t, "--config", cfgPath, "sessions")

	// Then: the session with its search count appears
	require.NoError(t, err)
	assert.Contains(t, out, "searches 1")
	assert.Contains(t, out, `last: "logistics lead"`)
}

func TestStrategies_ShowsSeededTable(t *testing.T) {
	// Given: a fresh data dir
	cfgPath := writeTestConfig(t)

	// When: listing strategies
	out, err := runCommand(t, "--config", cfgPath, "strategies")

	// Then: all five seeded strategies appear
	require.NoError(t, err)
	for _, name := range []string{"direct_expert", "project_based", "skill_decomposition", "network_expansion", "semantic_similarity"} {
		assert.Contains(t, out, name)
	}
}

func TestFeedback_RecordsSatisfaction(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath, "feedback", "supply chain expert", "0.9")

	require.NoError(t, err)
	assert.Contains(t, out, "feedback recorded")
}

func TestMonitor_OnceSweepsCleanDataDir(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath, "monitor", "--once")

	require.NoError(t, err)
	assert.Contains(t, out, "0 searches retried")
}
