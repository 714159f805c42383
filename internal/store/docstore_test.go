package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocStore(t *testing.T) *DocStore {
	t.Helper()
	d, err := NewDocStore(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleExpert(id int64) *Candidate {
	return &Candidate{
		Collection:      CollectionExperts,
		ID:              id,
		Name:            "Alex Rivera",
		Headline:        "Supply chain advisor",
		Bio:             "15 years in Southeast Asian logistics networks.",
		BaseLocation:    "Singapore",
		Geographies:     []string{"Southeast Asia", "APAC"},
		Functions:       []string{"Supply Chain", "Operations"},
		YearsExperience: 15,
		WorkHistory: []WorkEntry{
			{Company: "Maersk", Role: "Regional Director", StartYear: 2015, EndYear: 2021},
		},
	}
}

func TestDocStore_PutGetRoundTrip(t *testing.T) {
	d := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, d.Put(ctx, []*Candidate{sampleExpert(1)}))

	got, err := d.Get(ctx, CollectionExperts, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alex Rivera", got.Name)
	assert.Equal(t, []string{"Supply Chain", "Operations"}, got.Functions)
	assert.Len(t, got.WorkHistory, 1)
	assert.Equal(t, "Maersk", got.WorkHistory[0].Company)
}

func TestDocStore_GetMissingReturnsNil(t *testing.T) {
	d := newTestDocStore(t)

	got, err := d.Get(context.Background(), CollectionExperts, 404)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDocStore_GetByIDsPreservesOrderSkipsMissing(t *testing.T) {
	d := newTestDocStore(t)
	ctx := context.Background()

	require.NoError(t, d.Put(ctx, []*Candidate{
		sampleExpert(1), sampleExpert(2), sampleExpert(3),
	}))

	got, err := d.GetByIDs(ctx, CollectionExperts, []int64{3, 99, 1})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestDocStore_CollectionsAreIsolated(t *testing.T) {
	d := newTestDocStore(t)
	ctx := context.Background()

	project := &Candidate{
		Collection:      CollectionProjects,
		ID:              1,
		Name:            "Port modernization",
		Bio:             "Automating container terminals",
		AgendaExpertIDs: []int64{4, 5},
	}
	require.NoError(t, d.Put(ctx, []*Candidate{sampleExpert(1), project}))

	gotExpert, err := d.Get(ctx, CollectionExperts, 1)
	require.NoError(t, err)
	gotProject, err := d.Get(ctx, CollectionProjects, 1)
	require.NoError(t, err)

	assert.Equal(t, "Alex Rivera", gotExpert.Name)
	assert.Equal(t, "Port modernization", gotProject.Name)
	assert.Equal(t, []int64{4, 5}, gotProject.AgendaExpertIDs)
}

func TestDocStore_PutReplacesExisting(t *testing.T) {
	d := newTestDocStore(t)
	ctx := context.Background()

	first := sampleExpert(1)
	require.NoError(t, d.Put(ctx, []*Candidate{first}))

	updated := sampleExpert(1)
	updated.Headline = "Logistics strategy lead"
	require.NoError(t, d.Put(ctx, []*Candidate{updated}))

	got, err := d.Get(ctx, CollectionExperts, 1)
	require.NoError(t, err)
	assert.Equal(t, "Logistics strategy lead", got.Headline)

	n, err := d.Count(ctx, CollectionExperts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDocStore_RejectsUnknownCollection(t *testing.T) {
	d := newTestDocStore(t)

	err := d.Put(context.Background(), []*Candidate{{Collection: "aliens", ID: 1}})

	assert.Error(t, err)
}

func TestCandidate_SearchText(t *testing.T) {
	c := sampleExpert(1)

	text := c.SearchText()

	assert.Contains(t, text, "Supply chain advisor")
	assert.Contains(t, text, "Southeast Asia")
	assert.Contains(t, text, "Regional Director Maersk")
}

func TestCandidate_PrimaryFunction(t *testing.T) {
	assert.Equal(t, "Supply Chain", sampleExpert(1).PrimaryFunction())
	assert.Equal(t, "", (&Candidate{}).PrimaryFunction())
}
