package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expertscout/expertscout/internal/store"
)

func TestSummarize_FullProfile(t *testing.T) {
	c := &store.Candidate{
		Name:            "Alex Rivera",
		Headline:        "Supply chain director",
		Functions:       []string{"Supply Chain", "Logistics"},
		YearsExperience: 12,
		Bio:             "Led supply chain transformation across Southeast Asia.",
	}

	line := summarize(0, c)

	assert.Equal(t, "1. Alex Rivera — Supply chain director [Supply Chain, Logistics] (12 yrs): Led supply chain transformation across Southeast Asia.", line)
}

func TestSummarize_OmitsEmptyFields(t *testing.T) {
	line := summarize(2, &store.Candidate{Name: "Chen Wei"})

	assert.Equal(t, "3. Chen Wei", line)
}

func TestSummarize_TruncatesLongBio(t *testing.T) {
	c := &store.Candidate{
		Name: "Priya Shah",
		Bio:  strings.Repeat("logistics ", 40),
	}

	line := summarize(0, c)

	assert.True(t, strings.HasSuffix(line, "..."))
	assert.Less(t, len(line), 250)
}
