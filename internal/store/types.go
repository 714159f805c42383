// Package store provides the retrieval backends for ExpertScout: a
// bleve keyword index and an HNSW vector index per collection, plus a
// sqlite document store holding the full candidate records.
package store

import (
	"fmt"
	"strings"
)

// Collection identifies a searchable corpus.
type Collection string

const (
	// CollectionExperts holds expert profiles.
	CollectionExperts Collection = "experts"
	// CollectionProjects holds project records.
	CollectionProjects Collection = "projects"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == CollectionExperts || c == CollectionProjects
}

// WorkEntry is one prior engagement in a candidate's work history.
type WorkEntry struct {
	Company   string `json:"company"`
	Role      string `json:"role"`
	StartYear int    `json:"start_year,omitempty"`
	EndYear   int    `json:"end_year,omitempty"`
}

// Candidate is a full record from one collection. Identity is the
// (Collection, ID) pair; Score is per-source and source-scaled.
type Candidate struct {
	Collection Collection `json:"collection"`
	ID         int64      `json:"id"`

	Name         string   `json:"name,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	Headline     string   `json:"headline,omitempty"`
	BaseLocation string   `json:"base_location,omitempty"`
	Geographies  []string `json:"geographies,omitempty"`
	Functions    []string `json:"functions,omitempty"`

	YearsExperience float64     `json:"years_experience,omitempty"`
	WorkHistory     []WorkEntry `json:"work_history,omitempty"`

	// AgendaExpertIDs holds expert ids referenced by a project's agenda
	// responses. Only populated for the projects collection.
	AgendaExpertIDs []int64 `json:"agenda_expert_ids,omitempty"`

	// Extra carries fields outside the structured schema.
	Extra map[string]any `json:"extra,omitempty"`

	Score float64 `json:"score,omitempty"`
}

// Key returns the candidate's identity as a string.
func (c *Candidate) Key() string {
	return fmt.Sprintf("%s:%d", c.Collection, c.ID)
}

// PrimaryFunction returns the candidate's first function, or "".
func (c *Candidate) PrimaryFunction() string {
	if len(c.Functions) == 0 {
		return ""
	}
	return c.Functions[0]
}

// SearchText builds the combined free-text body indexed for keyword
// search and embedded for vector search.
func (c *Candidate) SearchText() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{c.Name, c.Headline, c.Bio, c.BaseLocation} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(c.Functions) > 0 {
		parts = append(parts, strings.Join(c.Functions, " "))
	}
	if len(c.Geographies) > 0 {
		parts = append(parts, strings.Join(c.Geographies, " "))
	}
	for _, w := range c.WorkHistory {
		if w.Role != "" || w.Company != "" {
			parts = append(parts, strings.TrimSpace(w.Role+" "+w.Company))
		}
	}
	return strings.Join(parts, ". ")
}

// Hit is one scored match from a retrieval channel.
type Hit struct {
	ID int64
	// Score is raw and source-scaled: BM25 for the keyword channel,
	// cosine similarity for the vector channel.
	Score float64
	// MatchedTerms lists the index terms that matched, when available.
	MatchedTerms []string
}

// VectorStoreConfig configures an HNSW vector store.
type VectorStoreConfig struct {
	Dimensions int
	// M is the HNSW connectivity parameter.
	M int
	// EfSearch is the HNSW search expansion factor.
	EfSearch int
}

// DefaultVectorStoreConfig returns defaults for the given dimensionality.
func DefaultVectorStoreConfig(dims int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dims,
		M:          16,
		EfSearch:   20,
	}
}

// ErrDimensionMismatch reports a vector of the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
