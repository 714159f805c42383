//go:build ignore

// Package main generates a synthetic expert/project corpus for local
// testing and benchmarking.
// Usage: go run scripts/generate-corpus.go -experts 500 -projects 50 -output testdata
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numExperts  = flag.Int("experts", 500, "Number of expert records to generate")
	numProjects = flag.Int("projects", 50, "Number of project records to generate")
	outputDir   = flag.String("output", "testdata", "Output directory")
	seed        = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var firstNames = []string{
	"Alex", "Priya", "Chen", "Maria", "Tomás", "Aisha", "Jonas", "Yuki",
	"Fatima", "Lars", "Ngozi", "Mateo", "Ingrid", "Ravi", "Sofia", "Omar",
}

var lastNames = []string{
	"Rivera", "Shah", "Wei", "Lopez", "Okafor", "Tanaka", "Berg", "Haddad",
	"Nguyen", "Kowalski", "Mbeki", "Silva", "Andersen", "Rao", "Costa", "Khan",
}

var functions = []string{
	"Supply Chain", "Logistics", "Energy", "Marketing", "Finance",
	"Pricing", "Manufacturing", "Healthcare", "Retail", "Technology",
}

var regions = []string{
	"Southeast Asia", "Western Europe", "North America", "Latin America",
	"Sub-Saharan Africa", "Middle East", "East Asia", "Nordics",
}

var bioTemplates = []string{
	"Led %s transformation across %s for a global advisory group.",
	"Two decades of %s leadership with deep operator experience in %s.",
	"Advised boards on %s strategy, primarily serving clients in %s.",
	"Built and scaled %s teams across %s before moving into consulting.",
}

var projectTemplates = []string{
	"Market entry assessment for %s providers in %s.",
	"Due diligence on a %s platform operating across %s.",
	"Cost benchmarking study for %s operations in %s.",
}

type record struct {
	Collection      string   `json:"collection"`
	ID              int64    `json:"id"`
	Name            string   `json:"name,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Headline        string   `json:"headline,omitempty"`
	BaseLocation    string   `json:"base_location,omitempty"`
	Functions       []string `json:"functions,omitempty"`
	YearsExperience float64  `json:"years_experience,omitempty"`
	AgendaExpertIDs []int64  `json:"agenda_expert_ids,omitempty"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := writeJSONL(filepath.Join(*outputDir, "experts.jsonl"), experts(rng)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := writeJSONL(filepath.Join(*outputDir, "projects.jsonl"), projects(rng)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d experts and %d projects to %s\n", *numExperts, *numProjects, *outputDir)
}

func experts(rng *rand.Rand) []record {
	recs := make([]record, *numExperts)
	for i := range recs {
		fn := functions[rng.Intn(len(functions))]
		region := regions[rng.Intn(len(regions))]
		recs[i] = record{
			Collection:      "experts",
			ID:              int64(i + 1),
			Name:            firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))],
			Headline:        fn + " advisor",
			Bio:             fmt.Sprintf(bioTemplates[rng.Intn(len(bioTemplates))], fn, region),
			BaseLocation:    region,
			Functions:       []string{fn},
			YearsExperience: float64(2 + rng.Intn(25)),
		}
	}
	return recs
}

func projects(rng *rand.Rand) []record {
	recs := make([]record, *numProjects)
	for i := range recs {
		fn := functions[rng.Intn(len(functions))]
		region := regions[rng.Intn(len(regions))]

		// Reference a handful of experts as past agenda participants.
		agenda := make([]int64, 2+rng.Intn(4))
		for j := range agenda {
			agenda[j] = int64(1 + rng.Intn(*numExperts))
		}

		recs[i] = record{
			Collection:      "projects",
			ID:              int64(i + 1),
			Headline:        fn + " engagement",
			Bio:             fmt.Sprintf(projectTemplates[rng.Intn(len(projectTemplates))], fn, region),
			AgendaExpertIDs: agenda,
		}
	}
	return recs
}

func writeJSONL(path string, recs []record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := range recs {
		if err := enc.Encode(&recs[i]); err != nil {
			return err
		}
	}
	return nil
}
