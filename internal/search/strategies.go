package search

import (
	"context"
	"log/slog"

	"github.com/expertscout/expertscout/internal/llm"
	"github.com/expertscout/expertscout/internal/store"
)

// Per-strategy fan-out limits.
const (
	maxDecompositionSkills = 5  // keywords expanded into skill searches
	hitsPerSkill           = 3  // candidates kept per skill search
	expansionSeeds         = 3  // top results expanded through their functions
	functionsPerSeed       = 2  // functions followed per seed
	hitsPerFunction        = 2  // candidates kept per function search
	minProjectExperts      = 5  // below this, profile backfill kicks in
	profileBackfillSources = 3  // project descriptions used for backfill
	hitsPerProfile         = 5  // candidates kept per generated profile
)

// semanticAlpha makes the vector channel dominate for the
// semantic_similarity strategy.
const semanticAlpha = 0.9

// harvestedScore is assigned to experts referenced directly by project
// agenda responses. An explicit reference outranks any fused match.
const harvestedScore = 1.0

// Executor runs one retrieval pass for a named strategy. Each strategy
// constructs its own queries over the shared source and fuser.
type Executor struct {
	source   *Source
	fuser    Fuser
	reasoner llm.Reasoner
	logger   *slog.Logger
}

// NewExecutor wires a strategy executor.
func NewExecutor(source *Source, fuser Fuser, reasoner llm.Reasoner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{source: source, fuser: fuser, reasoner: reasoner, logger: logger}
}

// Execute runs the named strategy and returns experts sorted by fused score
// descending. Unknown strategy names fall back to the direct search.
func (e *Executor) Execute(ctx context.Context, strategy string, interp Interpretation) ([]*ScoredCandidate, error) {
	switch strategy {
	case string(llm.KindSkillDecomposition):
		return e.skillDecomposition(ctx, interp)
	case string(llm.KindNetworkExpansion):
		return e.networkExpansion(ctx, interp)
	case string(llm.KindSemanticSimilarity):
		return e.semanticSimilarity(ctx, interp)
	case string(llm.KindProjectBased):
		return e.projectBased(ctx, interp)
	case string(llm.KindDirectExpert):
		return e.directExpert(ctx, interp)
	default:
		e.logger.Warn("unknown strategy, using direct search", slog.String("strategy", strategy))
		return e.directExpert(ctx, interp)
	}
}

// directExpert fans the paraphrases over both channels of the expert
// collection and fuses with the configured policy.
func (e *Executor) directExpert(ctx context.Context, interp Interpretation) ([]*ScoredCandidate, error) {
	return e.hybridSearch(ctx, interp.Paraphrases, e.fuser)
}

// semanticSimilarity is the direct search with vector-dominant fusion.
func (e *Executor) semanticSimilarity(ctx context.Context, interp Interpretation) ([]*ScoredCandidate, error) {
	return e.hybridSearch(ctx, interp.Paraphrases, vectorDominant(e.fuser))
}

// skillDecomposition searches each extracted keyword as its own skill query
// and keeps the top hits per skill. Duplicate candidates keep their best
// score across skills.
func (e *Executor) skillDecomposition(ctx context.Context, interp Interpretation) ([]*ScoredCandidate, error) {
	skills := interp.Keywords
	if len(skills) > maxDecompositionSkills {
		skills = skills[:maxDecompositionSkills]
	}
	if len(skills) == 0 {
		return e.directExpert(ctx, interp)
	}

	merged := newCandidateMerge()
	for _, skill := range skills {
		cands, err := e.hybridSearch(ctx, []string{"expert in " + skill}, e.fuser)
		if err != nil {
			e.logger.Warn("skill search failed",
				slog.String("skill", skill),
				slog.String("error", err.Error()))
			continue
		}
		if len(cands) > hitsPerSkill {
			cands = cands[:hitsPerSkill]
		}
		merged.add(cands)
	}
	return merged.sorted(), nil
}

// networkExpansion runs the direct search, then follows the primary
// functions of the top results to pull in adjacent experts.
func (e *Executor) networkExpansion(ctx context.Context, interp Interpretation) ([]*ScoredCandidate, error) {
	initial, err := e.directExpert(ctx, interp)
	if err != nil {
		return nil, err
	}
	if len(initial) == 0 {
		return initial, nil
	}

	merged := newCandidateMerge()
	merged.add(initial)

	seeds := initial
	if len(seeds) > expansionSeeds {
		seeds = seeds[:expansionSeeds]
	}
	for _, seed := range seeds {
		functions := seed.Candidate.Functions
		if len(functions) > functionsPerSeed {
			functions = functions[:functionsPerSeed]
		}
		for _, fn := range functions {
			similar, searchErr := e.hybridSearch(ctx, []string{"expert in " + fn}, e.fuser)
			if searchErr != nil {
				e.logger.Warn("expansion search failed",
					slog.String("function", fn),
					slog.String("error", searchErr.Error()))
				continue
			}
			if len(similar) > hitsPerFunction {
				similar = similar[:hitsPerFunction]
			}
			merged.add(similar)
		}
	}
	return merged.sorted(), nil
}

// projectBased searches the project collection, harvests experts referenced
// by agenda responses, and, when the harvest is thin, backfills by asking
// the reasoning model for an ideal expert profile per project description
// and searching that.
func (e *Executor) projectBased(ctx context.Context, interp Interpretation) ([]*ScoredCandidate, error) {
	if !e.source.HasCollection(store.CollectionProjects) {
		e.logger.Warn("project collection not indexed, using direct search")
		return e.directExpert(ctx, interp)
	}

	kw, vec, err := e.source.Retrieve(ctx, store.CollectionProjects, interp.Paraphrases)
	if err != nil {
		return nil, err
	}
	fused := e.fuser.Fuse(kw, vec)
	projects, err := e.source.Hydrate(ctx, store.CollectionProjects, fused, kw, vec)
	if err != nil {
		return nil, err
	}

	idSet := make(map[int64]bool)
	var expertIDs []int64
	var descriptions []string
	for _, p := range projects {
		for _, id := range p.Candidate.AgendaExpertIDs {
			if !idSet[id] {
				idSet[id] = true
				expertIDs = append(expertIDs, id)
			}
		}
		if desc := p.Candidate.Bio; desc != "" {
			descriptions = append(descriptions, desc)
		}
	}
	e.logger.Info("harvested expert references from project agendas",
		slog.Int("projects", len(projects)),
		slog.Int("experts", len(expertIDs)))

	merged := newCandidateMerge()
	if len(expertIDs) > 0 {
		experts, getErr := e.source.Docs().GetByIDs(ctx, store.CollectionExperts, expertIDs)
		if getErr != nil {
			return nil, getErr
		}
		harvested := make([]*ScoredCandidate, 0, len(experts))
		for _, doc := range experts {
			harvested = append(harvested, &ScoredCandidate{Candidate: doc, FusedScore: harvestedScore})
		}
		merged.add(harvested)
	}

	if merged.size() < minProjectExperts && len(descriptions) > 0 {
		if len(descriptions) > profileBackfillSources {
			descriptions = descriptions[:profileBackfillSources]
		}
		for _, desc := range descriptions {
			profile, profErr := e.reasoner.ExpertProfile(ctx, desc)
			if profErr != nil || profile == "" {
				continue
			}
			cands, searchErr := e.hybridSearch(ctx, []string{profile}, e.fuser)
			if searchErr != nil {
				e.logger.Warn("profile backfill search failed", slog.String("error", searchErr.Error()))
				continue
			}
			if len(cands) > hitsPerProfile {
				cands = cands[:hitsPerProfile]
			}
			merged.add(cands)
		}
	}

	return merged.sorted(), nil
}

// hybridSearch is the shared retrieve-fuse-hydrate pass over the expert
// collection.
func (e *Executor) hybridSearch(ctx context.Context, queries []string, fuser Fuser) ([]*ScoredCandidate, error) {
	kw, vec, err := e.source.Retrieve(ctx, store.CollectionExperts, queries)
	if err != nil {
		return nil, err
	}
	fused := fuser.Fuse(kw, vec)
	return e.source.Hydrate(ctx, store.CollectionExperts, fused, kw, vec)
}

// vectorDominant shifts the fusion policy toward the vector channel.
func vectorDominant(f Fuser) Fuser {
	switch f.(type) {
	case *WeightedRawFusion:
		return &WeightedRawFusion{
			KeywordWeight: DefaultKeywordWeight,
			VectorWeight:  DefaultVectorWeight * 2,
		}
	default:
		return &NormalizedFusion{Alpha: semanticAlpha}
	}
}

// candidateMerge folds candidate lists together, keeping the best fused
// score per key. First-seen order is remembered so candidates with equal
// scores come out in the order they were retrieved.
type candidateMerge struct {
	byKey map[string]*ScoredCandidate
	order []string
}

func newCandidateMerge() *candidateMerge {
	return &candidateMerge{byKey: make(map[string]*ScoredCandidate)}
}

func (m *candidateMerge) add(cands []*ScoredCandidate) {
	for _, c := range cands {
		existing, ok := m.byKey[c.Key()]
		if !ok {
			m.byKey[c.Key()] = c
			m.order = append(m.order, c.Key())
			continue
		}
		if c.FusedScore > existing.FusedScore {
			m.byKey[c.Key()] = c
		}
	}
}

func (m *candidateMerge) size() int { return len(m.byKey) }

func (m *candidateMerge) sorted() []*ScoredCandidate {
	out := make([]*ScoredCandidate, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.byKey[k])
	}
	sortByScore(out)
	return out
}
