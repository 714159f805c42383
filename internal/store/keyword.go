package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
)

const (
	// maxSearchKeywords caps the keyword terms used in one query.
	maxSearchKeywords = 10
	// maxPhraseKeywords caps the keywords folded into the phrase clause.
	maxPhraseKeywords = 5
)

var keywordSanitizeRE = regexp.MustCompile(`[^\w\s-]`)

// SanitizeKeywords strips punctuation, drops single-character tokens,
// and caps the keyword list used for retrieval.
func SanitizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		clean := strings.TrimSpace(keywordSanitizeRE.ReplaceAllString(kw, ""))
		if len(clean) > 1 {
			out = append(out, clean)
		}
		if len(out) == maxSearchKeywords {
			break
		}
	}
	return out
}

// IndexDoc is one document prepared for keyword indexing.
type IndexDoc struct {
	ID   int64
	Text string
}

// bleveDoc is the stored document shape.
type bleveDoc struct {
	Text string `json:"text"`
}

// KeywordIndex wraps a bleve index for one collection.
type KeywordIndex struct {
	mu         sync.RWMutex
	index      bleve.Index
	collection Collection
	path       string
	closed     bool
}

// NewKeywordIndex opens or creates the keyword index for a collection.
// An empty path creates an in-memory index.
func NewKeywordIndex(path string, collection Collection) (*KeywordIndex, error) {
	mapping := bleve.NewIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	return &KeywordIndex{
		index:      idx,
		collection: collection,
		path:       path,
	}, nil
}

// Collection returns the collection this index serves.
func (k *KeywordIndex) Collection() Collection {
	return k.collection
}

// Index adds documents in one batch.
func (k *KeywordIndex) Index(ctx context.Context, docs []IndexDoc) error {
	if len(docs) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return fmt.Errorf("keyword index is closed")
	}

	batch := k.index.NewBatch()
	for _, doc := range docs {
		id := strconv.FormatInt(doc.ID, 10)
		if err := batch.Index(id, bleveDoc{Text: doc.Text}); err != nil {
			return fmt.Errorf("index document %s: %w", id, err)
		}
	}

	if err := k.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Search runs a keyword query built from the given terms: one fuzzy
// match clause per sanitized keyword plus a phrase clause over the
// first few, any single clause sufficing for a match. An empty keyword
// list returns no hits.
func (k *KeywordIndex) Search(ctx context.Context, keywords []string, limit int) ([]Hit, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}

	terms := SanitizeKeywords(keywords)
	if len(terms) == 0 {
		return []Hit{}, nil
	}

	boolQuery := bleve.NewBooleanQuery()
	for _, term := range terms {
		mq := bleve.NewMatchQuery(term)
		mq.SetField("text")
		mq.SetFuzziness(1)
		boolQuery.AddShould(mq)
	}

	phraseTerms := terms
	if len(phraseTerms) > maxPhraseKeywords {
		phraseTerms = phraseTerms[:maxPhraseKeywords]
	}
	if len(phraseTerms) > 1 {
		pq := bleve.NewMatchPhraseQuery(strings.Join(phraseTerms, " "))
		pq.SetField("text")
		boolQuery.AddShould(pq)
	}
	boolQuery.SetMinShould(1)

	req := bleve.NewSearchRequest(boolQuery)
	req.Size = limit
	req.IncludeLocations = true

	result, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{
			ID:           id,
			Score:        hit.Score,
			MatchedTerms: matchedTerms(hit),
		})
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (k *KeywordIndex) Count() int {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return 0
	}
	n, _ := k.index.DocCount()
	return int(n)
}

// Close closes the underlying index.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.index.Close()
}

// matchedTerms extracts the distinct matched terms from a hit.
func matchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field != "text" {
			continue
		}
		for term := range locations {
			seen[term] = struct{}{}
		}
	}

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	return terms
}
