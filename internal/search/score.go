package search

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/relaymesh/collector/internal/prepare"
)

// Keyword scoring weights: term coverage dominates, term frequency refines,
// and a length factor nudges short documents up.
const (
	coverageWeight   = 0.6
	tfWeight         = 0.3
	lengthWeight     = 0.1
	referenceDocLen  = 2000
	tfSaturation     = 3.0
	coalesceCap      = 0.15
	coalescePerChunk = 0.05
	recencyWeight    = 0.08
)

// KeywordScore scores content against query terms. No matched term scores 0;
// an exact single-term match in a reference-length document scores 0.8.
func KeywordScore(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	docLength := float64(len(content))
	if docLength < referenceDocLen {
		docLength = referenceDocLen
	}

	matched := 0
	tfSum := 0.0
	for _, term := range terms {
		count := strings.Count(lower, term)
		if count == 0 {
			continue
		}
		matched++
		tfSum += 1 + math.Log(float64(count))
	}
	if matched == 0 {
		return 0
	}

	coverage := float64(matched) / float64(len(terms))
	normTF := math.Min(1, tfSum/float64(len(terms))/tfSaturation)
	lengthFactor := 1 / (1 + math.Log(docLength/referenceDocLen))

	score := coverageWeight*coverage + tfWeight*normTF + lengthWeight*lengthFactor
	return clamp01(score)
}

// VectorScore converts a cosine distance into a similarity score.
func VectorScore(distance float32) float64 {
	return math.Max(0, 1-float64(distance))
}

// coalesce deduplicates chunk results: chunks sharing a parentDocId collapse
// to the single best-scoring chunk, whose score gains a synergy boost
// growing with the number of matched chunks. Standalone items pass through.
func coalesce(results []Result) []Result {
	type group struct {
		best  Result
		count int
		order int
	}
	groups := make(map[string]*group)
	var keys []string

	for _, r := range results {
		key := string(r.Source) + "\x00"
		if pid, _ := r.Metadata[prepare.MetaParentDocID].(string); pid != "" {
			key += pid
		} else {
			key += r.ID
		}
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{best: r, count: 1}
			keys = append(keys, key)
			continue
		}
		g.count++
		if r.Score > g.best.Score || (r.Score == g.best.Score && r.ID < g.best.ID) {
			g.best = r
		}
	}

	out := make([]Result, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		if g.count > 1 {
			boost := math.Min(math.Log(float64(g.count))*coalescePerChunk, coalesceCap)
			g.best.Score = math.Min(1, g.best.Score*(1+boost))
		}
		out = append(out, g.best)
	}
	return out
}

// applyBoosts multiplies the relevance blend, title match, and recency
// boosts into the score, then clamps. All boosts compose multiplicatively;
// the chain order is fixed for test determinism.
func applyBoosts(r *Result, query string, now time.Time) {
	score := r.Score
	score *= relevanceBlend(r.Metadata)
	score *= titleBoost(r.Metadata, query)
	score *= recencyBoost(r.Source.RecencyHalfLifeDays(), r.Metadata, now)
	r.Score = clamp01(score)
}

// relevanceBlend folds a connector-supplied relevance_score in [0,1] into
// the final score.
func relevanceBlend(meta map[string]any) float64 {
	rs, ok := numeric(meta["relevance_score"])
	if !ok || rs < 0 || rs > 1 {
		return 1
	}
	return 0.85 + 0.35*rs
}

// titleBoost rewards query matches in the title (or, for mail, the
// subject). An exact match boosts 1.3; partial token matches scale with the
// fraction of tokens found.
func titleBoost(meta map[string]any, query string) float64 {
	field, _ := meta["title"].(string)
	if field == "" {
		field, _ = meta["subject"].(string)
	}
	if field == "" {
		return 1
	}

	fieldLower := strings.ToLower(field)
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if fieldLower == queryLower {
		return 1.3
	}

	tokens := strings.Fields(queryLower)
	if len(tokens) == 0 {
		return 1
	}
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(fieldLower, tok) {
			matched++
		}
	}
	if matched == 0 {
		return 1
	}
	return 1 + 0.2*(float64(matched)/float64(len(tokens)))
}

// recencyBoost decays with the document age on the source's half-life.
func recencyBoost(halfLifeDays float64, meta map[string]any, now time.Time) float64 {
	raw, _ := meta["updatedAt"].(string)
	if raw == "" {
		return 1
	}
	updated, ok := prepare.ParseTimestamp(raw)
	if !ok {
		return 1
	}
	days := now.Sub(updated).Hours() / 24
	if days < 0 {
		days = 0
	}
	recency := math.Pow(0.5, days/halfLifeDays)
	return 1 + recencyWeight*recency
}

// sortResults orders by descending score, ties broken by id so pagination
// is reproducible.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

// paginate slices [offset, offset+limit) out of the full list.
func paginate(results []Result, limit, offset int) []Result {
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
