package search

import (
	"sort"

	"github.com/Melik1986/sortcore/internal/config"
	"github.com/Melik1986/sortcore/internal/store"
)

// fusedCandidate is a resource id with its fused score, before the resource
// itself has been resolved from the record store.
type fusedCandidate struct {
	id         string
	score      float64
	strategies []Strategy
}

// Fuser combines per-strategy hit lists into a single candidate ranking using
// a weighted average over the strategies that matched, plus a small bonus per
// extra agreeing strategy. Normalizing by the sum of matched weights keeps a
// strong single-strategy hit competitive with a weak multi-strategy one;
// the agreement bonus then breaks ties in favor of corroborated results.
type Fuser struct {
	weights map[Strategy]float64
	bonus   float64
}

func NewFuser(w config.Weights, bonus float64) *Fuser {
	return &Fuser{
		weights: map[Strategy]float64{
			StrategySemantic: w.Semantic,
			StrategyLexical:  w.Lexical,
			StrategyKeyword:  w.Keyword,
			StrategyMetadata: w.Metadata,
			StrategyTag:      w.Tag,
		},
		bonus: bonus,
	}
}

// Fuse merges per-strategy hits. Candidates are ordered by score descending
// with id as the tiebreaker so identical inputs always produce identical
// output.
func (f *Fuser) Fuse(hits map[Strategy][]store.Hit) []fusedCandidate {
	type accum struct {
		weighted   float64
		weightSum  float64
		strategies []Strategy
	}
	acc := make(map[string]*accum)

	for _, strat := range AllStrategies() {
		w := f.weights[strat]
		if w <= 0 {
			continue
		}
		for _, h := range hits[strat] {
			a, ok := acc[h.ID]
			if !ok {
				a = &accum{}
				acc[h.ID] = a
			}
			a.weighted += w * h.Score
			a.weightSum += w
			a.strategies = append(a.strategies, strat)
		}
	}

	out := make([]fusedCandidate, 0, len(acc))
	for id, a := range acc {
		if a.weightSum == 0 {
			continue
		}
		score := a.weighted/a.weightSum + f.bonus*float64(len(a.strategies)-1)
		out = append(out, fusedCandidate{id: id, score: score, strategies: a.strategies})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	return out
}
