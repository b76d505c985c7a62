package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Melik1986/sortcore/internal/config"
	"github.com/Melik1986/sortcore/internal/store"
)

func testFuser() *Fuser {
	return NewFuser(config.Weights{
		Semantic: 1.0,
		Lexical:  0.8,
		Keyword:  0.6,
		Metadata: 0.5,
		Tag:      0.5,
	}, 0.05)
}

func TestFuse_SingleStrategyKeepsScore(t *testing.T) {
	f := testFuser()

	out := f.Fuse(map[Strategy][]store.Hit{
		StrategySemantic: {{ID: "r1", Score: 0.7}},
	})

	require.Len(t, out, 1)
	// Weighted average over one strategy is the raw score, no bonus.
	assert.InDelta(t, 0.7, out[0].score, 1e-9)
	assert.Equal(t, []Strategy{StrategySemantic}, out[0].strategies)
}

func TestFuse_WeightedAverage(t *testing.T) {
	f := testFuser()

	out := f.Fuse(map[Strategy][]store.Hit{
		StrategySemantic: {{ID: "r1", Score: 0.9}},
		StrategyLexical:  {{ID: "r1", Score: 0.5}},
	})

	require.Len(t, out, 1)
	// (1.0*0.9 + 0.8*0.5) / 1.8 + bonus for one extra strategy.
	want := (1.0*0.9+0.8*0.5)/1.8 + 0.05
	assert.InDelta(t, want, out[0].score, 1e-9)
}

func TestFuse_AgreementMonotonicity(t *testing.T) {
	f := testFuser()

	// Same per-strategy score, increasing numbers of agreeing strategies.
	one := f.Fuse(map[Strategy][]store.Hit{
		StrategySemantic: {{ID: "r", Score: 0.6}},
	})
	two := f.Fuse(map[Strategy][]store.Hit{
		StrategySemantic: {{ID: "r", Score: 0.6}},
		StrategyKeyword:  {{ID: "r", Score: 0.6}},
	})
	three := f.Fuse(map[Strategy][]store.Hit{
		StrategySemantic: {{ID: "r", Score: 0.6}},
		StrategyKeyword:  {{ID: "r", Score: 0.6}},
		StrategyTag:      {{ID: "r", Score: 0.6}},
	})

	assert.Greater(t, two[0].score, one[0].score)
	assert.Greater(t, three[0].score, two[0].score)
}

func TestFuse_OrderingDeterministic(t *testing.T) {
	f := testFuser()

	hits := map[Strategy][]store.Hit{
		StrategyKeyword: {
			{ID: "b", Score: 0.5},
			{ID: "a", Score: 0.5},
			{ID: "c", Score: 0.9},
		},
	}
	out := f.Fuse(hits)

	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].id)
	// Equal scores fall back to id order.
	assert.Equal(t, "a", out[1].id)
	assert.Equal(t, "b", out[2].id)
}

func TestFuse_ZeroWeightStrategyIgnored(t *testing.T) {
	f := NewFuser(config.Weights{Semantic: 1.0}, 0)

	out := f.Fuse(map[Strategy][]store.Hit{
		StrategySemantic: {{ID: "r1", Score: 0.8}},
		StrategyKeyword:  {{ID: "r2", Score: 1.0}},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].id)
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, testFuser().Fuse(nil))
}
