package dataset

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/newthinker/retsign/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	got, err := Returns([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)
}

func TestReturns_TooShort(t *testing.T) {
	_, err := Returns([]float64{100})
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestReturns_NonPositiveClose(t *testing.T) {
	_, err := Returns([]float64{100, 0, 5})
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestWindower_Build(t *testing.T) {
	returns := []float64{0.1, -0.2, 0.3, 0, -0.1, 0.2}

	set, err := Windower{}.Build(returns, 3)
	require.NoError(t, err)

	require.Equal(t, 3, set.Len())
	assert.Equal(t, []float64{0.1, -0.2, 0.3}, set.Windows[0])
	assert.Equal(t, []float64{-0.2, 0.3, 0}, set.Windows[1])
	assert.Equal(t, []float64{0.3, 0, -0.1}, set.Windows[2])

	// zero is not strictly positive
	assert.Equal(t, []float64{0, 0, 1}, set.Labels)
	assert.Equal(t, []float64{0, -0.1, 0.2}, set.Next)
	assert.Equal(t, 1, set.Positives())

	for _, w := range set.Windows {
		assert.Len(t, w, 3)
	}
}

func TestWindower_Build_CopiesWindows(t *testing.T) {
	returns := []float64{1, 2, 3, 4}
	set, err := Windower{}.Build(returns, 2)
	require.NoError(t, err)

	returns[0] = 99
	assert.Equal(t, 1.0, set.Windows[0][0])
}

func TestWindower_Build_TooShortIsEmpty(t *testing.T) {
	set, err := Windower{}.Build([]float64{0.1, 0.2}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestWindower_Build_InvalidSeqLen(t *testing.T) {
	_, err := Windower{}.Build([]float64{0.1, 0.2}, 0)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestSplit(t *testing.T) {
	set := syntheticSet(100, 4)

	train, valid, err := Split(set, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 80, train.Len())
	assert.Equal(t, 20, valid.Len())
	// chronological: validation starts right after training
	assert.Equal(t, set.Windows[80], valid.Windows[0])
}

func TestSplit_ZeroFractionSharesFullSet(t *testing.T) {
	set := syntheticSet(10, 4)

	train, valid, err := Split(set, 0)
	require.NoError(t, err)
	assert.Same(t, set, train)
	assert.Same(t, set, valid)
}

func TestSplit_InvalidFraction(t *testing.T) {
	set := syntheticSet(10, 4)
	for _, f := range []float64{-0.1, 0.95} {
		_, _, err := Split(set, f)
		assert.Truef(t, errors.Is(err, core.ErrConfigInvalid), "fraction %v", f)
	}
}

func TestBatches_PartitionsAllIndices(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	batches := Batches(70, 32, rng)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 32)
	assert.Len(t, batches[1], 32)
	assert.Len(t, batches[2], 6)

	var all []int
	for _, b := range batches {
		all = append(all, b...)
	}
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestBatches_DeterministicUnderSeed(t *testing.T) {
	a := Batches(50, 8, rand.New(rand.NewPCG(7, 7)))
	b := Batches(50, 8, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestBatches_Empty(t *testing.T) {
	assert.Nil(t, Batches(0, 32, rand.New(rand.NewPCG(1, 1))))
}

func TestSet_Gather(t *testing.T) {
	set := syntheticSet(5, 2)
	windows, labels := set.Gather([]int{4, 1})
	assert.Equal(t, set.Windows[4], windows[0])
	assert.Equal(t, set.Windows[1], windows[1])
	assert.Equal(t, []float64{set.Labels[4], set.Labels[1]}, labels)
}

func syntheticSet(n, seqLen int) *Set {
	returns := make([]float64, n+seqLen)
	for i := range returns {
		if i%3 == 0 {
			returns[i] = -0.01 * float64(i)
		} else {
			returns[i] = 0.01 * float64(i)
		}
	}
	set, _ := Windower{}.Build(returns, seqLen)
	return set
}

func TestSet_CheckScorable(t *testing.T) {
	tests := []struct {
		name   string
		labels []float64
		ok     bool
	}{
		{"empty", nil, false},
		{"single window", []float64{1}, false},
		{"all positive", []float64{1, 1, 1}, false},
		{"all negative", []float64{0, 0}, false},
		{"both classes", []float64{0, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := &Set{SeqLen: 1, Labels: tt.labels, Windows: make([][]float64, len(tt.labels))}
			err := set.CheckScorable()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, core.ErrInsufficientData), "got %v", err)
		})
	}
}
