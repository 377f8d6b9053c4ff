package train

import (
	"math/rand/v2"
	"testing"

	"github.com/newthinker/retsign/internal/dataset"
	"github.com/newthinker/retsign/internal/evaluate"
	"github.com/newthinker/retsign/internal/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// separableSet labels a window 1 when its first value is positive.
func separableSet(rng *rand.Rand, n, seqLen int) *dataset.Set {
	set := &dataset.Set{SeqLen: seqLen}
	for i := 0; i < n; i++ {
		w := make([]float64, seqLen)
		for j := range w {
			w[j] = rng.NormFloat64() * 0.1
		}
		label := 0.0
		if i%2 == 0 {
			w[0] = 1
			label = 1
		} else {
			w[0] = -1
		}
		set.Windows = append(set.Windows, w)
		set.Labels = append(set.Labels, label)
		set.Next = append(set.Next, label-0.5)
	}
	return set
}

func newClassifier(t *testing.T, seed uint64) *nn.Classifier {
	t.Helper()
	arch := nn.Architecture{SeqLen: 8, Filters1: 4, Filters2: 4, Kernel1: 3, Kernel2: 3, FCUnits: 8}
	c, err := nn.NewClassifier(arch, rand.New(rand.NewPCG(seed, seed)))
	require.NoError(t, err)
	return c
}

func TestTrainer_ReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	set := separableSet(rng, 64, 8)
	c := newClassifier(t, 3)

	hist, err := New(16, nil).Run(c, nn.NewAdam(0.01), set, 30, rng)
	require.NoError(t, err)

	require.Len(t, hist.EpochLoss, 30)
	assert.Less(t, hist.Final(), hist.EpochLoss[0])
}

func TestTrainer_LearnsSeparableSetToPerfectAUC(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	set := separableSet(rng, 64, 8)
	c := newClassifier(t, 23)

	_, err := New(16, nil).Run(c, nn.NewAdam(0.01), set, 60, rng)
	require.NoError(t, err)

	res, err := evaluate.Evaluator{}.Evaluate(c, set.Windows, set.Labels)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.AUC)
}

func TestTrainer_MutatesWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 5))
	set := separableSet(rng, 10, 8)
	c := newClassifier(t, 6)
	before := append([]float64(nil), c.Params()[0].Value...)

	_, err := New(4, nil).Run(c, nn.NewAdam(0.01), set, 1, rng)
	require.NoError(t, err)

	assert.NotEqual(t, before, c.Params()[0].Value)
}

func TestTrainer_EmptySetIsNoOp(t *testing.T) {
	c := newClassifier(t, 7)
	before := append([]float64(nil), c.Params()[0].Value...)

	hist, err := New(32, nil).Run(c, nn.NewAdam(0.01), &dataset.Set{SeqLen: 8}, 3, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0}, hist.EpochLoss)
	assert.Equal(t, before, c.Params()[0].Value)
}

func TestTrainer_ZeroEpochs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	hist, err := New(8, nil).Run(newClassifier(t, 1), nn.NewAdam(0.01), separableSet(rng, 8, 8), 0, rng)
	require.NoError(t, err)
	assert.Empty(t, hist.EpochLoss)
	assert.Equal(t, 0.0, hist.Final())
}

func TestTrainer_DeterministicUnderSeed(t *testing.T) {
	run := func() []float64 {
		data := separableSet(rand.New(rand.NewPCG(10, 10)), 40, 8)
		c := newClassifier(t, 11)
		_, err := New(8, nil).Run(c, nn.NewAdam(0.005), data, 5, rand.New(rand.NewPCG(12, 12)))
		require.NoError(t, err)

		b, err := nn.NewBatch(data.Windows)
		require.NoError(t, err)
		out, err := c.Forward(b, false)
		require.NoError(t, err)
		return mat.Col(nil, 0, out)
	}

	assert.Equal(t, run(), run())
}

func TestNew_DefaultBatchSize(t *testing.T) {
	assert.Equal(t, dataset.DefaultBatchSize, New(0, nil).BatchSize())
	assert.Equal(t, 16, New(16, nil).BatchSize())
}
