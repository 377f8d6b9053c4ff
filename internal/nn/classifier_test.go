package nn

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/newthinker/retsign/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomWindows(rng *rand.Rand, n, seqLen int) [][]float64 {
	windows := make([][]float64, n)
	for i := range windows {
		w := make([]float64, seqLen)
		for j := range w {
			w[j] = rng.NormFloat64() * 0.02
		}
		windows[i] = w
	}
	return windows
}

func TestArchitecture_FlatWidth(t *testing.T) {
	tests := []struct {
		seqLen, filters2, want int
	}{
		{50, 32, 32 * 12},
		{48, 16, 16 * 12},
		{51, 8, 8 * 12},
		{4, 3, 3},
	}
	for _, tc := range tests {
		a := Architecture{SeqLen: tc.seqLen, Filters2: tc.filters2}
		assert.Equalf(t, tc.want, a.FlatWidth(), "seq_length %d", tc.seqLen)
	}
}

func TestArchitecture_Validate(t *testing.T) {
	valid := Architecture{SeqLen: 50, Filters1: 4, Filters2: 8, Kernel1: 3, Kernel2: 5, FCUnits: 16}

	tests := []struct {
		name    string
		mutate  func(a *Architecture)
		wantErr bool
	}{
		{"valid odd kernels", func(a *Architecture) {}, false},
		{"seq_length not divisible by 4", func(a *Architecture) { a.SeqLen = 50 }, false},
		{"kernel larger than sequence", func(a *Architecture) { a.SeqLen = 8; a.Kernel1 = 11 }, false},
		{"seq_length below 4", func(a *Architecture) { a.SeqLen = 3 }, true},
		{"zero filters", func(a *Architecture) { a.Filters1 = 0 }, true},
		{"zero fc units", func(a *Architecture) { a.FCUnits = 0 }, true},
		{"even kernel breaks flattened width", func(a *Architecture) { a.SeqLen = 51; a.Kernel1 = 4 }, true},
		{"even second kernel", func(a *Architecture) { a.SeqLen = 54; a.Kernel2 = 2 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := valid
			tc.mutate(&a)
			err := a.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrArchitectureInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewClassifier_InvalidArchitectureFailsAtConstruction(t *testing.T) {
	_, err := NewClassifier(Architecture{SeqLen: 2, Filters1: 1, Filters2: 1, Kernel1: 3, Kernel2: 3, FCUnits: 1},
		rand.New(rand.NewPCG(1, 1)))
	assert.True(t, errors.Is(err, core.ErrArchitectureInvalid))
}

func TestNewClassifier_DenseShapeUsesFlooredWidth(t *testing.T) {
	arch := Architecture{SeqLen: 50, Filters1: 4, Filters2: 6, Kernel1: 3, Kernel2: 3, FCUnits: 10}
	c, err := NewClassifier(arch, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	assert.Equal(t, []int{6 * 12, 10}, c.fc1.w.Shape)
	assert.Equal(t, []int{4, 1, 3}, c.conv1.w.Shape)
	assert.Equal(t, []int{6, 4, 3}, c.conv2.w.Shape)
	assert.Len(t, c.Params(), 8)
}

func TestClassifier_OutputShapeAndRange(t *testing.T) {
	archs := []Architecture{
		{SeqLen: 50, Filters1: 8, Filters2: 16, Kernel1: 3, Kernel2: 5, FCUnits: 16},
		{SeqLen: 20, Filters1: 2, Filters2: 3, Kernel1: 7, Kernel2: 3, FCUnits: 4},
		{SeqLen: 9, Filters1: 1, Filters2: 1, Kernel1: 5, Kernel2: 5, FCUnits: 1},
	}
	rng := rand.New(rand.NewPCG(3, 4))

	for _, arch := range archs {
		c, err := NewClassifier(arch, rng)
		require.NoError(t, err)

		for _, n := range []int{1, 7, 32} {
			b, err := NewBatch(randomWindows(rng, n, arch.SeqLen))
			require.NoError(t, err)

			out, err := c.Forward(b, false)
			require.NoError(t, err)

			r, cols := out.Dims()
			assert.Equal(t, n, r)
			assert.Equal(t, 1, cols)
			for i := 0; i < r; i++ {
				p := out.At(i, 0)
				assert.True(t, p >= 0 && p <= 1, "probability %v out of range", p)
			}
		}
	}
}

func TestClassifier_ExtremeInputsStayInRange(t *testing.T) {
	arch := Architecture{SeqLen: 8, Filters1: 2, Filters2: 2, Kernel1: 3, Kernel2: 3, FCUnits: 2}
	c, err := NewClassifier(arch, rand.New(rand.NewPCG(5, 5)))
	require.NoError(t, err)

	windows := [][]float64{
		{1e6, 1e6, 1e6, 1e6, 1e6, 1e6, 1e6, 1e6},
		{-1e6, -1e6, -1e6, -1e6, -1e6, -1e6, -1e6, -1e6},
	}
	probs, err := c.Predict(windows)
	require.NoError(t, err)
	for _, p := range probs {
		assert.False(t, math.IsNaN(p))
		assert.True(t, p >= 0 && p <= 1)
	}
}

func TestClassifier_InferenceIsPure(t *testing.T) {
	arch := Architecture{SeqLen: 12, Filters1: 3, Filters2: 4, Kernel1: 3, Kernel2: 3, FCUnits: 5}
	rng := rand.New(rand.NewPCG(9, 9))
	c, err := NewClassifier(arch, rng)
	require.NoError(t, err)

	windows := randomWindows(rng, 6, 12)
	before := snapshot(c)

	p1, err := c.Predict(windows)
	require.NoError(t, err)
	p2, err := c.Predict(windows)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, before, snapshot(c))
}

func TestClassifier_SeededInitIsDeterministic(t *testing.T) {
	arch := Architecture{SeqLen: 16, Filters1: 3, Filters2: 4, Kernel1: 5, Kernel2: 3, FCUnits: 6}

	a, err := NewClassifier(arch, rand.New(rand.NewPCG(11, 12)))
	require.NoError(t, err)
	b, err := NewClassifier(arch, rand.New(rand.NewPCG(11, 12)))
	require.NoError(t, err)
	c, err := NewClassifier(arch, rand.New(rand.NewPCG(13, 14)))
	require.NoError(t, err)

	assert.Equal(t, snapshot(a), snapshot(b))
	assert.NotEqual(t, snapshot(a), snapshot(c))
}

func TestClassifier_RejectsMismatchedBatch(t *testing.T) {
	arch := Architecture{SeqLen: 8, Filters1: 1, Filters2: 1, Kernel1: 3, Kernel2: 3, FCUnits: 1}
	c, err := NewClassifier(arch, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	_, err = c.Predict([][]float64{{1, 2, 3}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = c.Forward(Batch{Channels: 1}, false)
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestNewBatch_RaggedWindows(t *testing.T) {
	_, err := NewBatch([][]float64{{1, 2}, {1}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestBatch_ChannelFirst(t *testing.T) {
	b := Batch{Size: 1, Len: 3, Channels: 2, Data: []float64{1, 10, 2, 20, 3, 30}}
	v := b.channelFirst()
	assert.Equal(t, []float64{1, 2, 3, 10, 20, 30}, v.data)
}

// TestClassifier_GradientsMatchFiniteDifferences checks Backward against
// central differences of the loss.
func TestClassifier_GradientsMatchFiniteDifferences(t *testing.T) {
	arch := Architecture{SeqLen: 8, Filters1: 2, Filters2: 2, Kernel1: 3, Kernel2: 3, FCUnits: 3}
	rng := rand.New(rand.NewPCG(21, 22))
	c, err := NewClassifier(arch, rng)
	require.NoError(t, err)
	// nudge biases off zero so ReLUs are not sitting on their kinks
	for _, p := range c.Params() {
		for i := range p.Value {
			p.Value[i] += 0.05 * rng.NormFloat64()
		}
	}

	windows := randomWindows(rng, 4, arch.SeqLen)
	for _, w := range windows {
		for j := range w {
			w[j] *= 50
		}
	}
	labels := []float64{1, 0, 1, 0}
	b, err := NewBatch(windows)
	require.NoError(t, err)
	loss := BinaryCrossEntropy{}

	ZeroGrad(c.Params())
	out, err := c.Forward(b, true)
	require.NoError(t, err)
	probs := mat.Col(nil, 0, out)
	c.Backward(loss.LogitGrad(probs, labels))

	lossAt := func() float64 {
		out, err := c.Forward(b, false)
		require.NoError(t, err)
		return loss.Loss(mat.Col(nil, 0, out), labels)
	}

	const h = 1e-6
	for _, p := range c.Params() {
		for i := range p.Value {
			orig := p.Value[i]
			p.Value[i] = orig + h
			up := lossAt()
			p.Value[i] = orig - h
			down := lossAt()
			p.Value[i] = orig

			numeric := (up - down) / (2 * h)
			assert.InDeltaf(t, numeric, p.Grad[i], 1e-5+1e-3*math.Abs(numeric),
				"%s[%d]: analytic %g numeric %g", p.Name, i, p.Grad[i], numeric)
		}
	}
}

func snapshot(c *Classifier) [][]float64 {
	var out [][]float64
	for _, p := range c.Params() {
		out = append(out, append([]float64(nil), p.Value...))
	}
	return out
}
