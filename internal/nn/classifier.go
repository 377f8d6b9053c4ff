package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/newthinker/retsign/internal/core"
	"gonum.org/v1/gonum/mat"
)

// Architecture fixes the shapes of a Classifier.
type Architecture struct {
	SeqLen   int
	Filters1 int
	Filters2 int
	Kernel1  int
	Kernel2  int
	FCUnits  int
}

// FlatWidth is the dense-layer input width implied by two pool-by-2 stages
// on a SeqLen sequence.
func (a Architecture) FlatWidth() int {
	return a.Filters2 * (a.SeqLen / 4)
}

// Validate traces sequence lengths through the convolution and pooling
// stack and fails when the result disagrees with FlatWidth or is empty.
func (a Architecture) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"seq_length", a.SeqLen},
		{"n_filters1", a.Filters1},
		{"n_filters2", a.Filters2},
		{"kernel_size1", a.Kernel1},
		{"kernel_size2", a.Kernel2},
		{"fc_units", a.FCUnits},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return a.invalid(fmt.Sprintf("%s must be positive, got %d", f.name, f.value))
		}
	}

	l1 := a.SeqLen + 2*(a.Kernel1/2) - a.Kernel1 + 1
	p1 := l1 / 2
	l2 := p1 + 2*(a.Kernel2/2) - a.Kernel2 + 1
	p2 := l2 / 2
	flat := a.FlatWidth()

	if flat == 0 {
		return a.invalid(fmt.Sprintf("flattened width is zero (seq_length %d < 4)", a.SeqLen))
	}
	if p2*a.Filters2 != flat {
		return a.invalid(fmt.Sprintf("stack yields %d features, dense layer expects %d", p2*a.Filters2, flat))
	}
	return nil
}

func (a Architecture) invalid(reason string) error {
	return core.WrapError(core.ErrArchitectureInvalid, fmt.Errorf("%s (%+v)", reason, a))
}

// Classifier maps a window of returns to the probability that the next
// return is positive.
type Classifier struct {
	arch  Architecture
	conv1 *conv1d
	pool1 *maxPool1d
	conv2 *conv1d
	pool2 *maxPool1d
	fc1   *dense
	fc2   *dense

	pooled volume // shape of the last training-mode pool output
}

// NewClassifier validates arch and returns a freshly initialised classifier
// whose weights are drawn from rng.
func NewClassifier(arch Architecture, rng *rand.Rand) (*Classifier, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{
		arch:  arch,
		conv1: newConv1d("conv1", 1, arch.Filters1, arch.Kernel1),
		pool1: &maxPool1d{},
		conv2: newConv1d("conv2", arch.Filters1, arch.Filters2, arch.Kernel2),
		pool2: &maxPool1d{},
		fc1:   newDense("fc1", arch.FlatWidth(), arch.FCUnits, true),
		fc2:   newDense("fc2", arch.FCUnits, 1, false),
	}

	heNormal(c.conv1.w, arch.Kernel1, rng)
	heNormal(c.conv2.w, arch.Filters1*arch.Kernel2, rng)
	heNormal(c.fc1.w, arch.FlatWidth(), rng)
	xavierNormal(c.fc2.w, arch.FCUnits, 1, rng)
	return c, nil
}

// Architecture returns the shape the classifier was built with.
func (c *Classifier) Architecture() Architecture {
	return c.arch
}

// Params returns every learnable tensor in a stable order.
func (c *Classifier) Params() []*Param {
	return []*Param{
		c.conv1.w, c.conv1.b,
		c.conv2.w, c.conv2.b,
		c.fc1.w, c.fc1.b,
		c.fc2.w, c.fc2.b,
	}
}

// Forward runs a (batch, seq_length, 1) batch through the network and
// returns a (batch, 1) matrix of probabilities. Training mode caches the
// activations Backward needs; inference mode leaves the classifier
// untouched.
func (c *Classifier) Forward(x Batch, training bool) (*mat.Dense, error) {
	if x.Size == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("empty batch"))
	}
	if x.Len != c.arch.SeqLen || x.Channels != 1 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("batch shape (%d, %d, %d) does not match (n, %d, 1)", x.Size, x.Len, x.Channels, c.arch.SeqLen))
	}

	h := x.channelFirst()
	h = c.conv1.forward(h, training)
	h = c.pool1.forward(h, training)
	h = c.conv2.forward(h, training)
	h = c.pool2.forward(h, training)
	if training {
		c.pooled = volume{n: h.n, c: h.c, l: h.l}
	}

	flat := mat.NewDense(h.n, h.c*h.l, h.data)
	z := c.fc1.forward(flat, training)
	z = c.fc2.forward(z, training)

	raw := z.RawMatrix()
	for i := 0; i < h.n; i++ {
		raw.Data[i*raw.Stride] = sigmoid(raw.Data[i*raw.Stride])
	}
	return z, nil
}

// Backward propagates dLoss/dlogit (one value per batch row, taken before
// the output sigmoid) through the network, accumulating into each
// Param.Grad. It must follow a training-mode Forward on the same batch.
func (c *Classifier) Backward(logitGrad []float64) {
	dz := mat.NewDense(len(logitGrad), 1, append([]float64(nil), logitGrad...))
	dh := c.fc2.backward(dz, true)
	dflat := c.fc1.backward(dh, true)

	dv := volume{n: c.pooled.n, c: c.pooled.c, l: c.pooled.l, data: dflat.RawMatrix().Data}
	dv = c.pool2.backward(dv)
	dv = c.conv2.backward(dv, true)
	dv = c.pool1.backward(dv)
	c.conv1.backward(dv, false)
}

// Predict returns one probability per window, computed in inference mode.
func (c *Classifier) Predict(windows [][]float64) ([]float64, error) {
	b, err := NewBatch(windows)
	if err != nil {
		return nil, err
	}
	out, err := c.Forward(b, false)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, out), nil
}
