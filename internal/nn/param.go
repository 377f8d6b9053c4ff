// Package nn implements the small 1-D convolutional binary classifier used
// to predict the sign of the next return, together with its loss and
// optimizer.
package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Param is a learnable tensor with its accumulated gradient.
type Param struct {
	Name  string
	Shape []int
	Value []float64
	Grad  []float64
}

func newParam(name string, shape ...int) *Param {
	size := 1
	for _, s := range shape {
		size *= s
	}
	return &Param{
		Name:  name,
		Shape: shape,
		Value: make([]float64, size),
		Grad:  make([]float64, size),
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	clear(p.Grad)
}

// heNormal fills p with N(0, 2/fanIn) samples drawn from rng.
func heNormal(p *Param, fanIn int, rng *rand.Rand) {
	dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(fanIn)), Src: rng}
	for i := range p.Value {
		p.Value[i] = dist.Rand()
	}
}

// xavierNormal fills p with N(0, 2/(fanIn+fanOut)) samples drawn from rng.
func xavierNormal(p *Param, fanIn, fanOut int, rng *rand.Rand) {
	dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(fanIn+fanOut)), Src: rng}
	for i := range p.Value {
		p.Value[i] = dist.Rand()
	}
}
