package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// volume is a channel-first activation block laid out as (batch, channel, length).
type volume struct {
	n, c, l int
	data    []float64
}

func newVolume(n, c, l int) volume {
	return volume{n: n, c: c, l: l, data: make([]float64, n*c*l)}
}

func (v volume) idx(b, c, t int) int {
	return (b*v.c+c)*v.l + t
}

// sample returns the (channel, length) block of batch element b.
func (v volume) sample(b int) []float64 {
	size := v.c * v.l
	return v.data[b*size : (b+1)*size]
}

// conv1d is a stride-1 convolution with "same"-style padding kernel/2,
// followed by ReLU. Weights are laid out as [out][in][kernel].
type conv1d struct {
	in, out, kernel, pad int
	w, b                 *Param

	// training caches
	cols []*mat.Dense
	act  volume
	inL  int
}

func newConv1d(name string, in, out, kernel int) *conv1d {
	return &conv1d{
		in:     in,
		out:    out,
		kernel: kernel,
		pad:    kernel / 2,
		w:      newParam(name+".weight", out, in, kernel),
		b:      newParam(name+".bias", out),
	}
}

func (c *conv1d) outLen(l int) int {
	return l + 2*c.pad - c.kernel + 1
}

// im2col lays out the receptive fields of batch element b as rows of a
// (outLen × in*kernel) matrix.
func (c *conv1d) im2col(x volume, b, lo int) *mat.Dense {
	width := c.in * c.kernel
	cols := mat.NewDense(lo, width, nil)
	raw := cols.RawMatrix()
	for t := 0; t < lo; t++ {
		row := raw.Data[t*raw.Stride : t*raw.Stride+width]
		for i := 0; i < c.in; i++ {
			base := x.idx(b, i, 0)
			for j := 0; j < c.kernel; j++ {
				src := t + j - c.pad
				if src >= 0 && src < x.l {
					row[i*c.kernel+j] = x.data[base+src]
				}
			}
		}
	}
	return cols
}

func (c *conv1d) forward(x volume, training bool) volume {
	lo := c.outLen(x.l)
	y := newVolume(x.n, c.out, lo)
	w := mat.NewDense(c.out, c.in*c.kernel, c.w.Value)

	if training {
		c.cols = make([]*mat.Dense, x.n)
		c.inL = x.l
	}
	for b := 0; b < x.n; b++ {
		cols := c.im2col(x, b, lo)
		yb := mat.NewDense(c.out, lo, y.sample(b))
		yb.Mul(w, cols.T())
		for o := 0; o < c.out; o++ {
			row := y.data[y.idx(b, o, 0) : y.idx(b, o, 0)+lo]
			for t := range row {
				row[t] = math.Max(0, row[t]+c.b.Value[o])
			}
		}
		if training {
			c.cols[b] = cols
		}
	}
	if training {
		c.act = y
	}
	return y
}

// backward accumulates weight gradients and, when needInput is set,
// returns the gradient with respect to the layer input.
func (c *conv1d) backward(dy volume, needInput bool) volume {
	lo := dy.l
	width := c.in * c.kernel
	w := mat.NewDense(c.out, width, c.w.Value)
	gw := mat.NewDense(c.out, width, nil)

	var dx volume
	if needInput {
		dx = newVolume(dy.n, c.in, c.inL)
	}
	for b := 0; b < dy.n; b++ {
		// ReLU mask
		db := dy.sample(b)
		act := c.act.sample(b)
		for k := range db {
			if act[k] <= 0 {
				db[k] = 0
			}
		}
		for o := 0; o < c.out; o++ {
			c.b.Grad[o] += floats.Sum(db[o*lo : (o+1)*lo])
		}

		dyb := mat.NewDense(c.out, lo, db)
		gw.Mul(dyb, c.cols[b])
		floats.Add(c.w.Grad, gw.RawMatrix().Data)

		if needInput {
			dcols := mat.NewDense(lo, width, nil)
			dcols.Mul(dyb.T(), w)
			raw := dcols.RawMatrix()
			for t := 0; t < lo; t++ {
				row := raw.Data[t*raw.Stride : t*raw.Stride+width]
				for i := 0; i < c.in; i++ {
					base := dx.idx(b, i, 0)
					for j := 0; j < c.kernel; j++ {
						src := t + j - c.pad
						if src >= 0 && src < c.inL {
							dx.data[base+src] += row[i*c.kernel+j]
						}
					}
				}
			}
		}
	}
	return dx
}

// maxPool1d pools non-overlapping pairs; an odd trailing element is dropped.
type maxPool1d struct {
	argmax []int
	inL    int
}

func (p *maxPool1d) forward(x volume, training bool) volume {
	lo := x.l / 2
	y := newVolume(x.n, x.c, lo)
	var argmax []int
	if training {
		argmax = make([]int, len(y.data))
	}
	for b := 0; b < x.n; b++ {
		for ch := 0; ch < x.c; ch++ {
			for t := 0; t < lo; t++ {
				i := x.idx(b, ch, 2*t)
				if x.data[i+1] > x.data[i] {
					i++
				}
				out := y.idx(b, ch, t)
				y.data[out] = x.data[i]
				if training {
					argmax[out] = i
				}
			}
		}
	}
	if training {
		p.argmax = argmax
		p.inL = x.l
	}
	return y
}

func (p *maxPool1d) backward(dy volume) volume {
	dx := newVolume(dy.n, dy.c, p.inL)
	for out, src := range p.argmax {
		dx.data[src] += dy.data[out]
	}
	return dx
}

// dense is a fully-connected layer with weights laid out as [in][out] and
// an optional ReLU.
type dense struct {
	in, out int
	relu    bool
	w, b    *Param

	x   *mat.Dense
	act *mat.Dense
}

func newDense(name string, in, out int, relu bool) *dense {
	return &dense{
		in:   in,
		out:  out,
		relu: relu,
		w:    newParam(name+".weight", in, out),
		b:    newParam(name+".bias", out),
	}
}

func (d *dense) forward(x *mat.Dense, training bool) *mat.Dense {
	n, _ := x.Dims()
	w := mat.NewDense(d.in, d.out, d.w.Value)
	z := mat.NewDense(n, d.out, nil)
	z.Mul(x, w)

	raw := z.RawMatrix()
	for i := 0; i < n; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+d.out]
		floats.Add(row, d.b.Value)
		if d.relu {
			for j, v := range row {
				row[j] = math.Max(0, v)
			}
		}
	}
	if training {
		d.x = x
		d.act = z
	}
	return z
}

func (d *dense) backward(dz *mat.Dense, needInput bool) *mat.Dense {
	n, _ := dz.Dims()
	raw := dz.RawMatrix()
	for i := 0; i < n; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+d.out]
		if d.relu {
			act := d.act.RawRowView(i)
			for j := range row {
				if act[j] <= 0 {
					row[j] = 0
				}
			}
		}
		floats.Add(d.b.Grad, row)
	}

	gw := mat.NewDense(d.in, d.out, nil)
	gw.Mul(d.x.T(), dz)
	floats.Add(d.w.Grad, gw.RawMatrix().Data)

	if !needInput {
		return nil
	}
	w := mat.NewDense(d.in, d.out, d.w.Value)
	dx := mat.NewDense(n, d.in, nil)
	dx.Mul(dz, w.T())
	return dx
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
