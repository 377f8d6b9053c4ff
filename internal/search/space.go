// Package search finds the classifier configuration with the highest
// held-out ROC-AUC by sampling a declared hyperparameter space under a
// fixed trial budget.
package search

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/newthinker/retsign/internal/core"
	"github.com/newthinker/retsign/internal/nn"
	"gonum.org/v1/gonum/stat/distuv"
)

// Field names of the hyperparameter configuration.
const (
	FieldFilters1     = "n_filters1"
	FieldFilters2     = "n_filters2"
	FieldKernel1      = "kernel_size1"
	FieldKernel2      = "kernel_size2"
	FieldFCUnits      = "fc_units"
	FieldLearningRate = "learning_rate"
	FieldEpochs       = "epochs"
)

// Kind is the value type of a search dimension.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

var fieldKinds = map[string]Kind{
	FieldFilters1:     KindInt,
	FieldFilters2:     KindInt,
	FieldKernel1:      KindInt,
	FieldKernel2:      KindInt,
	FieldFCUnits:      KindInt,
	FieldLearningRate: KindFloat,
	FieldEpochs:       KindInt,
}

// Param declares one search dimension. Integer dimensions draw uniformly
// from {Min, Min+Step, ...} up to Max (Step 0 means 1). Float dimensions
// draw uniformly from [Min, Max], on a log scale when Log is set.
type Param struct {
	Name string  `json:"name" msgpack:"name"`
	Kind Kind    `json:"kind" msgpack:"kind"`
	Min  float64 `json:"min" msgpack:"min"`
	Max  float64 `json:"max" msgpack:"max"`
	Step float64 `json:"step,omitempty" msgpack:"step,omitempty"`
	Log  bool    `json:"log,omitempty" msgpack:"log,omitempty"`
}

// Space is the ordered search-space table. Sampling visits the params in
// order, which keeps draws reproducible for a given seed.
type Space []Param

// DefaultSpace returns the reference search space. Kernel sizes step over
// odd values so "same" padding keeps sequence lengths intact.
func DefaultSpace() Space {
	return Space{
		{Name: FieldFilters1, Kind: KindInt, Min: 8, Max: 32},
		{Name: FieldFilters2, Kind: KindInt, Min: 16, Max: 64},
		{Name: FieldKernel1, Kind: KindInt, Min: 3, Max: 7, Step: 2},
		{Name: FieldKernel2, Kind: KindInt, Min: 3, Max: 7, Step: 2},
		{Name: FieldFCUnits, Kind: KindInt, Min: 16, Max: 64},
		{Name: FieldLearningRate, Kind: KindFloat, Min: 1e-4, Max: 1e-2, Log: true},
		{Name: FieldEpochs, Kind: KindInt, Min: 5, Max: 30},
	}
}

// Point returns a space collapsed onto a single configuration.
func Point(hp HyperParams) Space {
	s := DefaultSpace()
	values := hp.Map()
	for i := range s {
		v := toFloat(values[s[i].Name])
		s[i].Min, s[i].Max, s[i].Step, s[i].Log = v, v, 0, false
	}
	return s
}

// Validate checks that every field is declared exactly once with sane
// bounds.
func (s Space) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		kind, ok := fieldKinds[p.Name]
		if !ok {
			return invalidSpace("unknown field %q", p.Name)
		}
		if seen[p.Name] {
			return invalidSpace("field %q declared twice", p.Name)
		}
		seen[p.Name] = true

		if p.Kind != kind {
			return invalidSpace("field %q must be %s, got %q", p.Name, kind, p.Kind)
		}
		if p.Min > p.Max {
			return invalidSpace("field %q: min %v > max %v", p.Name, p.Min, p.Max)
		}
		if p.Log && p.Min <= 0 {
			return invalidSpace("field %q: log scale needs min > 0, got %v", p.Name, p.Min)
		}
		if p.Step < 0 {
			return invalidSpace("field %q: negative step %v", p.Name, p.Step)
		}
		switch kind {
		case KindInt:
			if !isInt(p.Min) || !isInt(p.Max) || !isInt(p.Step) {
				return invalidSpace("field %q: integer bounds required, got [%v, %v] step %v", p.Name, p.Min, p.Max, p.Step)
			}
			if p.Min < 1 {
				return invalidSpace("field %q: min must be at least 1, got %v", p.Name, p.Min)
			}
			if p.Log {
				return invalidSpace("field %q: log scale applies to float fields only", p.Name)
			}
		case KindFloat:
			if p.Min <= 0 {
				return invalidSpace("field %q: min must be positive, got %v", p.Name, p.Min)
			}
		}
	}
	for name := range fieldKinds {
		if !seen[name] {
			return invalidSpace("field %q missing", name)
		}
	}
	return nil
}

// CheckArchitecture builds the classifier shape for every reachable pair
// of kernel sizes and fails on the first inconsistent one.
func (s Space) CheckArchitecture(seqLen int) error {
	byName := make(map[string]Param, len(s))
	for _, p := range s {
		byName[p.Name] = p
	}
	for _, k1 := range byName[FieldKernel1].values() {
		for _, k2 := range byName[FieldKernel2].values() {
			arch := nn.Architecture{
				SeqLen:   seqLen,
				Filters1: int(byName[FieldFilters1].Min),
				Filters2: int(byName[FieldFilters2].Min),
				Kernel1:  k1,
				Kernel2:  k2,
				FCUnits:  int(byName[FieldFCUnits].Min),
			}
			if err := arch.Validate(); err != nil {
				return fmt.Errorf("search space reaches %s=%d %s=%d: %w", FieldKernel1, k1, FieldKernel2, k2, err)
			}
		}
	}
	return nil
}

// Sample draws one configuration. Each field is drawn independently.
func (s Space) Sample(rng *rand.Rand) HyperParams {
	var hp HyperParams
	for _, p := range s {
		hp.set(p.Name, p.draw(rng))
	}
	return hp
}

func (p Param) draw(rng *rand.Rand) float64 {
	if p.Min == p.Max {
		return p.Min
	}
	if p.Kind == KindInt {
		return float64(int(p.Min) + p.step()*rng.IntN(p.count()))
	}
	var v float64
	if p.Log {
		v = math.Exp(distuv.Uniform{Min: math.Log(p.Min), Max: math.Log(p.Max), Src: rng}.Rand())
	} else {
		v = distuv.Uniform{Min: p.Min, Max: p.Max, Src: rng}.Rand()
	}
	return math.Min(math.Max(v, p.Min), p.Max)
}

func (p Param) step() int {
	if p.Step < 1 {
		return 1
	}
	return int(p.Step)
}

// count is the number of reachable values of an integer param.
func (p Param) count() int {
	return (int(p.Max)-int(p.Min))/p.step() + 1
}

// values lists the reachable values of an integer param.
func (p Param) values() []int {
	out := make([]int, p.count())
	for i := range out {
		out[i] = int(p.Min) + i*p.step()
	}
	return out
}

func invalidSpace(format string, args ...any) error {
	return core.WrapError(core.ErrSearchSpaceInvalid, fmt.Errorf(format, args...))
}

func isInt(v float64) bool {
	return v == math.Trunc(v)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case float64:
		return x
	}
	return 0
}
