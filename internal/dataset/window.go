// Package dataset turns a return series into fixed-length window samples
// labelled with the sign of the following return.
package dataset

import (
	"fmt"

	"github.com/newthinker/retsign/internal/core"
)

// Set is an ordered collection of window samples. A Set is built once and
// only read afterwards; callers must not modify the slices it exposes.
type Set struct {
	SeqLen  int
	Windows [][]float64 // each of length SeqLen
	Labels  []float64   // 1 when Next > 0, else 0
	Next    []float64   // the return immediately after each window
}

// Len returns the number of samples.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Windows)
}

// Positives returns the number of samples labelled 1.
func (s *Set) Positives() int {
	n := 0
	for _, y := range s.Labels {
		if y == 1 {
			n++
		}
	}
	return n
}

// CheckScorable fails when s cannot yield a ROC-AUC: fewer than two
// samples, or every label in one class.
func (s *Set) CheckScorable() error {
	n, pos := s.Len(), s.Positives()
	switch {
	case n < 2:
		return core.WrapError(core.ErrInsufficientData, fmt.Errorf("%d windows, need at least 2", n))
	case pos == 0 || pos == n:
		return core.WrapError(core.ErrInsufficientData, fmt.Errorf("all %d windows share one label", n))
	}
	return nil
}

// Slice returns the samples in [from, to) as a new Set sharing the
// underlying windows.
func (s *Set) Slice(from, to int) *Set {
	return &Set{
		SeqLen:  s.SeqLen,
		Windows: s.Windows[from:to],
		Labels:  s.Labels[from:to],
		Next:    s.Next[from:to],
	}
}

// Provider yields window samples from a return series.
type Provider interface {
	Build(returns []float64, seqLen int) (*Set, error)
}

// Windower is the sliding-window Provider: sample i covers
// returns[i:i+seqLen] and is labelled by returns[i+seqLen].
type Windower struct{}

// Build implements Provider. A series too short for a single window yields
// an empty Set rather than an error.
func (Windower) Build(returns []float64, seqLen int) (*Set, error) {
	if seqLen <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("seq_length must be positive, got %d", seqLen))
	}

	n := len(returns) - seqLen
	if n < 0 {
		n = 0
	}
	set := &Set{
		SeqLen:  seqLen,
		Windows: make([][]float64, n),
		Labels:  make([]float64, n),
		Next:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		w := make([]float64, seqLen)
		copy(w, returns[i:i+seqLen])
		set.Windows[i] = w
		next := returns[i+seqLen]
		set.Next[i] = next
		if next > 0 {
			set.Labels[i] = 1
		}
	}
	return set, nil
}
