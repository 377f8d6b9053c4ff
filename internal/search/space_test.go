package search

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/newthinker/retsign/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSpace(t *testing.T) {
	s := DefaultSpace()
	require.NoError(t, s.Validate())
	assert.NoError(t, s.CheckArchitecture(50))
	assert.Len(t, s, len(fieldKinds))
}

func TestSpace_Validate(t *testing.T) {
	replace := func(name string, p Param) Space {
		s := DefaultSpace()
		for i := range s {
			if s[i].Name == name {
				s[i] = p
			}
		}
		return s
	}

	tests := []struct {
		name  string
		space Space
	}{
		{"missing field", DefaultSpace()[1:]},
		{"duplicate field", append(DefaultSpace(), Param{Name: FieldEpochs, Kind: KindInt, Min: 1, Max: 2})},
		{"unknown field", append(DefaultSpace(), Param{Name: "dropout", Kind: KindFloat, Min: 0.1, Max: 0.5})},
		{"wrong kind", replace(FieldEpochs, Param{Name: FieldEpochs, Kind: KindFloat, Min: 1, Max: 5})},
		{"min above max", replace(FieldFCUnits, Param{Name: FieldFCUnits, Kind: KindInt, Min: 64, Max: 16})},
		{"fractional int bound", replace(FieldFCUnits, Param{Name: FieldFCUnits, Kind: KindInt, Min: 1.5, Max: 16})},
		{"zero int min", replace(FieldFilters1, Param{Name: FieldFilters1, Kind: KindInt, Min: 0, Max: 8})},
		{"negative step", replace(FieldKernel1, Param{Name: FieldKernel1, Kind: KindInt, Min: 3, Max: 7, Step: -2})},
		{"log with zero min", replace(FieldLearningRate, Param{Name: FieldLearningRate, Kind: KindFloat, Min: 0, Max: 0.1, Log: true})},
		{"log on int field", replace(FieldEpochs, Param{Name: FieldEpochs, Kind: KindInt, Min: 1, Max: 30, Log: true})},
		{"non-positive rate", replace(FieldLearningRate, Param{Name: FieldLearningRate, Kind: KindFloat, Min: -1, Max: 0.1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.space.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrSearchSpaceInvalid))
		})
	}
}

func TestSpace_SampleWithinBounds(t *testing.T) {
	s := DefaultSpace()
	rng := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 500; i++ {
		hp := s.Sample(rng)
		assert.GreaterOrEqual(t, hp.Filters1, 8)
		assert.LessOrEqual(t, hp.Filters1, 32)
		assert.GreaterOrEqual(t, hp.Filters2, 16)
		assert.LessOrEqual(t, hp.Filters2, 64)
		assert.Contains(t, []int{3, 5, 7}, hp.Kernel1)
		assert.Contains(t, []int{3, 5, 7}, hp.Kernel2)
		assert.GreaterOrEqual(t, hp.FCUnits, 16)
		assert.LessOrEqual(t, hp.FCUnits, 64)
		assert.GreaterOrEqual(t, hp.LearningRate, 1e-4)
		assert.LessOrEqual(t, hp.LearningRate, 1e-2)
		assert.GreaterOrEqual(t, hp.Epochs, 5)
		assert.LessOrEqual(t, hp.Epochs, 30)
	}
}

func TestSpace_SampleCoversSteps(t *testing.T) {
	s := DefaultSpace()
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[s.Sample(rng).Kernel1] = true
	}
	assert.Equal(t, map[int]bool{3: true, 5: true, 7: true}, seen)
}

func TestSpace_SampleWideIntRange(t *testing.T) {
	s := DefaultSpace()
	for i := range s {
		if s[i].Name == FieldFCUnits {
			s[i] = Param{Name: FieldFCUnits, Kind: KindInt, Min: 1, Max: 1e7, Step: 3}
		}
	}
	require.NoError(t, s.Validate())
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 100; i++ {
		fc := s.Sample(rng).FCUnits
		assert.GreaterOrEqual(t, fc, 1)
		assert.LessOrEqual(t, fc, 10_000_000)
		assert.Zero(t, (fc-1)%3, "fc_units %d off the step grid", fc)
	}

	allocs := testing.AllocsPerRun(10, func() { s.Sample(rng) })
	assert.LessOrEqual(t, allocs, 2.0)
}

func TestSpace_SampleDeterministic(t *testing.T) {
	s := DefaultSpace()
	a := rand.New(rand.NewPCG(99, 99))
	b := rand.New(rand.NewPCG(99, 99))
	for i := 0; i < 20; i++ {
		assert.Equal(t, s.Sample(a), s.Sample(b))
	}
}

func TestPoint(t *testing.T) {
	hp := HyperParams{Filters1: 4, Filters2: 6, Kernel1: 3, Kernel2: 5, FCUnits: 8, LearningRate: 0.003, Epochs: 2}
	s := Point(hp)
	require.NoError(t, s.Validate())

	rng := rand.New(rand.NewPCG(3, 3))
	for i := 0; i < 10; i++ {
		assert.Equal(t, hp, s.Sample(rng))
	}
}

func TestSpace_CheckArchitecture(t *testing.T) {
	s := DefaultSpace()
	for i := range s {
		if s[i].Name == FieldKernel2 {
			s[i] = Param{Name: FieldKernel2, Kind: KindInt, Min: 2, Max: 3}
		}
	}
	require.NoError(t, s.Validate())

	err := s.CheckArchitecture(54)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrArchitectureInvalid))
	assert.Contains(t, err.Error(), "kernel_size2=2")

	assert.Error(t, DefaultSpace().CheckArchitecture(3), "windows shorter than 4 flatten to nothing")
}

func TestHyperParams_Architecture(t *testing.T) {
	hp := HyperParams{Filters1: 4, Filters2: 6, Kernel1: 3, Kernel2: 5, FCUnits: 8, LearningRate: 0.01, Epochs: 3}
	arch := hp.Architecture(50)
	assert.Equal(t, 50, arch.SeqLen)
	assert.Equal(t, 6*12, arch.FlatWidth())
	assert.Equal(t, 0.01, hp.Map()[FieldLearningRate])
	assert.Equal(t, 5, hp.Map()[FieldKernel2])
}
