package search

import "github.com/newthinker/retsign/internal/nn"

// HyperParams is one point of the search space. It fully determines a
// classifier architecture and a training run.
type HyperParams struct {
	Filters1     int     `json:"n_filters1" msgpack:"n_filters1"`
	Filters2     int     `json:"n_filters2" msgpack:"n_filters2"`
	Kernel1      int     `json:"kernel_size1" msgpack:"kernel_size1"`
	Kernel2      int     `json:"kernel_size2" msgpack:"kernel_size2"`
	FCUnits      int     `json:"fc_units" msgpack:"fc_units"`
	LearningRate float64 `json:"learning_rate" msgpack:"learning_rate"`
	Epochs       int     `json:"epochs" msgpack:"epochs"`
}

// Architecture returns the classifier shape for windows of seqLen returns.
func (h HyperParams) Architecture(seqLen int) nn.Architecture {
	return nn.Architecture{
		SeqLen:   seqLen,
		Filters1: h.Filters1,
		Filters2: h.Filters2,
		Kernel1:  h.Kernel1,
		Kernel2:  h.Kernel2,
		FCUnits:  h.FCUnits,
	}
}

// Map returns the configuration keyed by field name.
func (h HyperParams) Map() map[string]any {
	return map[string]any{
		FieldFilters1:     h.Filters1,
		FieldFilters2:     h.Filters2,
		FieldKernel1:      h.Kernel1,
		FieldKernel2:      h.Kernel2,
		FieldFCUnits:      h.FCUnits,
		FieldLearningRate: h.LearningRate,
		FieldEpochs:       h.Epochs,
	}
}

func (h *HyperParams) set(name string, v float64) {
	switch name {
	case FieldFilters1:
		h.Filters1 = int(v)
	case FieldFilters2:
		h.Filters2 = int(v)
	case FieldKernel1:
		h.Kernel1 = int(v)
	case FieldKernel2:
		h.Kernel2 = int(v)
	case FieldFCUnits:
		h.FCUnits = int(v)
	case FieldLearningRate:
		h.LearningRate = v
	case FieldEpochs:
		h.Epochs = int(v)
	}
}
