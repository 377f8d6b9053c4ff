package nn

import (
	"fmt"

	"github.com/newthinker/retsign/internal/core"
)

// Batch is a (batch, seq_length, channels) input block in row-major order.
type Batch struct {
	Size     int
	Len      int
	Channels int
	Data     []float64
}

// NewBatch packs single-channel windows into a Batch. All windows must have
// the same length.
func NewBatch(windows [][]float64) (Batch, error) {
	if len(windows) == 0 {
		return Batch{Channels: 1}, nil
	}
	l := len(windows[0])
	b := Batch{Size: len(windows), Len: l, Channels: 1, Data: make([]float64, 0, len(windows)*l)}
	for i, w := range windows {
		if len(w) != l {
			return Batch{}, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("window %d has length %d, want %d", i, len(w), l))
		}
		b.Data = append(b.Data, w...)
	}
	return b, nil
}

// channelFirst transposes (batch, length, channel) to (batch, channel, length).
func (b Batch) channelFirst() volume {
	v := newVolume(b.Size, b.Channels, b.Len)
	for n := 0; n < b.Size; n++ {
		for t := 0; t < b.Len; t++ {
			for ch := 0; ch < b.Channels; ch++ {
				v.data[v.idx(n, ch, t)] = b.Data[(n*b.Len+t)*b.Channels+ch]
			}
		}
	}
	return v
}
