package rope

import (
	"math"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/metrics"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// MultiAxis produces rotation tables for inputs with three independent
// position axes (temporal, height, width). The feature axis is split
// into configured section widths; section k draws its positions from
// axis k mod 3.
type MultiAxis struct {
	invFreq  []float32
	sections []int
	dim      int
}

// NewMultiAxis validates the section layout against the rotary
// dimension. Section widths must sum to dim/2 exactly.
func NewMultiAxis(theta float64, dim int, sections []int) (*MultiAxis, error) {
	if dim <= 0 || dim%2 != 0 {
		return nil, configErrf("rotary dim must be positive and even, got %d", dim)
	}
	if theta <= 0 {
		return nil, configErrf("theta must be positive, got %f", theta)
	}
	sum := 0
	for _, s := range sections {
		if s <= 0 {
			return nil, configErrf("section widths must be positive, got %v", sections)
		}
		sum += s
	}
	if sum != dim/2 {
		return nil, configErrf("section widths %v sum to %d, expected %d", sections, sum, dim/2)
	}
	return &MultiAxis{
		invFreq:  invFreqs(theta, dim, nil),
		sections: append([]int(nil), sections...),
		dim:      dim,
	}, nil
}

// CosSin computes interleaved [seqLen, dim/2] tables from per-axis
// position ids laid out as [3][seqLen].
func (m *MultiAxis) CosSin(positionIDs [][]int, dt dtype.DType) (sin, cos *tensor.Matrix, err error) {
	if len(positionIDs) != 3 {
		return nil, nil, configErrf("multi-axis rope needs position ids for 3 axes, got %d", len(positionIDs))
	}
	seqLen := len(positionIDs[0])
	for a := 1; a < 3; a++ {
		if len(positionIDs[a]) != seqLen {
			return nil, nil, configErrf("axis %d has %d position ids, axis 0 has %d", a, len(positionIDs[a]), seqLen)
		}
	}
	if seqLen == 0 {
		return nil, nil, configErrf("empty position ids")
	}

	half := m.dim / 2
	sin = tensor.New(dt, seqLen, half)
	cos = tensor.New(dt, seqLen, half)

	f := 0
	for sec, width := range m.sections {
		axis := sec % 3
		for w := 0; w < width; w++ {
			freq := m.invFreq[f]
			for s := 0; s < seqLen; s++ {
				angle := float64(float32(positionIDs[axis][s]) * freq)
				sin.Set(s, f, float32(math.Sin(angle)))
				cos.Set(s, f, float32(math.Cos(angle)))
			}
			f++
		}
	}
	metrics.RecordTableBuild("multi-axis")
	return sin, cos, nil
}
