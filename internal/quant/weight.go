package quant

import "github.com/thedatamates/mistral.rs/internal/tensor"

// WeightKind tags the two weight representations.
type WeightKind int

const (
	Dense WeightKind = iota
	Compressed
)

func (k WeightKind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Compressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Weight is a tagged weight handle holding either a dense matrix or a
// packed block. A handle is immutable; re-quantization builds a new
// handle and swaps it in whole.
type Weight struct {
	kind   WeightKind
	dense  *tensor.Matrix
	packed *PackedWeight
}

// NewDense wraps a dense matrix.
func NewDense(m *tensor.Matrix) *Weight { return &Weight{kind: Dense, dense: m} }

// NewCompressed wraps a packed block.
func NewCompressed(p *PackedWeight) *Weight { return &Weight{kind: Compressed, packed: p} }

func (w *Weight) Kind() WeightKind { return w.kind }

// DenseMatrix returns the held matrix, nil for compressed weights.
func (w *Weight) DenseMatrix() *tensor.Matrix { return w.dense }

// Packed returns the held block, nil for dense weights.
func (w *Weight) Packed() *PackedWeight { return w.packed }

// Rows returns the logical (unpacked) row count.
func (w *Weight) Rows() int {
	if w.kind == Dense {
		return w.dense.Rows()
	}
	return w.packed.Rows()
}

// Cols returns the logical column count.
func (w *Weight) Cols() int {
	if w.kind == Dense {
		return w.dense.Cols()
	}
	return w.packed.Cols()
}

// Materialize returns the dense form: the held matrix as-is for Dense,
// a freshly dequantized block for Compressed.
func (w *Weight) Materialize(backend Backend) (*tensor.Matrix, error) {
	switch w.kind {
	case Dense:
		return w.dense, nil
	case Compressed:
		return w.packed.Dequantize(backend)
	}
	return nil, configErrf("unknown weight kind %d", int(w.kind))
}
