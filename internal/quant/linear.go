package quant

import (
	"sync/atomic"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/metrics"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// Linear is a projection layer over a swappable weight handle. The
// handle pointer is atomic so a re-quantization pass can replace dense
// with compressed (or back) while forward calls are in flight; a
// reader observes either the old handle or the new one, never a mix.
type Linear struct {
	weight  atomic.Pointer[Weight]
	bias    *tensor.Matrix
	restore dtype.DType
	backend Backend
}

// NewLinear builds a layer around w. The weight is stored as
// [out_features, in_features]. Bias, when present, is a [1, out_features]
// row vector and must be float32 when the weight is compressed.
func NewLinear(w *Weight, bias *tensor.Matrix, restore dtype.DType, backend Backend) (*Linear, error) {
	if w == nil {
		return nil, configErrf("linear requires a weight")
	}
	if !restore.IsFloat() {
		return nil, configErrf("restore type must be floating, got %s", restore)
	}
	if bias != nil {
		if bias.Rows() != 1 || bias.Cols() != w.Rows() {
			return nil, configErrf("bias shape [%d, %d] does not match %d output features", bias.Rows(), bias.Cols(), w.Rows())
		}
		if w.Kind() == Compressed && bias.DType() != dtype.F32 {
			return nil, configErrf("bias for a compressed weight must be f32, got %s", bias.DType())
		}
	}
	l := &Linear{bias: bias, restore: restore, backend: backend}
	l.weight.Store(w)
	return l, nil
}

// Forward computes x W^T (+ bias) and casts the result to the restore
// type. A compressed weight forces x up to float32 first, since
// dequantized blocks are produced in float32 for the multiply.
func (l *Linear) Forward(x *tensor.Matrix) (*tensor.Matrix, error) {
	w := l.weight.Load()

	xin := x
	dw, err := w.Materialize(l.backend)
	if err != nil {
		return nil, err
	}
	if w.Kind() == Compressed {
		xin = x.CastTo(dtype.F32)
		dw = dw.CastTo(dtype.F32)
	}

	y, err := MatMul(xin, dw.Transpose())
	if err != nil {
		return nil, err
	}
	if l.bias != nil {
		if err := y.AddRow(l.bias); err != nil {
			return nil, err
		}
	}
	return y.CastTo(l.restore), nil
}

// Requantize atomically swaps in a new weight handle. In-flight Forward
// calls keep the handle they already loaded.
func (l *Linear) Requantize(w *Weight) error {
	if w == nil {
		return configErrf("cannot swap in a nil weight")
	}
	old := l.weight.Load()
	if old.Rows() != w.Rows() || old.Cols() != w.Cols() {
		return configErrf("replacement weight [%d, %d] does not match [%d, %d]", w.Rows(), w.Cols(), old.Rows(), old.Cols())
	}
	l.weight.Store(w)
	metrics.RequantSwaps.Inc()
	return nil
}

// Weight returns the current handle.
func (l *Linear) Weight() *Weight { return l.weight.Load() }

// Bias returns the bias row vector, nil when absent.
func (l *Linear) Bias() *tensor.Matrix { return l.bias }

// RestoreDType returns the output element type.
func (l *Linear) RestoreDType() dtype.DType { return l.restore }
