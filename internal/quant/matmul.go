package quant

import (
	"time"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/metrics"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// MatMul multiplies a x b honoring the process-wide reduced-precision
// flag. When the flag is set both operands are cast to f16, multiplied,
// and the product is cast back to a's element type; otherwise the
// multiply runs directly in the operand types. A mid-flight toggle may
// route two concurrent calls differently, which only changes precision.
func MatMul(a, b *tensor.Matrix) (*tensor.Matrix, error) {
	start := time.Now()
	via := MatMulViaF16()

	var (
		y   *tensor.Matrix
		err error
	)
	if via {
		y, err = tensor.MatMul(a.CastTo(dtype.F16), b.CastTo(dtype.F16))
		if err == nil {
			y = y.CastTo(a.DType())
		}
	} else {
		y, err = tensor.MatMul(a, b)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordMatMul(via, time.Since(start))
	return y, nil
}

// MatMulAffineDiv multiplies and then divides every element by s. The
// division runs in the post-multiply element type, so rounding from the
// f16 path, when enabled, carries into the divided result.
func MatMulAffineDiv(a, b *tensor.Matrix, s float32) (*tensor.Matrix, error) {
	y, err := MatMul(a, b)
	if err != nil {
		return nil, err
	}
	y.Scale(s)
	return y, nil
}
