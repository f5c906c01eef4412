package quant

import (
	"math"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/logger"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// Quantize packs a dense floating matrix into the given bit width with
// per-column affine parameters. The row count must be divisible by the
// width's pack factor. Codes span [0, 2^bits-1] over each column's
// value range, so the round trip (code - zero) * scale stays within
// half a quantization step of the input. Scale and zero come back in
// float32.
func Quantize(m *tensor.Matrix, bits BitWidth) (*PackedWeight, error) {
	if !bits.valid() {
		return nil, configErrf("unsupported bit width %d", int(bits))
	}
	if !m.DType().IsFloat() {
		return nil, configErrf("cannot quantize %s matrix", m.DType())
	}
	pf := bits.PackFactor()
	rows, w := m.Rows(), m.Cols()
	if rows%pf != 0 {
		return nil, configErrf("%d rows not divisible by %s pack factor %d", rows, bits, pf)
	}
	h := rows / pf
	maxCode := float32(int(1)<<uint(bits) - 1)

	vals := m.Float32s()
	scales := make([]float32, w)
	zeros := make([]float32, w)
	for j := 0; j < w; j++ {
		lo, hi := vals[j], vals[j]
		for i := 1; i < rows; i++ {
			v := vals[i*w+j]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		scale := (hi - lo) / maxCode
		if scale == 0 {
			scale = 1
		}
		scales[j] = scale
		zeros[j] = -lo / scale
	}

	codes := make([]uint8, rows*w)
	for i, v := range vals {
		j := i % w
		c := float32(math.Round(float64(v/scales[j] + zeros[j])))
		if c < 0 {
			c = 0
		}
		if c > maxCode {
			c = maxCode
		}
		codes[i] = uint8(c)
	}

	// Logical flat index of block b, in-block index i is b*h*w + i, so
	// the codes slice can be read per block without row arithmetic.
	n := h * w
	var data *tensor.Matrix
	switch bits {
	case Bits8:
		data = tensor.FromBytesU8(h, w, codes)
	case Bits4:
		packed := make([]byte, n)
		for i := 0; i < n; i++ {
			packed[i] = codes[i]<<4 | codes[n+i]
		}
		data = tensor.FromBytesU8(h, w, packed)
	case Bits2:
		packed := make([]byte, n)
		for i := 0; i < n; i++ {
			packed[i] = codes[i]<<6 | codes[n+i]<<4 | codes[2*n+i]<<2 | codes[3*n+i]
		}
		data = tensor.FromBytesU8(h, w, packed)
	case Bits1:
		packed := make([]byte, n)
		for i := 0; i < n; i++ {
			var b byte
			for blk := 0; blk < 8; blk++ {
				b |= codes[blk*n+i] << uint(7-blk)
			}
			packed[i] = b
		}
		data = tensor.FromBytesU8(h, w, packed)
	case Bits3:
		packed := make([]int32, n)
		for i := 0; i < n; i++ {
			var word int32
			for blk := 0; blk < 10; blk++ {
				word |= int32(codes[blk*n+i]) << uint(27-3*blk)
			}
			packed[i] = word
		}
		data = tensor.FromInt32(h, w, packed)
	}

	logger.Log.Component("quant").Debug("quantized weight",
		"bits", int(bits), "rows", rows, "cols", w)
	return NewPackedWeight(bits, h, w, data,
		tensor.FromFloat32(dtype.F32, 1, w, scales),
		tensor.FromFloat32(dtype.F32, 1, w, zeros))
}
