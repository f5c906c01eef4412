package quant

import (
	"fmt"
	"time"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/metrics"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// BitWidth is a supported packing width.
type BitWidth int

const (
	Bits1 BitWidth = 1
	Bits2 BitWidth = 2
	Bits3 BitWidth = 3
	Bits4 BitWidth = 4
	Bits8 BitWidth = 8
)

// PackFactor returns the number of codes stored per physical unit.
func (b BitWidth) PackFactor() int {
	switch b {
	case Bits8:
		return 1
	case Bits4:
		return 2
	case Bits2:
		return 4
	case Bits1:
		return 8
	case Bits3:
		return 10
	}
	return 0
}

// Storage returns the required storage element type: bytes for
// 1/2/4/8-bit packing, signed 32-bit words for 3-bit.
func (b BitWidth) Storage() dtype.DType {
	if b == Bits3 {
		return dtype.I32
	}
	return dtype.U8
}

func (b BitWidth) String() string { return fmt.Sprintf("%d-bit", int(b)) }

func (b BitWidth) valid() bool {
	switch b {
	case Bits1, Bits2, Bits3, Bits4, Bits8:
		return true
	}
	return false
}

// PackedWeight is a bit-packed weight block. Physical storage is an
// [H, W] unit matrix; the unpacked block has shape [PackFactor*H, W].
// Scale and Zero hold one affine pair per column. The block is
// read-only once built; every Dequantize call materializes a fresh
// dense matrix.
type PackedWeight struct {
	Bits  BitWidth
	H, W  int
	Data  *tensor.Matrix // [H, W] in Bits.Storage()
	Scale *tensor.Matrix // [1, W] floating
	Zero  *tensor.Matrix // [1, W] same type as Scale
}

// NewPackedWeight validates shapes once at construction. Per-call
// contracts (storage element type, contiguity, scale/zero type match)
// are rechecked by Dequantize.
func NewPackedWeight(bits BitWidth, h, w int, data, scale, zero *tensor.Matrix) (*PackedWeight, error) {
	if !bits.valid() {
		return nil, configErrf("unsupported bit width %d", int(bits))
	}
	if h <= 0 || w <= 0 {
		return nil, configErrf("invalid packed shape [%d, %d]", h, w)
	}
	if data.Rows() != h || data.Cols() != w {
		return nil, configErrf("packed storage shape [%d, %d], expected [%d, %d]", data.Rows(), data.Cols(), h, w)
	}
	if scale.Rows()*scale.Cols() != w {
		return nil, configErrf("scale holds %d entries, expected one per column (%d)", scale.Rows()*scale.Cols(), w)
	}
	if zero.Rows()*zero.Cols() != w {
		return nil, configErrf("zero holds %d entries, expected one per column (%d)", zero.Rows()*zero.Cols(), w)
	}
	return &PackedWeight{Bits: bits, H: h, W: w, Data: data, Scale: scale, Zero: zero}, nil
}

// Rows returns the unpacked row count.
func (p *PackedWeight) Rows() int { return p.Bits.PackFactor() * p.H }

// Cols returns the unpacked column count.
func (p *PackedWeight) Cols() int { return p.W }

func (p *PackedWeight) check(op string) error {
	if !p.Bits.valid() {
		return precondErrf(op, "unsupported bit width %d", int(p.Bits))
	}
	if got, want := p.Data.DType(), p.Bits.Storage(); got != want {
		return precondErrf(op, "%s storage must be %s, got %s", p.Bits, want, got)
	}
	if !p.Data.IsContiguous() {
		return precondErrf(op, "packed storage is not contiguous")
	}
	if !p.Scale.IsContiguous() {
		return precondErrf(op, "scale is not contiguous")
	}
	if !p.Zero.IsContiguous() {
		return precondErrf(op, "zero is not contiguous")
	}
	if p.Scale.DType() != p.Zero.DType() {
		return precondErrf(op, "scale is %s, zero is %s", p.Scale.DType(), p.Zero.DType())
	}
	if !p.Scale.DType().IsFloat() {
		return precondErrf(op, "scale/zero must be floating, got %s", p.Scale.DType())
	}
	return nil
}

// Dequantize materializes the dense [PackFactor*H, W] block in the
// scale/zero element type. Each raw code v in column j becomes
// (v - zero[j]) * scale[j]. The requested backend is used as-is.
func (p *PackedWeight) Dequantize(backend Backend) (*tensor.Matrix, error) {
	if !backend.Available() {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, backend)
	}
	if err := p.check("dequantize"); err != nil {
		return nil, err
	}

	start := time.Now()
	scales := p.Scale.Float32s()
	zeros := p.Zero.Float32s()
	n := p.H * p.W
	out := make([]float32, p.Rows()*p.W)

	switch backend {
	case Accel:
		switch p.Bits {
		case Bits8:
			dequant8Accel(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits4:
			dequant4Accel(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits2:
			dequant2Accel(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits1:
			dequant1Accel(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits3:
			dequant3Accel(p.Data.RawI32(), scales, zeros, n, p.W, out)
		}
	default:
		switch p.Bits {
		case Bits8:
			dequant8Scalar(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits4:
			dequant4Scalar(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits2:
			dequant2Scalar(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits1:
			dequant1Scalar(p.Data.RawU8(), scales, zeros, n, p.W, out)
		case Bits3:
			dequant3Scalar(p.Data.RawI32(), scales, zeros, n, p.W, out)
		}
	}

	metrics.RecordDequant(p.Bits.String(), backend.String(), time.Since(start))
	return tensor.FromFloat32(p.Scale.DType(), p.Rows(), p.W, out), nil
}
