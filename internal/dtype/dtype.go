package dtype

import (
	"fmt"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DType identifies the element type of a tensor's storage.
type DType int

const (
	F32 DType = iota
	F16
	BF16
	U8
	I32
)

func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case U8:
		return "u8"
	case I32:
		return "i32"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// Size returns the storage size of one element in bytes.
func (d DType) Size() int {
	switch d {
	case F32, I32:
		return 4
	case F16, BF16:
		return 2
	case U8:
		return 1
	default:
		return 0
	}
}

// IsFloat reports whether d is one of the three supported floating kinds.
func (d DType) IsFloat() bool {
	return d == F32 || d == F16 || d == BF16
}

// Parse maps a dtype name to its DType. Names match String().
func Parse(s string) (DType, error) {
	switch s {
	case "f32":
		return F32, nil
	case "f16":
		return F16, nil
	case "bf16":
		return BF16, nil
	case "u8":
		return U8, nil
	case "i32":
		return I32, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", s)
	}
}

// F16Bits rounds f to half precision and returns the raw bits.
func F16Bits(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

// F16Value decodes raw half-precision bits.
func F16Value(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// BF16Bits truncates f to bfloat16 and returns the raw bits.
func BF16Bits(f float32) uint16 {
	return uint16(bfloat16.FromFloat32(f))
}

// BF16Value decodes raw bfloat16 bits.
func BF16Value(bits uint16) float32 {
	return bfloat16.ToFloat32(bfloat16.BF16(bits))
}
