package tensor

import (
	"fmt"

	"github.com/thedatamates/mistral.rs/internal/dtype"
)

// Matrix is a dense 2-D tensor with a fixed element type. Storage is
// row-major by default; views produced by Transpose or View may carry
// arbitrary strides and are then no longer contiguous.
type Matrix struct {
	dt        dtype.DType
	rows, cols int
	rowStride int
	colStride int

	f32 []float32
	u16 []uint16 // f16 or bf16 raw bits
	u8  []byte
	i32 []int32
}

// New allocates a zeroed rows x cols matrix of the given element type.
func New(dt dtype.DType, rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("tensor: invalid shape [%d, %d]", rows, cols))
	}
	m := &Matrix{dt: dt, rows: rows, cols: cols, rowStride: cols, colStride: 1}
	n := rows * cols
	switch dt {
	case dtype.F32:
		m.f32 = make([]float32, n)
	case dtype.F16, dtype.BF16:
		m.u16 = make([]uint16, n)
	case dtype.U8:
		m.u8 = make([]byte, n)
	case dtype.I32:
		m.i32 = make([]int32, n)
	default:
		panic("tensor: unknown dtype " + dt.String())
	}
	return m
}

// FromFloat32 builds a matrix of the given element type from row-major
// float32 values, rounding as needed for reduced-precision targets.
func FromFloat32(dt dtype.DType, rows, cols int, vals []float32) *Matrix {
	if len(vals) != rows*cols {
		panic(fmt.Sprintf("tensor: %d values for shape [%d, %d]", len(vals), rows, cols))
	}
	m := New(dt, rows, cols)
	for i, v := range vals {
		m.setFlat(i, v)
	}
	return m
}

// FromBytesU8 wraps packed byte storage without copying.
func FromBytesU8(rows, cols int, data []byte) *Matrix {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("tensor: %d bytes for shape [%d, %d]", len(data), rows, cols))
	}
	return &Matrix{dt: dtype.U8, rows: rows, cols: cols, rowStride: cols, colStride: 1, u8: data}
}

// FromInt32 wraps packed 32-bit word storage without copying.
func FromInt32(rows, cols int, data []int32) *Matrix {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("tensor: %d words for shape [%d, %d]", len(data), rows, cols))
	}
	return &Matrix{dt: dtype.I32, rows: rows, cols: cols, rowStride: cols, colStride: 1, i32: data}
}

func (m *Matrix) DType() dtype.DType { return m.dt }
func (m *Matrix) Rows() int          { return m.rows }
func (m *Matrix) Cols() int          { return m.cols }

// IsContiguous reports whether the elements are laid out row-major with
// no gaps.
func (m *Matrix) IsContiguous() bool {
	return m.colStride == 1 && m.rowStride == m.cols
}

func (m *Matrix) index(i, j int) int {
	return i*m.rowStride + j*m.colStride
}

// At decodes the element at (i, j) to float32.
func (m *Matrix) At(i, j int) float32 {
	off := m.index(i, j)
	switch m.dt {
	case dtype.F32:
		return m.f32[off]
	case dtype.F16:
		return dtype.F16Value(m.u16[off])
	case dtype.BF16:
		return dtype.BF16Value(m.u16[off])
	case dtype.U8:
		return float32(m.u8[off])
	case dtype.I32:
		return float32(m.i32[off])
	}
	return 0
}

// Set encodes v into the element at (i, j).
func (m *Matrix) Set(i, j int, v float32) {
	m.setOff(m.index(i, j), v)
}

func (m *Matrix) setFlat(i int, v float32) { m.setOff(i, v) }

func (m *Matrix) setOff(off int, v float32) {
	switch m.dt {
	case dtype.F32:
		m.f32[off] = v
	case dtype.F16:
		m.u16[off] = dtype.F16Bits(v)
	case dtype.BF16:
		m.u16[off] = dtype.BF16Bits(v)
	case dtype.U8:
		m.u8[off] = byte(v)
	case dtype.I32:
		m.i32[off] = int32(v)
	}
}

// Float32s returns the elements decoded to float32 in row-major order.
// Works for any layout; the result is always compact.
func (m *Matrix) Float32s() []float32 {
	if m.IsContiguous() && m.dt == dtype.F32 {
		out := make([]float32, len(m.f32))
		copy(out, m.f32)
		return out
	}
	out := make([]float32, m.rows*m.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out[i*m.cols+j] = m.At(i, j)
		}
	}
	return out
}

// CastTo converts the matrix to the target element type, rounding
// through the target precision. Casting to the current type returns the
// receiver unchanged.
func (m *Matrix) CastTo(dt dtype.DType) *Matrix {
	if dt == m.dt {
		return m
	}
	return FromFloat32(dt, m.rows, m.cols, m.Float32s())
}

// Clone returns a compact row-major copy.
func (m *Matrix) Clone() *Matrix {
	return FromFloat32(m.dt, m.rows, m.cols, m.Float32s())
}

// Transpose returns a transposed view sharing storage. The view is not
// contiguous unless the matrix is a single row or column.
func (m *Matrix) Transpose() *Matrix {
	t := *m
	t.rows, t.cols = m.cols, m.rows
	t.rowStride, t.colStride = m.colStride, m.rowStride
	return &t
}

// View reinterprets the storage with explicit strides, sharing the
// underlying buffer. Used to build deliberately non-contiguous layouts.
func (m *Matrix) View(rows, cols, rowStride, colStride int) *Matrix {
	last := (rows-1)*rowStride + (cols-1)*colStride
	if last >= m.storageLen() || rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("tensor: view [%d, %d] strides (%d, %d) out of bounds", rows, cols, rowStride, colStride))
	}
	v := *m
	v.rows, v.cols = rows, cols
	v.rowStride, v.colStride = rowStride, colStride
	return &v
}

func (m *Matrix) storageLen() int {
	switch m.dt {
	case dtype.F32:
		return len(m.f32)
	case dtype.F16, dtype.BF16:
		return len(m.u16)
	case dtype.U8:
		return len(m.u8)
	case dtype.I32:
		return len(m.i32)
	}
	return 0
}

// RawU8 exposes the backing byte storage. Only valid for contiguous U8
// matrices; kernels check contiguity before calling.
func (m *Matrix) RawU8() []byte { return m.u8 }

// RawI32 exposes the backing word storage for I32 matrices.
func (m *Matrix) RawI32() []int32 { return m.i32 }

// RawU16 exposes the raw bit storage for F16/BF16 matrices.
func (m *Matrix) RawU16() []uint16 { return m.u16 }

// RawF32 exposes the backing storage for F32 matrices.
func (m *Matrix) RawF32() []float32 { return m.f32 }
