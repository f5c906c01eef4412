package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/thedatamates/mistral.rs/internal/dtype"
)

// Bytes serializes the elements little-endian in row-major order.
func (m *Matrix) Bytes() []byte {
	out := make([]byte, m.rows*m.cols*m.dt.Size())
	n := 0
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			off := m.index(i, j)
			switch m.dt {
			case dtype.F32:
				binary.LittleEndian.PutUint32(out[n:], math.Float32bits(m.f32[off]))
				n += 4
			case dtype.F16, dtype.BF16:
				binary.LittleEndian.PutUint16(out[n:], m.u16[off])
				n += 2
			case dtype.U8:
				out[n] = m.u8[off]
				n++
			case dtype.I32:
				binary.LittleEndian.PutUint32(out[n:], uint32(m.i32[off]))
				n += 4
			}
		}
	}
	return out
}

// FromBytes rebuilds a matrix from Bytes output.
func FromBytes(dt dtype.DType, rows, cols int, data []byte) (*Matrix, error) {
	want := rows * cols * dt.Size()
	if len(data) != want {
		return nil, fmt.Errorf("tensor: %d bytes for %s [%d, %d], want %d", len(data), dt, rows, cols, want)
	}
	m := New(dt, rows, cols)
	for i := 0; i < rows*cols; i++ {
		switch dt {
		case dtype.F32:
			m.f32[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		case dtype.F16, dtype.BF16:
			m.u16[i] = binary.LittleEndian.Uint16(data[i*2:])
		case dtype.U8:
			m.u8[i] = data[i]
		case dtype.I32:
			m.i32[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}
	return m, nil
}
