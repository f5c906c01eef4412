package tensor

import "fmt"

// MatMul computes a x b. Both operands must be floating matrices with
// a.Cols() == b.Rows(). Accumulation happens in float32; the product is
// returned in a's element type, so reduced-precision operands round on
// the way out.
func MatMul(a, b *Matrix) (*Matrix, error) {
	if !a.dt.IsFloat() || !b.dt.IsFloat() {
		return nil, fmt.Errorf("matmul: operands must be floating, got %s x %s", a.dt, b.dt)
	}
	if a.cols != b.rows {
		return nil, fmt.Errorf("matmul: dimension mismatch A[%d,%d] x B[%d,%d]", a.rows, a.cols, b.rows, b.cols)
	}

	rows, inner, cols := a.rows, a.cols, b.cols
	av := a.Float32s()
	bv := b.Float32s()
	out := make([]float32, rows*cols)

	// ikj order keeps the inner loop streaming over b's rows.
	for i := 0; i < rows; i++ {
		for k := 0; k < inner; k++ {
			aik := av[i*inner+k]
			if aik == 0 {
				continue
			}
			brow := bv[k*cols : (k+1)*cols]
			orow := out[i*cols : (i+1)*cols]
			for j, bkj := range brow {
				orow[j] += aik * bkj
			}
		}
	}
	return FromFloat32(a.dt, rows, cols, out), nil
}

// AddRow adds a 1 x cols vector to every row, in float32, re-encoding
// the result in the receiver's element type.
func (m *Matrix) AddRow(v *Matrix) error {
	if v.rows != 1 || v.cols != m.cols {
		return fmt.Errorf("addrow: vector shape [%d,%d] does not match %d columns", v.rows, v.cols, m.cols)
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			m.Set(i, j, m.At(i, j)+v.At(0, j))
		}
	}
	return nil
}

// Scale divides every element by s in float32. Used for attention-score
// scaling after a multiply; precision of the active dtype applies.
func (m *Matrix) Scale(s float32) {
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			m.Set(i, j, m.At(i, j)/s)
		}
	}
}
