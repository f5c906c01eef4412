package quant

import (
	"math"
	"testing"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

func resetPrecisionFlags() {
	inhibitF16.Store(false)
	useMatMulViaF16.Store(false)
}

func TestMatMulFlagOff(t *testing.T) {
	resetPrecisionFlags()

	a := tensor.FromFloat32(dtype.F32, 2, 3, []float32{1.001, 2.5, -0.75, 4, 0.125, 3})
	b := tensor.FromFloat32(dtype.F32, 3, 2, []float32{0.5, 1, 2, -1, 1.25, 0.25})

	got, err := MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want, err := tensor.MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got.At(i, j) != want.At(i, j) {
				t.Errorf("(%d, %d) = %f, want %f", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestMatMulViaF16Rounding(t *testing.T) {
	resetPrecisionFlags()
	SetMatMulViaF16(true)
	defer resetPrecisionFlags()

	a := tensor.FromFloat32(dtype.F32, 1, 3, []float32{1.0009765, 2.3337, -0.111})
	b := tensor.FromFloat32(dtype.F32, 3, 1, []float32{3.00001, -1.4447, 0.999})

	got, err := MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got.DType() != dtype.F32 {
		t.Fatalf("result type %s, want the operand type f32", got.DType())
	}
	direct, err := tensor.MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	diff := math.Abs(float64(got.At(0, 0) - direct.At(0, 0)))
	if diff > 0.05 {
		t.Errorf("f16 path off by %g, beyond half-precision tolerance", diff)
	}
}

func TestMatMulAffineDiv(t *testing.T) {
	resetPrecisionFlags()

	a := tensor.FromFloat32(dtype.F32, 1, 2, []float32{3, 4})
	b := tensor.FromFloat32(dtype.F32, 2, 1, []float32{1, 1})
	y, err := MatMulAffineDiv(a, b, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := y.At(0, 0); got != 3.5 {
		t.Errorf("scaled product = %f, want 3.5", got)
	}
}

func TestPrecisionInhibit(t *testing.T) {
	resetPrecisionFlags()
	defer resetPrecisionFlags()

	SetMatMulViaF16(true)
	if !MatMulViaF16() {
		t.Fatal("toggle did not take")
	}
	InhibitMatMulViaF16()
	if MatMulViaF16() {
		t.Fatal("inhibit did not clear the toggle")
	}
	SetMatMulViaF16(true)
	if MatMulViaF16() {
		t.Fatal("toggle took effect after inhibit")
	}
}
