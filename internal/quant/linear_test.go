package quant

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

func TestForwardDense(t *testing.T) {
	w := tensor.FromFloat32(dtype.F32, 3, 2, []float32{1, 2, 3, 4, 5, 6})
	bias := tensor.FromFloat32(dtype.F32, 1, 3, []float32{0.5, 0.5, 0.5})
	l, err := NewLinear(NewDense(w), bias, dtype.F32, Scalar)
	if err != nil {
		t.Fatal(err)
	}

	x := tensor.FromFloat32(dtype.F32, 1, 2, []float32{1, 1})
	y, err := l.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{3.5, 7.5, 11.5}
	for j, v := range want {
		if got := y.At(0, j); got != v {
			t.Errorf("y[0, %d] = %f, want %f", j, got, v)
		}
	}
}

func TestForwardCompressedMatchesDense(t *testing.T) {
	// Column values 0..15 survive 4-bit quantization exactly, so the
	// two paths must multiply identical weight values.
	vals := make([]float32, 32)
	for i := 0; i < 16; i++ {
		vals[2*i] = float32(i)
		vals[2*i+1] = float32(15 - i)
	}
	w := tensor.FromFloat32(dtype.F32, 16, 2, vals)
	p, err := Quantize(w, Bits4)
	if err != nil {
		t.Fatal(err)
	}

	dense, err := NewLinear(NewDense(w), nil, dtype.F32, Scalar)
	if err != nil {
		t.Fatal(err)
	}
	comp, err := NewLinear(NewCompressed(p), nil, dtype.F32, Scalar)
	if err != nil {
		t.Fatal(err)
	}

	x := tensor.FromFloat32(dtype.F32, 1, 2, []float32{0.25, -1.5})
	yd, err := dense.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	yc, err := comp.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 16; j++ {
		if yd.At(0, j) != yc.At(0, j) {
			t.Errorf("col %d: dense %f, compressed %f", j, yd.At(0, j), yc.At(0, j))
		}
	}
}

func TestForwardRestoreDType(t *testing.T) {
	w := tensor.FromFloat32(dtype.F32, 2, 2, []float32{1, 0, 0, 1})
	l, err := NewLinear(NewDense(w), nil, dtype.F16, Scalar)
	if err != nil {
		t.Fatal(err)
	}
	y, err := l.Forward(tensor.New(dtype.F32, 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if y.DType() != dtype.F16 {
		t.Errorf("output type %s, want f16", y.DType())
	}
}

func TestCompressedBiasMustBeF32(t *testing.T) {
	w := tensor.FromFloat32(dtype.F32, 2, 2, []float32{0, 1, 2, 3})
	p, err := Quantize(w, Bits8)
	if err != nil {
		t.Fatal(err)
	}
	bias := tensor.FromFloat32(dtype.F16, 1, 2, []float32{1, 1})
	var ce *ConfigError
	if _, err := NewLinear(NewCompressed(p), bias, dtype.F32, Scalar); !errors.As(err, &ce) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRequantizeSwap(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vals := make([]float32, 3*8)
	for i := range vals {
		vals[i] = rng.Float32()*2 - 1
	}
	w := tensor.FromFloat32(dtype.F32, 3, 8, vals)
	l, err := NewLinear(NewDense(w), nil, dtype.F32, Scalar)
	if err != nil {
		t.Fatal(err)
	}

	x := tensor.FromFloat32(dtype.F32, 1, 8, []float32{1, -1, 0.5, 0.25, -0.5, 2, 1, -2})
	before, err := l.Forward(x)
	if err != nil {
		t.Fatal(err)
	}

	p, err := Quantize(w, Bits8)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Requantize(NewCompressed(p)); err != nil {
		t.Fatal(err)
	}
	if l.Weight().Kind() != Compressed {
		t.Fatal("weight handle not swapped")
	}

	after, err := l.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		if diff := math.Abs(float64(after.At(0, j) - before.At(0, j))); diff > 0.1 {
			t.Errorf("col %d drifted by %g after 8-bit swap", j, diff)
		}
	}
}

func TestRequantizeShapeMismatch(t *testing.T) {
	w := tensor.FromFloat32(dtype.F32, 2, 2, []float32{1, 2, 3, 4})
	l, err := NewLinear(NewDense(w), nil, dtype.F32, Scalar)
	if err != nil {
		t.Fatal(err)
	}
	other := tensor.FromFloat32(dtype.F32, 4, 2, make([]float32, 8))
	var ce *ConfigError
	if err := l.Requantize(NewDense(other)); !errors.As(err, &ce) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLinearBiasShape(t *testing.T) {
	w := tensor.FromFloat32(dtype.F32, 3, 2, make([]float32, 6))
	bias := tensor.FromFloat32(dtype.F32, 1, 2, []float32{1, 1}) // 3 outputs expected
	var ce *ConfigError
	if _, err := NewLinear(NewDense(w), bias, dtype.F32, Scalar); !errors.As(err, &ce) {
		t.Fatal("expected config error for bias length")
	}
}
