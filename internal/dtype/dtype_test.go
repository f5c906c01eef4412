package dtype

import (
	"math"
	"testing"
)

func TestSizes(t *testing.T) {
	cases := []struct {
		dt   DType
		size int
	}{
		{F32, 4},
		{F16, 2},
		{BF16, 2},
		{U8, 1},
		{I32, 4},
	}
	for _, c := range cases {
		if got := c.dt.Size(); got != c.size {
			t.Errorf("%s: size %d, want %d", c.dt, got, c.size)
		}
	}
}

func TestIsFloat(t *testing.T) {
	for _, dt := range []DType{F32, F16, BF16} {
		if !dt.IsFloat() {
			t.Errorf("%s should be floating", dt)
		}
	}
	for _, dt := range []DType{U8, I32} {
		if dt.IsFloat() {
			t.Errorf("%s should not be floating", dt)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, dt := range []DType{F32, F16, BF16, U8, I32} {
		got, err := Parse(dt.String())
		if err != nil {
			t.Fatalf("Parse(%s): %v", dt, err)
		}
		if got != dt {
			t.Errorf("Parse(%s) = %s", dt, got)
		}
	}
	if _, err := Parse("f64"); err == nil {
		t.Error("expected error for unknown dtype name")
	}
}

func TestF16Conversion(t *testing.T) {
	// Values exactly representable in half precision survive the round trip.
	for _, v := range []float32{0, 1, -1, 0.5, 2048, -0.25} {
		if got := F16Value(F16Bits(v)); got != v {
			t.Errorf("f16 round trip of %f: got %f", v, got)
		}
	}
	// Everything else lands within half-precision relative error.
	v := float32(3.14159)
	if diff := math.Abs(float64(F16Value(F16Bits(v)) - v)); diff > 1e-3*float64(v) {
		t.Errorf("f16 rounding of %f off by %f", v, diff)
	}
}

func TestBF16Conversion(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 0.5, 256} {
		if got := BF16Value(BF16Bits(v)); got != v {
			t.Errorf("bf16 round trip of %f: got %f", v, got)
		}
	}
	// bf16 keeps the f32 exponent, so magnitude survives even when the
	// mantissa is truncated.
	v := float32(1e20)
	got := BF16Value(BF16Bits(v))
	if math.Abs(float64(got-v)) > 1e18 {
		t.Errorf("bf16 of %g too far off: %g", v, got)
	}
}
