package snapshot

import (
	"bytes"
	"testing"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/quant"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

func TestRoundTrip(t *testing.T) {
	dense := tensor.FromFloat32(dtype.F16, 2, 3, []float32{1, 2, 3, 4, 5, 6})
	src := tensor.FromFloat32(dtype.F32, 4, 2, []float32{0, 1, 2, 3, 1, 0, 3, 2})
	packed, err := quant.Quantize(src, quant.Bits4)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	in := []Entry{
		{Name: "mlp.up", Weight: quant.NewDense(dense)},
		{Name: "attn.qkv", Weight: quant.NewCompressed(packed)},
	}
	if err := Write(&buf, in); err != nil {
		t.Fatal(err)
	}

	out, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("read %d entries, want 2", len(out))
	}

	if out[0].Name != "mlp.up" || out[0].Weight.Kind() != quant.Dense {
		t.Fatalf("entry 0 = %q %s", out[0].Name, out[0].Weight.Kind())
	}
	got := out[0].Weight.DenseMatrix()
	if got.DType() != dtype.F16 || got.Rows() != 2 || got.Cols() != 3 {
		t.Fatalf("dense shape/type lost: %s [%d, %d]", got.DType(), got.Rows(), got.Cols())
	}
	if !bytes.Equal(got.Bytes(), dense.Bytes()) {
		t.Error("dense bytes changed through the round trip")
	}

	if out[1].Name != "attn.qkv" || out[1].Weight.Kind() != quant.Compressed {
		t.Fatalf("entry 1 = %q %s", out[1].Name, out[1].Weight.Kind())
	}
	p := out[1].Weight.Packed()
	if p.Bits != quant.Bits4 || p.H != packed.H || p.W != packed.W {
		t.Fatalf("packed geometry lost: %s [%d, %d]", p.Bits, p.H, p.W)
	}

	before, err := packed.Dequantize(quant.Scalar)
	if err != nil {
		t.Fatal(err)
	}
	after, err := p.Dequantize(quant.Scalar)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before.Bytes(), after.Bytes()) {
		t.Error("compressed weight dequantizes differently after the round trip")
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not an arrow stream"))); err == nil {
		t.Fatal("expected error for non-IPC input")
	}
}

func TestWriteNilWeight(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []Entry{{Name: "broken"}}); err == nil {
		t.Fatal("expected error for entry without weight")
	}
}
