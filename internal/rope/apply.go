package rope

import (
	"github.com/thedatamates/mistral.rs/internal/metrics"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// Apply rotates q and k in the paired-dimension subspace. Both are laid
// out as [batch*heads*seqLen, dim] row-major with rows ordered batch,
// then head, then sequence position; q and k may carry different head
// counts (grouped-query attention). Each sequence i reads table rows
// [seqlenOffsets[i], seqlenOffsets[i]+seqLen), so sequences in one batch
// may sit at different cache depths. The operation is pure: fresh
// matrices are returned in the input dtype and the tables are never
// written.
func (r *Rotary) Apply(q, k *tensor.Matrix, batch, qHeads int, seqlenOffsets, positionIDs []int) (*tensor.Matrix, *tensor.Matrix, error) {
	if batch <= 0 || qHeads <= 0 {
		return nil, nil, configErrf("batch and heads must be positive, got %d, %d", batch, qHeads)
	}
	if len(seqlenOffsets) != batch {
		return nil, nil, configErrf("%d sequence offsets for batch of %d", len(seqlenOffsets), batch)
	}
	if q.Cols() != r.dim || k.Cols() != r.dim {
		return nil, nil, configErrf("rotary dim %d does not match q cols %d / k cols %d", r.dim, q.Cols(), k.Cols())
	}
	if q.Rows()%(batch*qHeads) != 0 {
		return nil, nil, configErrf("q rows %d not divisible by batch*heads %d", q.Rows(), batch*qHeads)
	}
	seqLen := q.Rows() / (batch * qHeads)
	if k.Rows()%(batch*seqLen) != 0 {
		return nil, nil, configErrf("k rows %d not divisible by batch*seq_len %d", k.Rows(), batch*seqLen)
	}
	kHeads := k.Rows() / (batch * seqLen)

	sin, cos := r.tables(positionIDs)
	for _, off := range seqlenOffsets {
		if off < 0 || off+seqLen > sin.Rows() {
			return nil, nil, configErrf("offset %d with seq_len %d exceeds table rows %d", off, seqLen, sin.Rows())
		}
	}

	qOut := rotate(q, batch, qHeads, seqLen, seqlenOffsets, sin, cos, r.gptNeoX)
	kOut := rotate(k, batch, kHeads, seqLen, seqlenOffsets, sin, cos, r.gptNeoX)
	metrics.RopeApplies.Inc()
	return qOut, kOut, nil
}

// ApplyTables rotates q and k with explicitly supplied [seqLen, dim/2]
// tables, as produced by MultiAxis.CosSin. No offset slicing: table row
// s applies to sequence position s of every batch entry.
func ApplyTables(q, k *tensor.Matrix, batch, qHeads int, sin, cos *tensor.Matrix, gptNeoX bool) (*tensor.Matrix, *tensor.Matrix, error) {
	dim := sin.Cols() * 2
	if q.Cols() != dim || k.Cols() != dim {
		return nil, nil, configErrf("table dim %d does not match q cols %d / k cols %d", dim, q.Cols(), k.Cols())
	}
	if q.Rows()%(batch*qHeads) != 0 {
		return nil, nil, configErrf("q rows %d not divisible by batch*heads %d", q.Rows(), batch*qHeads)
	}
	seqLen := q.Rows() / (batch * qHeads)
	if seqLen > sin.Rows() {
		return nil, nil, configErrf("seq_len %d exceeds table rows %d", seqLen, sin.Rows())
	}
	if k.Rows()%(batch*seqLen) != 0 {
		return nil, nil, configErrf("k rows %d not divisible by batch*seq_len %d", k.Rows(), batch*seqLen)
	}
	kHeads := k.Rows() / (batch * seqLen)

	zeros := make([]int, batch)
	qOut := rotate(q, batch, qHeads, seqLen, zeros, sin, cos, gptNeoX)
	kOut := rotate(k, batch, kHeads, seqLen, zeros, sin, cos, gptNeoX)
	metrics.RopeApplies.Inc()
	return qOut, kOut, nil
}

func rotate(x *tensor.Matrix, batch, heads, seqLen int, offsets []int, sin, cos *tensor.Matrix, gptNeoX bool) *tensor.Matrix {
	dim := x.Cols()
	half := dim / 2
	out := tensor.New(x.DType(), x.Rows(), dim)

	for b := 0; b < batch; b++ {
		for h := 0; h < heads; h++ {
			base := (b*heads + h) * seqLen
			for s := 0; s < seqLen; s++ {
				row := base + s
				tr := offsets[b] + s
				for i := 0; i < half; i++ {
					c := cos.At(tr, i)
					sn := sin.At(tr, i)
					var j0, j1 int
					if gptNeoX {
						j0, j1 = i, i+half
					} else {
						j0, j1 = 2*i, 2*i+1
					}
					x0 := x.At(row, j0)
					x1 := x.At(row, j1)
					out.Set(row, j0, x0*c-x1*sn)
					out.Set(row, j1, x0*sn+x1*c)
				}
			}
		}
	}
	return out
}
