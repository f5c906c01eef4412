// Package snapshot serializes weight handles to Arrow IPC streams, so a
// quantization pass can be exported once and re-ingested without
// re-running it. One record batch holds one named handle per row; dense
// and compressed handles share the schema, with the packing columns
// null for dense rows.
package snapshot

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/logger"
	"github.com/thedatamates/mistral.rs/internal/quant"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// Entry pairs a layer name with its weight handle.
type Entry struct {
	Name   string
	Weight *quant.Weight
}

var schema = arrow.NewSchema([]arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "kind", Type: arrow.BinaryTypes.String},
	{Name: "bits", Type: arrow.PrimitiveTypes.Int32},
	{Name: "rows", Type: arrow.PrimitiveTypes.Int32},
	{Name: "cols", Type: arrow.PrimitiveTypes.Int32},
	{Name: "dtype", Type: arrow.BinaryTypes.String},
	{Name: "data", Type: arrow.BinaryTypes.Binary},
	{Name: "scale", Type: arrow.BinaryTypes.Binary, Nullable: true},
	{Name: "zero", Type: arrow.BinaryTypes.Binary, Nullable: true},
}, nil)

// Write streams the entries as a single Arrow record batch. Dense rows
// carry the matrix bytes and element type; compressed rows carry the
// packed storage with rows/cols holding the physical [H, W] shape and
// dtype the scale/zero element type.
func Write(w io.Writer, entries []Entry) error {
	bld := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bld.Release()

	names := bld.Field(0).(*array.StringBuilder)
	kinds := bld.Field(1).(*array.StringBuilder)
	bits := bld.Field(2).(*array.Int32Builder)
	rows := bld.Field(3).(*array.Int32Builder)
	cols := bld.Field(4).(*array.Int32Builder)
	dts := bld.Field(5).(*array.StringBuilder)
	data := bld.Field(6).(*array.BinaryBuilder)
	scales := bld.Field(7).(*array.BinaryBuilder)
	zeros := bld.Field(8).(*array.BinaryBuilder)

	for _, e := range entries {
		if e.Weight == nil {
			return fmt.Errorf("snapshot: entry %q has no weight", e.Name)
		}
		names.Append(e.Name)
		switch e.Weight.Kind() {
		case quant.Dense:
			m := e.Weight.DenseMatrix()
			kinds.Append("dense")
			bits.Append(0)
			rows.Append(int32(m.Rows()))
			cols.Append(int32(m.Cols()))
			dts.Append(m.DType().String())
			data.Append(m.Bytes())
			scales.AppendNull()
			zeros.AppendNull()
		case quant.Compressed:
			p := e.Weight.Packed()
			kinds.Append("compressed")
			bits.Append(int32(p.Bits))
			rows.Append(int32(p.H))
			cols.Append(int32(p.W))
			dts.Append(p.Scale.DType().String())
			data.Append(p.Data.Bytes())
			scales.Append(p.Scale.Bytes())
			zeros.Append(p.Zero.Bytes())
		default:
			return fmt.Errorf("snapshot: entry %q has unknown weight kind", e.Name)
		}
	}

	rec := bld.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(schema))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return fmt.Errorf("snapshot: write record: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("snapshot: close writer: %w", err)
	}
	logger.Log.Component("snapshot").Debug("wrote weight snapshot", "entries", len(entries))
	return nil
}

// Read rebuilds the entries from an Arrow IPC stream produced by Write.
func Read(r io.Reader) ([]Entry, error) {
	rdr, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open reader: %w", err)
	}
	defer rdr.Release()

	var entries []Entry
	for rdr.Next() {
		rec := rdr.Record()
		names := rec.Column(0).(*array.String)
		kinds := rec.Column(1).(*array.String)
		bits := rec.Column(2).(*array.Int32)
		rows := rec.Column(3).(*array.Int32)
		cols := rec.Column(4).(*array.Int32)
		dts := rec.Column(5).(*array.String)
		data := rec.Column(6).(*array.Binary)
		scales := rec.Column(7).(*array.Binary)
		zeros := rec.Column(8).(*array.Binary)

		for i := 0; i < int(rec.NumRows()); i++ {
			dt, err := dtype.Parse(dts.Value(i))
			if err != nil {
				return nil, fmt.Errorf("snapshot: entry %q: %w", names.Value(i), err)
			}
			h, w := int(rows.Value(i)), int(cols.Value(i))

			var weight *quant.Weight
			switch kinds.Value(i) {
			case "dense":
				m, err := tensor.FromBytes(dt, h, w, data.Value(i))
				if err != nil {
					return nil, fmt.Errorf("snapshot: entry %q: %w", names.Value(i), err)
				}
				weight = quant.NewDense(m)
			case "compressed":
				bw := quant.BitWidth(bits.Value(i))
				storage, err := tensor.FromBytes(bw.Storage(), h, w, data.Value(i))
				if err != nil {
					return nil, fmt.Errorf("snapshot: entry %q: %w", names.Value(i), err)
				}
				if scales.IsNull(i) || zeros.IsNull(i) {
					return nil, fmt.Errorf("snapshot: entry %q: compressed row without scale/zero", names.Value(i))
				}
				scale, err := tensor.FromBytes(dt, 1, w, scales.Value(i))
				if err != nil {
					return nil, fmt.Errorf("snapshot: entry %q: %w", names.Value(i), err)
				}
				zero, err := tensor.FromBytes(dt, 1, w, zeros.Value(i))
				if err != nil {
					return nil, fmt.Errorf("snapshot: entry %q: %w", names.Value(i), err)
				}
				p, err := quant.NewPackedWeight(bw, h, w, storage, scale, zero)
				if err != nil {
					return nil, fmt.Errorf("snapshot: entry %q: %w", names.Value(i), err)
				}
				weight = quant.NewCompressed(p)
			default:
				return nil, fmt.Errorf("snapshot: entry %q has unknown kind %q", names.Value(i), kinds.Value(i))
			}
			entries = append(entries, Entry{Name: names.Value(i), Weight: weight})
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: read stream: %w", err)
	}
	return entries, nil
}
