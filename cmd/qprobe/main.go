package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/thedatamates/mistral.rs/internal/config"
	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/logger"
	"github.com/thedatamates/mistral.rs/internal/monitoring"
	"github.com/thedatamates/mistral.rs/internal/quant"
	"github.com/thedatamates/mistral.rs/internal/snapshot"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// qprobe checks the kernel stack on the current host: backend
// availability, a quantize/dequantize self-check across every bit
// width, and a small matmul timing in both precision paths.

func main() {
	var (
		rows     = flag.Int("rows", 512, "self-check weight rows")
		cols     = flag.Int("cols", 256, "self-check weight cols")
		snapPath = flag.String("snapshot", "", "write and re-read a weight snapshot at this path")
		serve    = flag.String("serve", "", "serve /metrics on this address instead of exiting")
	)
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.Log.Component("qprobe")

	switch cfg.Precision {
	case config.PrecisionF16:
		quant.SetMatMulViaF16(true)
	case config.PrecisionF32:
		quant.InhibitMatMulViaF16()
	}

	backend := quant.Scalar
	if cfg.Backend == "accel" {
		backend = quant.Accel
	}
	fmt.Printf("scalar backend: available\n")
	fmt.Printf("accel backend:  available=%v\n", quant.Accel.Available())
	fmt.Printf("f16 matmul:     %v (mode %s)\n", quant.MatMulViaF16(), cfg.Precision)
	if !backend.Available() {
		fmt.Fprintf(os.Stderr, "requested backend %s is unavailable on this host\n", backend)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	vals := make([]float32, *rows**cols)
	for i := range vals {
		vals[i] = rng.Float32()*2 - 1
	}
	dense := tensor.FromFloat32(dtype.F32, *rows, *cols, vals)

	for _, bits := range []quant.BitWidth{quant.Bits1, quant.Bits2, quant.Bits3, quant.Bits4, quant.Bits8} {
		if *rows%bits.PackFactor() != 0 {
			fmt.Printf("%-6s skipped: %d rows not divisible by pack factor %d\n", bits, *rows, bits.PackFactor())
			continue
		}
		start := time.Now()
		p, err := quant.Quantize(dense, bits)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s quantize: %v\n", bits, err)
			os.Exit(1)
		}
		out, err := p.Dequantize(backend)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s dequantize: %v\n", bits, err)
			os.Exit(1)
		}
		var worst float64
		for i := 0; i < *rows; i++ {
			for j := 0; j < *cols; j++ {
				d := float64(out.At(i, j) - dense.At(i, j))
				if d < 0 {
					d = -d
				}
				if d > worst {
					worst = d
				}
			}
		}
		fmt.Printf("%-6s round trip on %s in %v, worst abs error %.5f\n", bits, backend, time.Since(start), worst)
	}

	x := tensor.FromFloat32(dtype.F32, 1, *rows, vals[:*rows])
	l, err := quant.NewLinear(quant.NewDense(dense.Transpose().Clone()), nil, dtype.F32, backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "linear: %v\n", err)
		os.Exit(1)
	}
	start := time.Now()
	if _, err := l.Forward(x); err != nil {
		fmt.Fprintf(os.Stderr, "forward: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("dense forward [1x%d] x [%dx%d]^T in %v\n", *rows, *cols, *rows, time.Since(start))

	if *snapPath != "" {
		p, err := quant.Quantize(dense, quant.Bits4)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot quantize: %v\n", err)
			os.Exit(1)
		}
		f, err := os.Create(*snapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			os.Exit(1)
		}
		err = snapshot.Write(f, []snapshot.Entry{{Name: "probe.weight", Weight: quant.NewCompressed(p)}})
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot write: %v\n", err)
			os.Exit(1)
		}
		f, err = os.Open(*snapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			os.Exit(1)
		}
		entries, err := snapshot.Read(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot read: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot round trip: %d entries at %s\n", len(entries), *snapPath)
	}

	if *serve != "" {
		log.Info("serving monitoring endpoints", "addr", *serve)
		if err := monitoring.NewServer().ListenAndServe(*serve); err != nil {
			fmt.Fprintf(os.Stderr, "serve: %v\n", err)
			os.Exit(1)
		}
	}
}
