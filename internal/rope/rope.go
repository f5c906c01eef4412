package rope

import (
	"math"

	"github.com/thedatamates/mistral.rs/internal/dtype"
	"github.com/thedatamates/mistral.rs/internal/logger"
	"github.com/thedatamates/mistral.rs/internal/metrics"
	"github.com/thedatamates/mistral.rs/internal/tensor"
)

// Rotary holds precomputed sin/cos rotation tables. Tables are immutable
// once built and may be shared across any number of concurrent Apply
// calls. A model owns either one table or a short/long pair selected at
// call time by the original context length.
type Rotary struct {
	shortSin, shortCos *tensor.Matrix
	longSin, longCos   *tensor.Matrix // nil when a single table exists

	originalMax int
	dim         int
	gptNeoX     bool // split-half pairs (j, j+dim/2); false = adjacent pairs (2j, 2j+1)
}

// New builds rotation tables for cfg in the given compute dtype.
// gptNeoX selects the split-half rotation convention; otherwise
// adjacent feature pairs are rotated.
func New(cfg Config, dt dtype.DType, gptNeoX bool) (*Rotary, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Scaling == nil {
		return newUnscaled(cfg, dt, gptNeoX), nil
	}
	if cfg.Scaling.HasMScales() {
		return newScaledMScale(cfg, dt, gptNeoX)
	}
	return newClassicScaled(cfg, dt, gptNeoX)
}

func newUnscaled(cfg Config, dt dtype.DType, gptNeoX bool) *Rotary {
	inv := invFreqs(cfg.Theta, cfg.Dim, nil)
	sin, cos := buildTables(inv, cfg.MaxPosition, 1.0, dt)
	metrics.RecordTableBuild("unscaled")
	logger.Log.Component("rope").Debug("built rotation table",
		"variant", "unscaled", "dim", cfg.Dim, "max_position", cfg.MaxPosition, "dtype", dt.String())
	return &Rotary{
		shortSin:    sin,
		shortCos:    cos,
		originalMax: cfg.OriginalMaxPosition,
		dim:         cfg.Dim,
		gptNeoX:     gptNeoX,
	}
}

// newClassicScaled derives one scaling factor from the ratio of the
// extended to the original context length and applies it to both tables.
func newClassicScaled(cfg Config, dt dtype.DType, gptNeoX bool) (*Rotary, error) {
	s := cfg.Scaling

	scale := float64(cfg.MaxPosition) / float64(cfg.OriginalMaxPosition)
	scalingFactor := 1.0
	if scale > 1.0 {
		switch s.Kind {
		case ScaleSu:
			scalingFactor = math.Sqrt(1.0 + math.Log(scale)/math.Log(float64(cfg.OriginalMaxPosition)))
		case ScaleYarn:
			scalingFactor = 0.1*math.Log(scale) + 1.0
		default:
			return nil, configErrf("unsupported scaling kind %s", s.Kind)
		}
	}

	shortSin, shortCos := buildTables(invFreqs(cfg.Theta, cfg.Dim, s.ShortFactor), cfg.MaxPosition, scalingFactor, dt)
	longSin, longCos := buildTables(invFreqs(cfg.Theta, cfg.Dim, s.LongFactor), cfg.MaxPosition, scalingFactor, dt)
	metrics.RecordTableBuild(s.Kind.String())
	logger.Log.Component("rope").Debug("built rotation tables",
		"variant", s.Kind.String(), "dim", cfg.Dim, "scaling_factor", scalingFactor)
	return &Rotary{
		shortSin:    shortSin,
		shortCos:    shortCos,
		longSin:     longSin,
		longCos:     longCos,
		originalMax: cfg.OriginalMaxPosition,
		dim:         cfg.Dim,
		gptNeoX:     gptNeoX,
	}, nil
}

// newScaledMScale applies explicit per-table multipliers instead of a
// derived factor. Only the su/longrope tag supports this form.
func newScaledMScale(cfg Config, dt dtype.DType, gptNeoX bool) (*Rotary, error) {
	s := cfg.Scaling
	if s.Kind != ScaleSu {
		return nil, configErrf("scaled rope with explicit mscales must have type `su`/`longrope`, got %s", s.Kind)
	}

	shortSin, shortCos := buildTables(invFreqs(cfg.Theta, cfg.Dim, s.ShortFactor), cfg.MaxPosition, s.ShortMScale, dt)
	longSin, longCos := buildTables(invFreqs(cfg.Theta, cfg.Dim, s.LongFactor), cfg.MaxPosition, s.LongMScale, dt)
	metrics.RecordTableBuild("su-mscale")
	return &Rotary{
		shortSin:    shortSin,
		shortCos:    shortCos,
		longSin:     longSin,
		longCos:     longCos,
		originalMax: cfg.OriginalMaxPosition,
		dim:         cfg.Dim,
		gptNeoX:     gptNeoX,
	}, nil
}

// NewLlama3 builds a single table with Llama-family frequency
// interpolation. A nil scaling descriptor falls back to the unscaled
// construction.
func NewLlama3(theta float64, dim, maxPosition int, s *Llama3Scaling, dt dtype.DType, gptNeoX bool) (*Rotary, error) {
	cfg := Config{Theta: theta, Dim: dim, MaxPosition: maxPosition}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return newUnscaled(cfg, dt, gptNeoX), nil
	}
	if s.Factor == 0 || s.LowFreqFactor == 0 || s.HighFreqFactor == 0 || s.OriginalMaxPosition <= 0 {
		return nil, configErrf("llama3 scaling requires factor, low_freq_factor, high_freq_factor and original max position")
	}

	lowFreqWavelen := float32(s.OriginalMaxPosition) / s.LowFreqFactor
	highFreqWavelen := float32(s.OriginalMaxPosition) / s.HighFreqFactor

	inv := invFreqs(theta, dim, nil)
	for i, freq := range inv {
		wavelen := 2 * math.Pi / freq
		switch {
		case wavelen < highFreqWavelen:
			// High-frequency band keeps its original rotation rate.
		case wavelen > lowFreqWavelen:
			inv[i] = freq / s.Factor
		default:
			smooth := (float32(s.OriginalMaxPosition)/wavelen - s.LowFreqFactor) /
				(s.HighFreqFactor - s.LowFreqFactor)
			inv[i] = (1-smooth)*freq/s.Factor + smooth*freq
		}
	}

	sin, cos := buildTables(inv, maxPosition, 1.0, dt)
	metrics.RecordTableBuild("llama3")
	logger.Log.Component("rope").Debug("built rotation table",
		"variant", "llama3", "dim", dim, "factor", s.Factor)
	return &Rotary{
		shortSin: sin,
		shortCos: cos,
		dim:      dim,
		gptNeoX:  gptNeoX,
	}, nil
}

// invFreqs computes 1 / (factor[k] * theta^(2k/dim)) for k in [0, dim/2).
// A nil factor slice means no per-index rescale.
func invFreqs(theta float64, dim int, factor []float64) []float32 {
	half := dim / 2
	out := make([]float32, half)
	for k := 0; k < half; k++ {
		f := 1.0
		if factor != nil {
			f = factor[k]
		}
		out[k] = float32(1.0 / (f * math.Pow(theta, float64(2*k)/float64(dim))))
	}
	return out
}

// buildTables computes the outer product of positions with the inverse
// frequencies, takes sin/cos, applies mul, and encodes into dt.
func buildTables(invFreq []float32, maxPosition int, mul float64, dt dtype.DType) (sin, cos *tensor.Matrix) {
	half := len(invFreq)
	sin = tensor.New(dt, maxPosition, half)
	cos = tensor.New(dt, maxPosition, half)
	for t := 0; t < maxPosition; t++ {
		for i, f := range invFreq {
			angle := float64(float32(t) * f)
			sin.Set(t, i, float32(math.Sin(angle)*mul))
			cos.Set(t, i, float32(math.Cos(angle)*mul))
		}
	}
	return sin, cos
}

// tables picks the long pair when the batch reaches past the original
// context length, and the short (or sole) pair otherwise.
func (r *Rotary) tables(positionIDs []int) (sin, cos *tensor.Matrix) {
	if r.longSin == nil {
		return r.shortSin, r.shortCos
	}
	maxPos := 0
	for _, p := range positionIDs {
		if p > maxPos {
			maxPos = p
		}
	}
	if maxPos+1 > r.originalMax {
		return r.longSin, r.longCos
	}
	return r.shortSin, r.shortCos
}
