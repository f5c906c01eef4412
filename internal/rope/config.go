package rope

import "fmt"

// ConfigError reports a malformed rotary configuration. Construction
// never repairs or truncates a bad config.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "rope: " + e.Msg }

func configErrf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ScalingKind selects the long-context scaling rule.
type ScalingKind int

const (
	// ScaleSu covers the "su" and "longrope" tags.
	ScaleSu ScalingKind = iota
	ScaleYarn
)

func (k ScalingKind) String() string {
	switch k {
	case ScaleSu:
		return "su"
	case ScaleYarn:
		return "yarn"
	default:
		return fmt.Sprintf("scaling(%d)", int(k))
	}
}

// ParseScalingKind maps a config tag to its ScalingKind.
func ParseScalingKind(s string) (ScalingKind, error) {
	switch s {
	case "su", "longrope":
		return ScaleSu, nil
	case "yarn":
		return ScaleYarn, nil
	default:
		return 0, configErrf("expected `su`, `longrope` or `yarn` scaled rope type, got %q", s)
	}
}

// Scaling describes the short/long rescale factors. When ShortMScale or
// LongMScale is non-zero the explicit multipliers are applied per table;
// otherwise a single scaling factor is derived from the position bounds.
type Scaling struct {
	Kind        ScalingKind
	ShortFactor []float64
	LongFactor  []float64
	ShortMScale float64
	LongMScale  float64
}

// HasMScales reports whether explicit per-table multipliers were given.
func (s *Scaling) HasMScales() bool {
	return s.ShortMScale != 0 || s.LongMScale != 0
}

// Config is the rotary configuration handed in by model-loading code.
type Config struct {
	Theta               float64
	Dim                 int
	MaxPosition         int
	OriginalMaxPosition int
	Scaling             *Scaling // nil for unscaled rope
}

func (c *Config) validate() error {
	if c.Dim <= 0 || c.Dim%2 != 0 {
		return configErrf("rotary dim must be positive and even, got %d", c.Dim)
	}
	if c.Theta <= 0 {
		return configErrf("theta must be positive, got %f", c.Theta)
	}
	if c.MaxPosition <= 0 {
		return configErrf("max position must be positive, got %d", c.MaxPosition)
	}
	if c.Scaling != nil {
		half := c.Dim / 2
		if len(c.Scaling.ShortFactor) != half {
			return configErrf("misaligned length %d, expected %d for short rescale factors", len(c.Scaling.ShortFactor), half)
		}
		if len(c.Scaling.LongFactor) != half {
			return configErrf("misaligned length %d, expected %d for long rescale factors", len(c.Scaling.LongFactor), half)
		}
		if c.OriginalMaxPosition <= 0 {
			return configErrf("scaled rope requires original max position, got %d", c.OriginalMaxPosition)
		}
	}
	return nil
}

// Llama3Scaling is the Llama-family frequency interpolation descriptor.
type Llama3Scaling struct {
	Factor              float32
	LowFreqFactor       float32
	HighFreqFactor      float32
	OriginalMaxPosition int
}
