package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PrecisionMode selects how matrix multiplies treat reduced precision.
type PrecisionMode int

const (
	// PrecisionAuto leaves the f16 path to the capability probe.
	PrecisionAuto PrecisionMode = iota
	// PrecisionF16 turns the f16 matmul path on at startup.
	PrecisionF16
	// PrecisionF32 inhibits the f16 path for the process lifetime.
	PrecisionF32
)

func (m PrecisionMode) String() string {
	switch m {
	case PrecisionAuto:
		return "auto"
	case PrecisionF16:
		return "f16"
	case PrecisionF32:
		return "f32"
	default:
		return fmt.Sprintf("precision(%d)", int(m))
	}
}

func ParsePrecisionMode(s string) (PrecisionMode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return PrecisionAuto, nil
	case "f16", "fp16", "half":
		return PrecisionF16, nil
	case "f32", "fp32", "full":
		return PrecisionF32, nil
	default:
		return 0, fmt.Errorf("invalid precision mode: %q", s)
	}
}

// Config holds process-level kernel settings. Per-model shape parameters
// (dims, heads, scaling descriptors) arrive through the rope and quant
// constructors; this carries only what applies to every call in the
// process.
type Config struct {
	Precision PrecisionMode
	Backend   string // "scalar" or "accel"
	LogLevel  string
	LogFormat string // "json" or "console"

	RopeTheta float64 // default base frequency when a model omits one
	MaxSeqLen int
}

func Default() Config {
	return Config{
		Precision: PrecisionAuto,
		Backend:   "scalar",
		LogLevel:  "info",
		LogFormat: "json",
		RopeTheta: 10000.0,
		MaxSeqLen: 2048,
	}
}

// FromEnv overlays MRS_* environment variables onto the defaults and
// validates the result.
func FromEnv() (Config, error) {
	c := Default()
	if v := os.Getenv("MRS_PRECISION"); v != "" {
		mode, err := ParsePrecisionMode(v)
		if err != nil {
			return c, err
		}
		c.Precision = mode
	}
	if v := os.Getenv("MRS_BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("MRS_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("MRS_LOG_FORMAT"); v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("MRS_ROPE_THETA"); v != "" {
		theta, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("invalid MRS_ROPE_THETA: %q", v)
		}
		c.RopeTheta = theta
	}
	if v := os.Getenv("MRS_MAX_SEQ_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid MRS_MAX_SEQ_LEN: %q", v)
		}
		c.MaxSeqLen = n
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Backend != "scalar" && c.Backend != "accel" {
		return fmt.Errorf("invalid backend: %q (must be scalar or accel)", c.Backend)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log_format: %q (must be json or console)", c.LogFormat)
	}
	if c.RopeTheta <= 0 {
		return fmt.Errorf("invalid rope_theta: %f (must be positive)", c.RopeTheta)
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("invalid max_seq_len: %d (must be positive)", c.MaxSeqLen)
	}
	return nil
}
