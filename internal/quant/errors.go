package quant

import (
	"errors"
	"fmt"

	"github.com/thedatamates/mistral.rs/internal/metrics"
)

// ConfigError reports a malformed weight or layer configuration at
// construction time.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "quant: " + e.Msg }

func configErrf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError reports an input that violates a call contract:
// wrong storage element type, a non-contiguous tensor, or mismatched
// scale/zero element types. The operation writes no output before
// detecting the violation.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string { return "quant: " + e.Op + ": " + e.Msg }

func precondErrf(op, format string, args ...interface{}) error {
	metrics.RecordPrecondition(op)
	return &PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ErrBackendUnavailable is returned when the requested backend cannot
// execute on this host. It is distinct from PreconditionError so a
// caller can retry on the scalar backend instead of failing the
// request. The call never falls back on its own.
var ErrBackendUnavailable = errors.New("quant: backend unavailable")
