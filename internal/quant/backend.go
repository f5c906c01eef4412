package quant

import (
	"fmt"

	"golang.org/x/sys/cpu"
)

// Backend selects the dequantization execution path. Scalar is portable
// and always present. Accel runs the wide unrolled kernels and must be
// requested explicitly; an unavailable backend fails the call rather
// than falling back.
type Backend int

const (
	Scalar Backend = iota
	Accel
)

func (b Backend) String() string {
	switch b {
	case Scalar:
		return "scalar"
	case Accel:
		return "accel"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

var accelSupported = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD

// Available reports whether the backend can execute on this host.
// Callers should probe before requesting Accel.
func (b Backend) Available() bool {
	switch b {
	case Scalar:
		return true
	case Accel:
		return accelSupported
	default:
		return false
	}
}
