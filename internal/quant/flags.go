package quant

import "sync/atomic"

// Process-wide reduced-precision controls. useMatMulViaF16 makes MatMul
// cast its operands through f16 around the multiply. inhibitF16 is
// one-way: set once at startup when the capability probe rules the f16
// path out, it turns every later toggle into a no-op.
var (
	useMatMulViaF16 atomic.Bool
	inhibitF16      atomic.Bool
)

// SetMatMulViaF16 toggles the reduced-precision multiply path. A no-op
// once InhibitMatMulViaF16 has been called.
func SetMatMulViaF16(v bool) {
	if inhibitF16.Load() {
		return
	}
	useMatMulViaF16.Store(v)
}

// MatMulViaF16 reports whether multiplies currently route through f16.
func MatMulViaF16() bool { return useMatMulViaF16.Load() }

// InhibitMatMulViaF16 permanently disables the f16 path and clears the
// toggle. There is no way to re-enable within the process lifetime.
func InhibitMatMulViaF16() {
	inhibitF16.Store(true)
	useMatMulViaF16.Store(false)
}
