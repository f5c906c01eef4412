package quant

// Scalar dequantization kernels, one per packing layout. Unit i of the
// storage feeds flat index i of every sub-block; block b lands at
// out[b*n : (b+1)*n] with n = h*w, and the column index is i mod w
// local to the block.

func dequant8Scalar(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for i := 0; i < n; i++ {
		j := i % w
		out[i] = (float32(data[i]) - zeros[j]) * scales[j]
	}
}

func dequant4Scalar(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for i := 0; i < n; i++ {
		j := i % w
		s, z := scales[j], zeros[j]
		b := data[i]
		out[i] = (float32(b>>4) - z) * s
		out[n+i] = (float32(b&0x0F) - z) * s
	}
}

func dequant2Scalar(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for i := 0; i < n; i++ {
		j := i % w
		s, z := scales[j], zeros[j]
		b := data[i]
		out[i] = (float32(b>>6&0x03) - z) * s
		out[n+i] = (float32(b>>4&0x03) - z) * s
		out[2*n+i] = (float32(b>>2&0x03) - z) * s
		out[3*n+i] = (float32(b&0x03) - z) * s
	}
}

func dequant1Scalar(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for i := 0; i < n; i++ {
		j := i % w
		s, z := scales[j], zeros[j]
		b := data[i]
		for blk := 0; blk < 8; blk++ {
			out[blk*n+i] = (float32(b>>(7-blk)&0x01) - z) * s
		}
	}
}

// 3-bit packing stores 10 codes per signed 32-bit word, MSB-aligned
// from bit 27 down to bit 0. Bits 31..30 are unused.
func dequant3Scalar(data []int32, scales, zeros []float32, n, w int, out []float32) {
	for i := 0; i < n; i++ {
		j := i % w
		s, z := scales[j], zeros[j]
		word := data[i]
		for blk := 0; blk < 10; blk++ {
			v := word >> (27 - 3*blk) & 0x07
			out[blk*n+i] = (float32(v) - z) * s
		}
	}
}
