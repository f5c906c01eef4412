package quant

// Accelerated dequantization kernels: the same arithmetic as the scalar
// kernels, restructured row-wise with the column loop unrolled four
// wide. Gated behind the capability probe in backend.go.

func dequant8Accel(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for r := 0; r < n/w; r++ {
		row := data[r*w : (r+1)*w]
		orow := out[r*w : (r+1)*w]
		j := 0
		for ; j+4 <= w; j += 4 {
			orow[j] = (float32(row[j]) - zeros[j]) * scales[j]
			orow[j+1] = (float32(row[j+1]) - zeros[j+1]) * scales[j+1]
			orow[j+2] = (float32(row[j+2]) - zeros[j+2]) * scales[j+2]
			orow[j+3] = (float32(row[j+3]) - zeros[j+3]) * scales[j+3]
		}
		for ; j < w; j++ {
			orow[j] = (float32(row[j]) - zeros[j]) * scales[j]
		}
	}
}

func dequant4Accel(data []byte, scales, zeros []float32, n, w int, out []float32) {
	hi := out[:n]
	lo := out[n : 2*n]
	for r := 0; r < n/w; r++ {
		row := data[r*w : (r+1)*w]
		hrow := hi[r*w : (r+1)*w]
		lrow := lo[r*w : (r+1)*w]
		j := 0
		for ; j+4 <= w; j += 4 {
			hrow[j] = (float32(row[j]>>4) - zeros[j]) * scales[j]
			hrow[j+1] = (float32(row[j+1]>>4) - zeros[j+1]) * scales[j+1]
			hrow[j+2] = (float32(row[j+2]>>4) - zeros[j+2]) * scales[j+2]
			hrow[j+3] = (float32(row[j+3]>>4) - zeros[j+3]) * scales[j+3]
			lrow[j] = (float32(row[j]&0x0F) - zeros[j]) * scales[j]
			lrow[j+1] = (float32(row[j+1]&0x0F) - zeros[j+1]) * scales[j+1]
			lrow[j+2] = (float32(row[j+2]&0x0F) - zeros[j+2]) * scales[j+2]
			lrow[j+3] = (float32(row[j+3]&0x0F) - zeros[j+3]) * scales[j+3]
		}
		for ; j < w; j++ {
			hrow[j] = (float32(row[j]>>4) - zeros[j]) * scales[j]
			lrow[j] = (float32(row[j]&0x0F) - zeros[j]) * scales[j]
		}
	}
}

func dequant2Accel(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for r := 0; r < n/w; r++ {
		row := data[r*w : (r+1)*w]
		base := r * w
		for blk := 0; blk < 4; blk++ {
			shift := uint(6 - 2*blk)
			brow := out[blk*n+base : blk*n+base+w]
			j := 0
			for ; j+4 <= w; j += 4 {
				brow[j] = (float32(row[j]>>shift&0x03) - zeros[j]) * scales[j]
				brow[j+1] = (float32(row[j+1]>>shift&0x03) - zeros[j+1]) * scales[j+1]
				brow[j+2] = (float32(row[j+2]>>shift&0x03) - zeros[j+2]) * scales[j+2]
				brow[j+3] = (float32(row[j+3]>>shift&0x03) - zeros[j+3]) * scales[j+3]
			}
			for ; j < w; j++ {
				brow[j] = (float32(row[j]>>shift&0x03) - zeros[j]) * scales[j]
			}
		}
	}
}

func dequant1Accel(data []byte, scales, zeros []float32, n, w int, out []float32) {
	for r := 0; r < n/w; r++ {
		row := data[r*w : (r+1)*w]
		base := r * w
		for blk := 0; blk < 8; blk++ {
			shift := uint(7 - blk)
			brow := out[blk*n+base : blk*n+base+w]
			j := 0
			for ; j+4 <= w; j += 4 {
				brow[j] = (float32(row[j]>>shift&0x01) - zeros[j]) * scales[j]
				brow[j+1] = (float32(row[j+1]>>shift&0x01) - zeros[j+1]) * scales[j+1]
				brow[j+2] = (float32(row[j+2]>>shift&0x01) - zeros[j+2]) * scales[j+2]
				brow[j+3] = (float32(row[j+3]>>shift&0x01) - zeros[j+3]) * scales[j+3]
			}
			for ; j < w; j++ {
				brow[j] = (float32(row[j]>>shift&0x01) - zeros[j]) * scales[j]
			}
		}
	}
}

func dequant3Accel(data []int32, scales, zeros []float32, n, w int, out []float32) {
	for r := 0; r < n/w; r++ {
		row := data[r*w : (r+1)*w]
		base := r * w
		for blk := 0; blk < 10; blk++ {
			shift := uint(27 - 3*blk)
			brow := out[blk*n+base : blk*n+base+w]
			j := 0
			for ; j+4 <= w; j += 4 {
				brow[j] = (float32(row[j]>>shift&0x07) - zeros[j]) * scales[j]
				brow[j+1] = (float32(row[j+1]>>shift&0x07) - zeros[j+1]) * scales[j+1]
				brow[j+2] = (float32(row[j+2]>>shift&0x07) - zeros[j+2]) * scales[j+2]
				brow[j+3] = (float32(row[j+3]>>shift&0x07) - zeros[j+3]) * scales[j+3]
			}
			for ; j < w; j++ {
				brow[j] = (float32(row[j]>>shift&0x07) - zeros[j]) * scales[j]
			}
		}
	}
}
