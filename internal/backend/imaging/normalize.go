package imaging

import (
	"fmt"
	"image"
	"math"
)

// NormalizeSamples shifts samples so the minimum becomes 0 and scales them so the
// maximum becomes 255, then truncates to 8 bits. A zero-range input is left unscaled,
// which after the shift is all zeros.
func NormalizeSamples(samples []float64) []uint8 {
	out := make([]uint8, len(samples))
	if len(samples) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	for i, v := range samples {
		shifted := v - lo
		if span > 0 {
			// divide first so the maximum lands on exactly 255
			shifted = shifted / span * 255
		}
		out[i] = uint8(shifted)
	}
	return out
}

// rasterFromSamples builds a grayscale or RGB raster from interleaved, normalized samples.
func rasterFromSamples(samples []uint8, rows, cols, samplesPerPixel int) (image.Image, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrDecode, cols, rows)
	}
	if len(samples) < rows*cols*samplesPerPixel {
		return nil, fmt.Errorf("%w: frame holds %d samples, expected %d", ErrDecode, len(samples), rows*cols*samplesPerPixel)
	}

	switch samplesPerPixel {
	case 1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		parallelFor(rows, func(y int) {
			copy(img.Pix[y*img.Stride:y*img.Stride+cols], samples[y*cols:(y+1)*cols])
		})
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, cols, rows))
		parallelFor(rows, func(y int) {
			for x := 0; x < cols; x++ {
				src := (y*cols + x) * 3
				dst := y*img.Stride + x*4
				img.Pix[dst] = samples[src]
				img.Pix[dst+1] = samples[src+1]
				img.Pix[dst+2] = samples[src+2]
				img.Pix[dst+3] = 255
			}
		})
		return img, nil
	default:
		return nil, fmt.Errorf("%w: %d samples per pixel", ErrDecode, samplesPerPixel)
	}
}

// invertGray flips a MONOCHROME1 raster so that higher values render brighter
func invertGray(img *image.Gray) {
	for i, v := range img.Pix {
		img.Pix[i] = 255 - v
	}
}
