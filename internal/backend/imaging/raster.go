package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeRaster decodes a standard raster upload. The registered decoders sniff the
// content, so a JPEG saved as .png still decodes.
func DecodeRaster(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Decode dispatches on the format detected from the filename
func Decode(filename string, data []byte, svgFallback image.Point) (image.Image, Metadata, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", err, filename)
	}

	switch format {
	case FormatDICOM:
		return DecodeDICOM(data)
	case FormatSVG:
		img, err := RasterizeSVG(data, svgFallback.X, svgFallback.Y)
		return img, nil, err
	default:
		img, err := DecodeRaster(data)
		return img, nil, err
	}
}

// EncodePNG serialises a raster as PNG, the interchange format between pipeline steps
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
