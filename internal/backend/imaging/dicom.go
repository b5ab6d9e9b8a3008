package imaging

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	_ "image/jpeg"
	_ "image/png"
)

// Metadata holds the non-identifying acquisition attributes shown next to a DICOM image.
// Patient identifiers are never read.
type Metadata map[string]string

var metadataTags = []struct {
	key string
	tag tag.Tag
}{
	{"Modality", tag.Modality},
	{"BodyPartExamined", tag.BodyPartExamined},
	{"StudyDescription", tag.StudyDescription},
	{"SeriesDescription", tag.SeriesDescription},
	{"PhotometricInterpretation", tag.PhotometricInterpretation},
}

// pixelEncoding describes how stored sample bits map to values. The parser hands back
// unsigned words regardless of PixelRepresentation, so the sign is applied here.
type pixelEncoding struct {
	signed     bool
	bitsStored int
}

type storedSample interface {
	~uint8 | ~uint16 | ~uint32
}

func readPixelEncoding(dataset dicom.Dataset) pixelEncoding {
	return pixelEncoding{
		signed:     readIntTag(dataset, tag.PixelRepresentation) == 1,
		bitsStored: readIntTag(dataset, tag.BitsStored),
	}
}

func readIntTag(dataset dicom.Dataset, t tag.Tag) int {
	element, err := dataset.FindElementByTag(t)
	if err != nil {
		return 0
	}
	if values, ok := element.Value.GetValue().([]int); ok && len(values) > 0 {
		return values[0]
	}
	return 0
}

// sampleValues converts stored words to their numeric values. Signed samples are
// sign-extended from BitsStored (or the allocated width when BitsStored is absent).
func sampleValues[T storedSample](raw []T, bitsAllocated int, enc pixelEncoding) []float64 {
	out := make([]float64, len(raw))
	if !enc.signed {
		for i, v := range raw {
			out[i] = float64(v)
		}
		return out
	}

	bits := enc.bitsStored
	if bits <= 0 || bits > bitsAllocated {
		bits = bitsAllocated
	}
	mask := uint64(1)<<bits - 1
	signBit := uint64(1) << (bits - 1)
	for i, v := range raw {
		word := uint64(v) & mask
		if word&signBit != 0 {
			out[i] = float64(int64(word) - int64(mask) - 1)
			continue
		}
		out[i] = float64(word)
	}
	return out
}

// DecodeDICOM parses a DICOM byte stream and returns the first frame as a normalized 8-bit raster.
// Every failure wraps ErrDecode; nothing is retried.
func DecodeDICOM(data []byte) (img image.Image, meta Metadata, err error) {
	defer func() {
		// the parser indexes into lengths read from the stream; corrupt input can panic
		if r := recover(); r != nil {
			img, meta = nil, nil
			err = fmt.Errorf("%w: malformed DICOM stream: %v", ErrDecode, r)
		}
	}()

	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty DICOM stream", ErrDecode)
	}

	dataset, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	meta = readMetadata(dataset)

	pixelElement, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: no pixel data: %v", ErrDecode, err)
	}
	info, ok := pixelElement.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 || info.Frames[0] == nil {
		return nil, meta, fmt.Errorf("%w: pixel data holds no frames", ErrDecode)
	}

	first := info.Frames[0]
	if first.Encapsulated {
		img, err = decodeEncapsulatedFrame(first)
	} else {
		img, err = decodeNativeFrame(first, readPixelEncoding(dataset))
	}
	if err != nil {
		return nil, meta, err
	}

	if gray, ok := img.(*image.Gray); ok && strings.EqualFold(meta["PhotometricInterpretation"], "MONOCHROME1") {
		invertGray(gray)
	}

	slog.Debug("DecodeDICOM: frame decoded",
		"frames", len(info.Frames),
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"modality", meta["Modality"])

	return img, meta, nil
}

func decodeNativeFrame(f *frame.Frame, enc pixelEncoding) (image.Image, error) {
	native := f.NativeData
	if native == nil {
		return nil, fmt.Errorf("%w: frame has no native data", ErrDecode)
	}

	var samples []float64
	switch nf := native.(type) {
	case *frame.NativeFrame[uint8]:
		samples = sampleValues(nf.RawData, 8, enc)
	case *frame.NativeFrame[uint16]:
		samples = sampleValues(nf.RawData, 16, enc)
	case *frame.NativeFrame[uint32]:
		samples = sampleValues(nf.RawData, 32, enc)
	default:
		return nil, fmt.Errorf("%w: unsupported native frame type %T", ErrDecode, native)
	}

	return rasterFromSamples(NormalizeSamples(samples), native.Rows(), native.Cols(), native.SamplesPerPixel())
}

// decodeEncapsulatedFrame handles compressed transfer syntaxes whose bitstream the
// registered image decoders understand (baseline JPEG); anything else is unsupported.
func decodeEncapsulatedFrame(f *frame.Frame) (image.Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(f.EncapsulatedData.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrDecode, ErrUnsupportedTransferSyntax, err)
	}
	return normalizeImage(decoded)
}

// normalizeImage applies the same min/max stretch to an already decoded raster
func normalizeImage(src image.Image) (image.Image, error) {
	bounds := src.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()

	grayscale := isGrayModel(src)
	samplesPerPixel := 3
	if grayscale {
		samplesPerPixel = 1
	}

	samples := make([]float64, 0, rows*cols*samplesPerPixel)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			if grayscale {
				samples = append(samples, float64(r))
				continue
			}
			samples = append(samples, float64(r), float64(g), float64(b))
		}
	}
	return rasterFromSamples(NormalizeSamples(samples), rows, cols, samplesPerPixel)
}

func isGrayModel(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

func readMetadata(dataset dicom.Dataset) Metadata {
	meta := Metadata{}
	for _, entry := range metadataTags {
		element, err := dataset.FindElementByTag(entry.tag)
		if err != nil {
			continue
		}
		if values, ok := element.Value.GetValue().([]string); ok && len(values) > 0 {
			if value := strings.TrimSpace(strings.Join(values, "\\")); value != "" {
				meta[entry.key] = value
			}
		}
	}
	return meta
}
