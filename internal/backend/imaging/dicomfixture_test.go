package imaging

import (
	"bytes"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustNewElement(t *testing.T, elementTag tag.Tag, value any) *dicom.Element {
	t.Helper()
	element, err := dicom.NewElement(elementTag, value)
	if err != nil {
		t.Fatalf("failed to create element %v: %v", elementTag, err)
	}
	return element
}

// fixtureOptions selects the image pixel module written by the fixture builders.
// extra elements must sort between Modality and BodyPartExamined.
type fixtureOptions struct {
	photometric string
	signed      bool
	bitsStored  int
	extra       []*dicom.Element
}

func fixtureHeader(t *testing.T, rows, cols, bitsAllocated, samplesPerPixel int, opts fixtureOptions) []*dicom.Element {
	t.Helper()
	pixelRepresentation := 0
	if opts.signed {
		pixelRepresentation = 1
	}
	bitsStored := opts.bitsStored
	if bitsStored == 0 {
		bitsStored = bitsAllocated
	}

	elements := []*dicom.Element{
		mustNewElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNewElement(t, tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1.3680043.8.498.1"}),
		mustNewElement(t, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(t, tag.Modality, []string{"MR"}),
	}
	elements = append(elements, opts.extra...)
	elements = append(elements,
		mustNewElement(t, tag.BodyPartExamined, []string{"HEAD"}),
		mustNewElement(t, tag.SamplesPerPixel, []int{samplesPerPixel}),
		mustNewElement(t, tag.PhotometricInterpretation, []string{opts.photometric}),
	)
	if samplesPerPixel > 1 {
		elements = append(elements, mustNewElement(t, tag.PlanarConfiguration, []int{0}))
	}
	elements = append(elements,
		mustNewElement(t, tag.Rows, []int{rows}),
		mustNewElement(t, tag.Columns, []int{cols}),
		mustNewElement(t, tag.BitsAllocated, []int{bitsAllocated}),
		mustNewElement(t, tag.BitsStored, []int{bitsStored}),
		mustNewElement(t, tag.HighBit, []int{bitsStored - 1}),
		mustNewElement(t, tag.PixelRepresentation, []int{pixelRepresentation}),
	)
	return elements
}

func writeFixture(t *testing.T, elements []*dicom.Element, native frame.INativeFrame) []byte {
	t.Helper()
	elements = append(elements, mustNewElement(t, tag.PixelData, dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   native,
			},
		},
	}))

	var buf bytes.Buffer
	if err := dicom.Write(&buf, dicom.Dataset{Elements: elements}); err != nil {
		t.Fatalf("failed to write DICOM fixture: %v", err)
	}
	return buf.Bytes()
}

// buildDICOM writes a single-frame 16-bit single-sample dataset to memory
func buildDICOM(t *testing.T, rows, cols int, pixels []uint16, opts fixtureOptions) []byte {
	t.Helper()
	if len(pixels) != rows*cols {
		t.Fatalf("fixture needs %d pixels, got %d", rows*cols, len(pixels))
	}
	if opts.photometric == "" {
		opts.photometric = "MONOCHROME2"
	}

	nativeFrame := frame.NewNativeFrame[uint16](16, rows, cols, rows*cols, 1)
	copy(nativeFrame.RawData, pixels)
	return writeFixture(t, fixtureHeader(t, rows, cols, 16, 1, opts), nativeFrame)
}

func buildMonochromeDICOM(t *testing.T, rows, cols int, pixels []uint16) []byte {
	t.Helper()
	return buildDICOM(t, rows, cols, pixels, fixtureOptions{})
}

// buildSignedDICOM stores the values as two's complement words with PixelRepresentation 1
func buildSignedDICOM(t *testing.T, rows, cols int, values []int16) []byte {
	t.Helper()
	pixels := make([]uint16, len(values))
	for i, v := range values {
		pixels[i] = uint16(v)
	}
	return buildDICOM(t, rows, cols, pixels, fixtureOptions{signed: true})
}

// buildRGBDICOM writes a single-frame 8-bit interleaved RGB dataset to memory
func buildRGBDICOM(t *testing.T, rows, cols int, samples []uint8) []byte {
	t.Helper()
	if len(samples) != rows*cols*3 {
		t.Fatalf("fixture needs %d samples, got %d", rows*cols*3, len(samples))
	}

	nativeFrame := frame.NewNativeFrame[uint8](8, rows, cols, rows*cols, 3)
	copy(nativeFrame.RawData, samples)
	return writeFixture(t, fixtureHeader(t, rows, cols, 8, 3, fixtureOptions{photometric: "RGB"}), nativeFrame)
}

func gradientPixels(rows, cols int, base, step uint16) []uint16 {
	pixels := make([]uint16, rows*cols)
	for i := range pixels {
		pixels[i] = base + uint16(i)*step
	}
	return pixels
}
