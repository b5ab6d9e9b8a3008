package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func grayRange(t *testing.T, img image.Image) (uint8, uint8) {
	t.Helper()
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", img)
	}
	lo, hi := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func TestDecodeDICOM_NormalizesToFullRange(t *testing.T) {
	data := buildMonochromeDICOM(t, 4, 6, gradientPixels(4, 6, 1000, 250))

	img, meta, err := DecodeDICOM(data)
	if err != nil {
		t.Fatalf("DecodeDICOM failed: %v", err)
	}

	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 4 {
		t.Errorf("expected 6x4 raster, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	lo, hi := grayRange(t, img)
	if lo != 0 || hi != 255 {
		t.Errorf("expected range [0,255], got [%d,%d]", lo, hi)
	}
	if meta["Modality"] != "MR" {
		t.Errorf("expected modality MR, got %q", meta["Modality"])
	}
	if meta["BodyPartExamined"] != "HEAD" {
		t.Errorf("expected body part HEAD, got %q", meta["BodyPartExamined"])
	}
}

func TestDecodeDICOM_ConstantImageIsAllZero(t *testing.T) {
	pixels := make([]uint16, 9)
	for i := range pixels {
		pixels[i] = 4242
	}
	data := buildMonochromeDICOM(t, 3, 3, pixels)

	img, _, err := DecodeDICOM(data)
	if err != nil {
		t.Fatalf("DecodeDICOM failed: %v", err)
	}
	lo, hi := grayRange(t, img)
	if lo != 0 || hi != 0 {
		t.Errorf("expected all-zero raster, got range [%d,%d]", lo, hi)
	}
}

func TestDecodeDICOM_CorruptStream(t *testing.T) {
	valid := buildMonochromeDICOM(t, 8, 8, gradientPixels(8, 8, 0, 10))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not dicom", []byte("this is certainly not a DICOM file")},
		{"preamble only", make([]byte, 132)},
		{"truncated pixel data", valid[:len(valid)-40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := DecodeDICOM(tt.data)
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
			if img != nil {
				t.Error("expected no raster on decode failure")
			}
		})
	}
}

func TestDecodeDICOM_SignedPixelData(t *testing.T) {
	// air, air, water, bone in Hounsfield units
	data := buildSignedDICOM(t, 2, 2, []int16{-1024, -1024, 0, 1000})

	img, _, err := DecodeDICOM(data)
	if err != nil {
		t.Fatalf("DecodeDICOM failed: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", img)
	}

	expected := []uint8{0, 0, 129, 255}
	if !bytes.Equal(gray.Pix, expected) {
		t.Errorf("Expected %v, got %v", expected, gray.Pix)
	}
}

func TestSampleValues(t *testing.T) {
	tests := []struct {
		name     string
		raw      []uint16
		enc      pixelEncoding
		expected []float64
	}{
		{"unsigned", []uint16{0, 64512, 65535}, pixelEncoding{}, []float64{0, 64512, 65535}},
		{"signed 16 bit", []uint16{64512, 0, 1000}, pixelEncoding{signed: true, bitsStored: 16}, []float64{-1024, 0, 1000}},
		{"signed 12 bit", []uint16{0x0C00, 0x07FF, 0x0800}, pixelEncoding{signed: true, bitsStored: 12}, []float64{-1024, 2047, -2048}},
		{"signed without bits stored", []uint16{0xFFFF}, pixelEncoding{signed: true}, []float64{-1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sampleValues(tt.raw, 16, tt.enc)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d values, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("value %d: Expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestDecodeDICOM_Monochrome1IsInverted(t *testing.T) {
	data := buildDICOM(t, 2, 3, gradientPixels(2, 3, 100, 50), fixtureOptions{photometric: "MONOCHROME1"})

	img, meta, err := DecodeDICOM(data)
	if err != nil {
		t.Fatalf("DecodeDICOM failed: %v", err)
	}
	if meta["PhotometricInterpretation"] != "MONOCHROME1" {
		t.Errorf("Expected MONOCHROME1, got %q", meta["PhotometricInterpretation"])
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", img)
	}
	if gray.Pix[0] != 255 {
		t.Errorf("Expected lowest stored value to render white, got %d", gray.Pix[0])
	}
	if last := gray.Pix[len(gray.Pix)-1]; last != 0 {
		t.Errorf("Expected highest stored value to render black, got %d", last)
	}
}

func TestDecodeDICOM_RGBUsesGlobalRange(t *testing.T) {
	// red spans the full 0..40 range; green and blue stay inside it
	samples := []uint8{
		0, 20, 20, 10, 20, 20,
		30, 20, 20, 40, 10, 10,
	}
	data := buildRGBDICOM(t, 2, 2, samples)

	img, _, err := DecodeDICOM(data)
	if err != nil {
		t.Fatalf("DecodeDICOM failed: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("expected *image.RGBA, got %T", img)
	}

	tests := []struct {
		x, y     int
		expected color.RGBA
	}{
		{0, 0, color.RGBA{R: 0, G: 127, B: 127, A: 255}},
		{1, 0, color.RGBA{R: 63, G: 127, B: 127, A: 255}},
		{0, 1, color.RGBA{R: 191, G: 127, B: 127, A: 255}},
		{1, 1, color.RGBA{R: 255, G: 63, B: 63, A: 255}},
	}
	for _, tt := range tests {
		if got := rgba.RGBAAt(tt.x, tt.y); got != tt.expected {
			t.Errorf("pixel (%d,%d): Expected %+v, got %+v", tt.x, tt.y, tt.expected, got)
		}
	}
}

func TestDecodeDICOM_MetadataSkipsPatientTags(t *testing.T) {
	data := buildDICOM(t, 2, 2, gradientPixels(2, 2, 0, 10), fixtureOptions{
		extra: []*dicom.Element{
			mustNewElement(t, tag.StudyDescription, []string{"BRAIN W/O"}),
			mustNewElement(t, tag.PatientName, []string{"DOE^JANE"}),
			mustNewElement(t, tag.PatientID, []string{"123456"}),
		},
	})

	_, meta, err := DecodeDICOM(data)
	if err != nil {
		t.Fatalf("DecodeDICOM failed: %v", err)
	}
	if meta["StudyDescription"] != "BRAIN W/O" {
		t.Errorf("Expected study description, got %q", meta["StudyDescription"])
	}
	for key, value := range meta {
		if key == "PatientName" || key == "PatientID" || value == "DOE^JANE" || value == "123456" {
			t.Errorf("Expected no patient identifiers, found %s=%q", key, value)
		}
	}
}

func TestDecodeEncapsulatedFrame_BaselineJPEG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(40 + x*10)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("failed to encode JPEG fixture: %v", err)
	}

	img, err := decodeEncapsulatedFrame(&frame.Frame{
		Encapsulated:     true,
		EncapsulatedData: frame.EncapsulatedFrame{Data: buf.Bytes()},
	})
	if err != nil {
		t.Fatalf("decodeEncapsulatedFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected 16x16 raster, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	lo, hi := grayRange(t, img)
	if lo != 0 || hi != 255 {
		t.Errorf("expected range [0,255], got [%d,%d]", lo, hi)
	}
}

func TestDecodeEncapsulatedFrame_UnsupportedBitstream(t *testing.T) {
	// JPEG 2000 codestream marker followed by junk
	_, err := decodeEncapsulatedFrame(&frame.Frame{
		Encapsulated:     true,
		EncapsulatedData: frame.EncapsulatedFrame{Data: []byte{0xFF, 0x4F, 0xFF, 0x51, 0x00, 0x2F}},
	})
	if err == nil {
		t.Fatal("expected error for undecodable bitstream")
	}
	if !errors.Is(err, ErrUnsupportedTransferSyntax) {
		t.Errorf("Expected ErrUnsupportedTransferSyntax, got %v", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}
