// Package imaging turns uploaded medical image files into normalized 8-bit rasters.
package imaging

import (
	"errors"
	"path/filepath"
	"strings"
)

// Format is the decoding path chosen for an upload
type Format string

const (
	FormatDICOM   Format = "dicom"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatWebP    Format = "webp"
	FormatSVG     Format = "svg"
	FormatUnknown Format = ""
)

var (
	// ErrDecode is returned for any upload whose bytes cannot be turned into a raster
	ErrDecode = errors.New("failed to decode image")
	// ErrUnsupportedFormat is returned when the declared filename has no known extension
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrUnsupportedTransferSyntax is returned for DICOM pixel data that cannot be decompressed
	ErrUnsupportedTransferSyntax = errors.New("unsupported DICOM transfer syntax")
)

var extensionFormats = map[string]Format{
	".dcm":   FormatDICOM,
	".dicom": FormatDICOM,
	".jpg":   FormatJPEG,
	".jpeg":  FormatJPEG,
	".png":   FormatPNG,
	".bmp":   FormatBMP,
	".tif":   FormatTIFF,
	".tiff":  FormatTIFF,
	".webp":  FormatWebP,
	".svg":   FormatSVG,
}

// DetectFormat picks the decoding path from the declared filename, case-insensitively.
// Content is not sniffed: a DICOM payload named scan.png goes down the raster path and fails there.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}
	return FormatUnknown, ErrUnsupportedFormat
}

// SupportedExtensions lists the accepted extensions for the upload widget
func SupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".dcm", ".dicom", ".bmp", ".tif", ".tiff", ".webp", ".svg"}
}
