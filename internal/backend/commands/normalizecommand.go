package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/imagingagent/internal/backend/commandstructure"
	"github.com/jo-hoe/imagingagent/internal/backend/imaging"
)

// NormalizeCommand decodes an upload (DICOM, raster or SVG) into PNG bytes.
// DICOM pixel values are stretched to the 0-255 range on the way.
type NormalizeCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewNormalizeCommand creates a normalize command; svgFallbackWidth/Height size SVGs without explicit dimensions
func NewNormalizeCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 1024)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 768)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg fallback size must be positive, got %dx%d", w, h)
	}

	return &NormalizeCommand{
		name:              "NormalizeCommand",
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
	}, nil
}

// Name returns the command name
func (c *NormalizeCommand) Name() string {
	return c.name
}

// Execute decodes the upload by its declared filename and re-encodes it as PNG
func (c *NormalizeCommand) Execute(input *commandstructure.ImageData) (*commandstructure.ImageData, error) {
	slog.Debug("NormalizeCommand: decoding upload",
		"filename", input.Filename,
		"input_size_bytes", len(input.Data))

	img, meta, err := imaging.Decode(input.Filename, input.Data, image.Pt(c.svgFallbackWidth, c.svgFallbackHeight))
	if err != nil {
		slog.Warn("NormalizeCommand: failed to decode upload", "filename", input.Filename, "error", err)
		return nil, err
	}

	out, err := imaging.EncodePNG(img)
	if err != nil {
		slog.Error("NormalizeCommand: failed to encode PNG", "error", err)
		return nil, err
	}

	metadata := make(map[string]string, len(input.Metadata)+len(meta)+2)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	for k, v := range meta {
		metadata[k] = v
	}
	metadata["Width"] = fmt.Sprintf("%d", img.Bounds().Dx())
	metadata["Height"] = fmt.Sprintf("%d", img.Bounds().Dy())

	slog.Debug("NormalizeCommand: upload normalized",
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"output_size_bytes", len(out))

	return &commandstructure.ImageData{
		Filename: input.Filename,
		Data:     out,
		Metadata: metadata,
	}, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("NormalizeCommand", NewNormalizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register NormalizeCommand: %v", err))
	}
}
