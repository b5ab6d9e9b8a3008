package commands

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/imagingagent/internal/backend/commandstructure"
)

// GrayscaleCommand converts the display raster to grayscale, optionally stretching contrast
// and inverting the result.
type GrayscaleCommand struct {
	name     string
	contrast float64
	invert   bool
}

// NewGrayscaleCommand creates a grayscale command; contrast is a percentage in [-100, 100]
func NewGrayscaleCommand(params map[string]any) (commandstructure.Command, error) {
	contrast := float64(commandstructure.GetIntParam(params, "contrast", 0))
	if contrast < -100 || contrast > 100 {
		return nil, fmt.Errorf("contrast must be within [-100, 100], got %v", contrast)
	}
	return &GrayscaleCommand{
		name:     "GrayscaleCommand",
		contrast: contrast,
		invert:   commandstructure.GetBoolParam(params, "invert", false),
	}, nil
}

// Name returns the command name
func (c *GrayscaleCommand) Name() string {
	return c.name
}

// Execute converts the PNG to grayscale
func (c *GrayscaleCommand) Execute(input *commandstructure.ImageData) (*commandstructure.ImageData, error) {
	img, _, err := image.Decode(bytes.NewReader(input.Data))
	if err != nil {
		slog.Error("GrayscaleCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := imaging.Grayscale(img)
	if c.contrast != 0 {
		gray = imaging.AdjustContrast(gray, c.contrast)
	}
	if c.invert {
		gray = imaging.Invert(gray)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode grayscale PNG image: %w", err)
	}

	return &commandstructure.ImageData{
		Filename: input.Filename,
		Data:     buf.Bytes(),
		Metadata: input.Metadata,
	}, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("GrayscaleCommand", NewGrayscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register GrayscaleCommand: %v", err))
	}
}
