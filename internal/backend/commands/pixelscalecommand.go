package commands

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/imagingagent/internal/backend/commandstructure"
)

// PixelScaleParams represents typed parameters for pixel scale command
type PixelScaleParams struct {
	Height *int // Optional: if nil, will be calculated from width
	Width  *int // Optional: if nil, will be calculated from height
	Filter imaging.ResampleFilter
}

// DefaultResampleFilter names the filter used when none is configured
const DefaultResampleFilter = "lanczos"

var resampleFilters = map[string]imaging.ResampleFilter{
	"lanczos": imaging.Lanczos,
	"catmull": imaging.CatmullRom,
	"linear":  imaging.Linear,
	"box":     imaging.Box,
	"nearest": imaging.NearestNeighbor,
}

// NewPixelScaleParamsFromMap creates PixelScaleParams from a generic map
func NewPixelScaleParamsFromMap(params map[string]any) (*PixelScaleParams, error) {
	_, hasHeight := params["height"]
	_, hasWidth := params["width"]

	if !hasHeight && !hasWidth {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	filterName := strings.ToLower(commandstructure.GetStringParam(params, "filter", DefaultResampleFilter))
	filter, ok := resampleFilters[filterName]
	if !ok {
		return nil, fmt.Errorf("unknown resample filter %q", filterName)
	}

	result := &PixelScaleParams{Filter: filter}

	if hasHeight {
		height := commandstructure.GetIntParam(params, "height", 0)
		if height <= 0 {
			return nil, fmt.Errorf("height must be positive, got %d", height)
		}
		result.Height = &height
	}

	if hasWidth {
		width := commandstructure.GetIntParam(params, "width", 0)
		if width <= 0 {
			return nil, fmt.Errorf("width must be positive, got %d", width)
		}
		result.Width = &width
	}

	return result, nil
}

// PixelScaleCommand resizes the display raster while preserving aspect ratio
type PixelScaleCommand struct {
	name   string
	params *PixelScaleParams
}

// NewPixelScaleCommand creates a new pixel scale command from configuration parameters
func NewPixelScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewPixelScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &PixelScaleCommand{
		name:   "PixelScaleCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *PixelScaleCommand) Name() string {
	return c.name
}

// ScaledSize computes the target size for a source of srcWidth x srcHeight.
// With a single dimension given the other follows the source aspect ratio,
// truncated and never below one pixel.
func ScaledSize(srcWidth, srcHeight int, width, height *int) (int, int) {
	aspectRatio := float64(srcWidth) / float64(srcHeight)

	var targetWidth, targetHeight int
	switch {
	case width != nil && height != nil:
		targetWidth, targetHeight = *width, *height
	case width != nil:
		targetWidth = *width
		targetHeight = int(float64(targetWidth) / aspectRatio)
	default:
		targetHeight = *height
		targetWidth = int(float64(targetHeight) * aspectRatio)
	}

	return max(targetWidth, 1), max(targetHeight, 1)
}

// Execute scales the PNG image to the target dimensions
func (c *PixelScaleCommand) Execute(input *commandstructure.ImageData) (*commandstructure.ImageData, error) {
	img, _, err := image.Decode(bytes.NewReader(input.Data))
	if err != nil {
		slog.Error("PixelScaleCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("cannot scale empty image %dx%d", bounds.Dx(), bounds.Dy())
	}
	targetWidth, targetHeight := ScaledSize(bounds.Dx(), bounds.Dy(), c.params.Width, c.params.Height)

	slog.Debug("PixelScaleCommand: scaling image",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"target_width", targetWidth,
		"target_height", targetHeight)

	scaled := imaging.Resize(img, targetWidth, targetHeight, c.params.Filter)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.PNG); err != nil {
		slog.Error("PixelScaleCommand: failed to encode scaled image", "error", err)
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}

	return &commandstructure.ImageData{
		Filename: input.Filename,
		Data:     buf.Bytes(),
		Metadata: input.Metadata,
	}, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("PixelScaleCommand", NewPixelScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register PixelScaleCommand: %v", err))
	}
}
