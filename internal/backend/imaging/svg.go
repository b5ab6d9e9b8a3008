package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// RasterizeSVG renders an SVG chart (ECG strips and similar exports) onto a white canvas.
// Size comes from explicit width/height attributes, then the viewBox, then the fallback.
func RasterizeSVG(data []byte, fallbackWidth, fallbackHeight int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse SVG: %v", ErrDecode, err)
	}

	width, height, ok := parseSvgExplicitSize(data)
	if !ok {
		width, height = int(icon.ViewBox.W), int(icon.ViewBox.H)
	}
	if width <= 0 || height <= 0 {
		width, height = fallbackWidth, fallbackHeight
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: SVG has no size and no fallback size is set", ErrDecode)
	}

	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		// without a viewBox, user units are pixels
		icon.ViewBox.W, icon.ViewBox.H = float64(width), float64(height)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, canvas, canvas.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	return canvas, nil
}

// parseSvgExplicitSize extracts integer width and height attributes from the root <svg> tag
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	start := strings.Index(s, "<svg")
	if start < 0 {
		return 0, 0, false
	}
	end := strings.Index(s[start:], ">")
	if end < 0 {
		end = len(s) - start
	}
	tag := s[start : start+end]

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr reads the leading integer of a quoted attribute value, e.g. width="640px"
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	val := strings.TrimLeft(tag[pos+len(attr)+2:], " ")
	if val == "" {
		return 0, false
	}
	if quote := val[0]; quote == '"' || quote == '\'' {
		val = val[1:]
		if end := strings.IndexByte(val, quote); end >= 0 {
			val = val[:end]
		}
	}

	num, found := 0, false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch < '0' || ch > '9' {
			break
		}
		found = true
		num = num*10 + int(ch-'0')
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}
