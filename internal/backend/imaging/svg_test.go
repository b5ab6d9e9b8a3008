package imaging

import (
	"errors"
	"testing"
)

const ecgStrip = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="80">
  <polyline points="0,40 40,40 50,10 60,70 70,40 200,40" fill="none" stroke="black" stroke-width="2"/>
</svg>`

func TestRasterizeSVG_ExplicitSize(t *testing.T) {
	img, err := RasterizeSVG([]byte(ecgStrip), 0, 0)
	if err != nil {
		t.Fatalf("RasterizeSVG failed: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 80 {
		t.Errorf("expected 200x80, got %v", img.Bounds())
	}
}

func TestRasterizeSVG_FallbackSize(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><rect x="1" y="1" width="5" height="5"/></svg>`
	img, err := RasterizeSVG([]byte(svg), 64, 32)
	if err != nil {
		t.Fatalf("RasterizeSVG failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Errorf("expected fallback 64x32, got %v", img.Bounds())
	}

	if _, err := RasterizeSVG([]byte(svg), 0, 0); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode without any size, got %v", err)
	}
}

func TestParseSvgExplicitSize(t *testing.T) {
	tests := []struct {
		name   string
		svg    string
		w, h   int
		wantOk bool
	}{
		{"double quotes", `<svg width="640" height="480">`, 640, 480, true},
		{"single quotes with unit", `<svg width='300px' height='150px'>`, 300, 150, true},
		{"stroke-width is ignored", `<svg stroke-width="3" height="10">`, 0, 0, false},
		{"no svg tag", `<html width="1" height="1">`, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := parseSvgExplicitSize([]byte(tt.svg))
			if ok != tt.wantOk || w != tt.w || h != tt.h {
				t.Errorf("got (%d, %d, %v), expected (%d, %d, %v)", w, h, ok, tt.w, tt.h, tt.wantOk)
			}
		})
	}
}
