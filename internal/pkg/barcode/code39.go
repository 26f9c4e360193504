package barcode

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code39"
)

const (
	// TailLength is how many trailing characters of a ticket reference get
	// encoded. Scanners at the gate only need the discriminating tail; the
	// full reference is printed below the bars.
	TailLength = 18

	defaultWidth  = 360
	defaultHeight = 80
)

// RenderPNG encodes the tail of a reference as a Code 39 barcode and returns
// the raster PNG bytes. PNG rather than SVG so mail clients that block inline
// vector content still display it.
func RenderPNG(reference string) ([]byte, error) {
	return RenderPNGSized(reference, defaultWidth, defaultHeight)
}

// RenderPNGSized renders the barcode scaled to the given pixel dimensions.
func RenderPNGSized(reference string, width, height int) ([]byte, error) {
	content := Tail(reference)
	if content == "" {
		return nil, fmt.Errorf("empty barcode content")
	}

	bc, err := code39.Encode(content, false, false)
	if err != nil {
		return nil, fmt.Errorf("code39 encode %q: %w", content, err)
	}

	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return nil, fmt.Errorf("scale barcode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode barcode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Tail returns the portion of the reference that gets encoded.
func Tail(reference string) string {
	if len(reference) <= TailLength {
		return reference
	}
	return reference[len(reference)-TailLength:]
}
