package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Insets are the number of pixels trimmed off each edge of an image.
type Insets struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Crop decodes a PNG, trims `insets` off its edges and encodes the result as a PNG.
func Crop(src []byte, insets Insets) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	bounds := img.Bounds()
	rect := image.Rect(
		bounds.Min.X+insets.Left,
		bounds.Min.Y+insets.Top,
		bounds.Max.X-insets.Right,
		bounds.Max.Y-insets.Bottom,
	)
	if rect.Empty() || !rect.In(bounds) {
		return nil, fmt.Errorf("crop %+v leaves nothing of a %dx%d image", insets, bounds.Dx(), bounds.Dy())
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, rect.Min, draw.Src)

	var out bytes.Buffer
	err = png.Encode(&out, cropped)
	if err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return out.Bytes(), nil
}
