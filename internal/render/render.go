package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
)

// Surface is a fixed-size display that presents whole frames.
type Surface interface {
	Bounds() image.Rectangle
	Show(frame image.Image) error
	Clear() error
}

// Drawer is an abstraction screens use to compose a frame
// without touching the pixel buffer directly.
type Drawer interface {
	// Size returns the logical canvas size (in pixels) that screens draw into.
	Size() (width int, height int)

	FillBackground()

	// Generic text primitives.
	MeasureText(text string, style TextStyle) TextMetrics
	DrawText(text string, x, y int, style TextStyle) TextMetrics

	// Generic image primitives.
	ImageSize(img image.Image) (width int, height int)
	DrawImage(img image.Image, x, y int)
	DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode)

	// DrawLine endpoints are inclusive; FillRect follows image.Rectangle.
	DrawLine(x0, y0, x1, y1 int, c color.Color)
	FillRect(rect image.Rectangle, c color.Color)
}

type TextAlign int

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

// TextStyle describes how to render text.
// Coordinates for DrawText use a top-left anchor for Y.
// For X, Align controls how x is interpreted.
type TextStyle struct {
	Color color.Color
	Face  font.Face // nil means the canvas default
	Align TextAlign
}

type TextMetrics struct {
	Width      int
	Height     int
	Ascent     int
	Descent    int
	LineHeight int
}

type ScaleMode int

const (
	ScaleModeFit ScaleMode = iota
	ScaleModeFill
	ScaleModeStretch
)
