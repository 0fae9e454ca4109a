package render

import "image/color"

// Panel colours. The OLED and framebuffer drivers threshold or convert
// these, so screens only ever draw with this palette.
var (
	Foreground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	Background = color.RGBA{A: 0xFF}
	Dim        = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}
)

// Default panel geometry, 256x64 as on the SSD1322 the player ships with.
const (
	CanvasWidth  = 256
	CanvasHeight = 64
)
