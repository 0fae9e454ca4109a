package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is an offscreen RGBA frame implementing Drawer.
// A Canvas is not safe for concurrent use; each frame gets its own.
type Canvas struct {
	img  *image.RGBA
	face font.Face
}

func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		face: basicfont.Face7x13,
	}
}

func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) FillBackground() {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
}

func (c *Canvas) faceFor(style TextStyle) font.Face {
	if style.Face != nil {
		return style.Face
	}
	return c.face
}

func (c *Canvas) MeasureText(text string, style TextStyle) TextMetrics {
	face := c.faceFor(style)
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	return TextMetrics{
		Width:      font.MeasureString(face, text).Ceil(),
		Height:     ascent + descent,
		Ascent:     ascent,
		Descent:    descent,
		LineHeight: m.Height.Ceil(),
	}
}

func (c *Canvas) DrawText(text string, x, y int, style TextStyle) TextMetrics {
	metrics := c.MeasureText(text, style)
	switch style.Align {
	case TextAlignCenter:
		x -= metrics.Width / 2
	case TextAlignRight:
		x -= metrics.Width
	}
	fg := style.Color
	if fg == nil {
		fg = Foreground
	}
	drawer := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(fg),
		Face: c.faceFor(style),
		Dot:  fixed.P(x, y+metrics.Ascent),
	}
	drawer.DrawString(text)
	return metrics
}

func (c *Canvas) ImageSize(img image.Image) (int, int) {
	if img == nil {
		return 0, 0
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) DrawImage(img image.Image, x, y int) {
	if img == nil {
		return
	}
	b := img.Bounds()
	dst := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(c.img, dst, img, b.Min, draw.Over)
}

// DrawImageInRect scales img into rect. Fit keeps the aspect ratio and
// centres the result, Fill crops to cover rect, Stretch ignores the ratio.
func (c *Canvas) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode) {
	if img == nil || rect.Empty() {
		return
	}
	var scaled *image.NRGBA
	switch mode {
	case ScaleModeFill:
		scaled = imaging.Fill(img, rect.Dx(), rect.Dy(), imaging.Center, imaging.Lanczos)
	case ScaleModeStretch:
		scaled = imaging.Resize(img, rect.Dx(), rect.Dy(), imaging.Lanczos)
	default:
		scaled = imaging.Fit(img, rect.Dx(), rect.Dy(), imaging.Lanczos)
	}
	sb := scaled.Bounds()
	offX := rect.Min.X + (rect.Dx()-sb.Dx())/2
	offY := rect.Min.Y + (rect.Dy()-sb.Dy())/2
	draw.Draw(c.img, image.Rect(offX, offY, offX+sb.Dx(), offY+sb.Dy()), scaled, sb.Min, draw.Over)
}

func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.img.Set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) FillRect(rect image.Rectangle, col color.Color) {
	draw.Draw(c.img, rect, &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
