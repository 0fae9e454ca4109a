package screen

import "github.com/quadify/quadify/internal/render"

// DefaultScrollStep is how many pixels a marquee advances per frame.
const DefaultScrollStep = 2

// ScrollPosition computes where to draw text of textWidth inside avail pixels
// for the given cursor. Text that fits is pinned at x=0 and the cursor resets.
// Otherwise the text enters from the right edge and scrolls left, wrapping
// with a full-width gap, and next is the cursor for the following frame.
// The cursor is kept within one period so it never overflows.
func ScrollPosition(textWidth, avail, cursor, step int) (x, next int, scrolled bool) {
	if textWidth <= avail {
		return 0, 0, false
	}
	period := textWidth + avail
	c := cursor % period
	if c < 0 {
		c += period
	}
	return avail - c, (c + step) % period, true
}

// Scroller holds the cursor of one independently scrolling text field.
// It is owned by the goroutine that draws the screen.
type Scroller struct {
	Step   int
	cursor int
}

func (s *Scroller) step() int {
	if s.Step <= 0 {
		return DefaultScrollStep
	}
	return s.Step
}

// Cursor returns the cursor the next frame will use.
func (s *Scroller) Cursor() int { return s.cursor }

func (s *Scroller) Reset() { s.cursor = 0 }

// Advance returns the x offset for this frame and moves the cursor on.
func (s *Scroller) Advance(textWidth, avail int) (x int, scrolled bool) {
	x, s.cursor, scrolled = ScrollPosition(textWidth, avail, s.cursor, s.step())
	return x, scrolled
}

// Draw measures text, draws it at row y within [0, avail) and advances.
func (s *Scroller) Draw(d render.Drawer, text string, y, avail int, style render.TextStyle) bool {
	style.Align = render.TextAlignLeft
	m := d.MeasureText(text, style)
	x, scrolled := s.Advance(m.Width, avail)
	d.DrawText(text, x, y, style)
	return scrolled
}
