// Package layout holds the rectangle arithmetic the screens share.
package layout

import "image"

// Inset shrinks r by margin on every side. The result is never inverted.
func Inset(r image.Rectangle, margin int) image.Rectangle {
	if margin <= 0 {
		return r
	}
	return image.Rect(r.Min.X+margin, r.Min.Y+margin, r.Max.X-margin, r.Max.Y-margin).Canon()
}

// AnchorTopRight places a w x h box in the top-right corner of r, clipped
// to r.
func AnchorTopRight(r image.Rectangle, w, h int) image.Rectangle {
	r = r.Canon()
	w = clamp(w, r.Dx())
	h = clamp(h, r.Dy())
	return image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Min.Y+h)
}

// RightOf returns the part of r from x to its right edge, clipped to r.
func RightOf(r image.Rectangle, x int) image.Rectangle {
	r = r.Canon()
	return image.Rect(r.Min.X+clamp(x-r.Min.X, r.Dx()), r.Min.Y, r.Max.X, r.Max.Y)
}

// CenterOffset centres size inside total. Negative when size overflows.
func CenterOffset(total, size int) int {
	return (total - size) / 2
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
