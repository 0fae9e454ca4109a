package assets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/quadify/quadify/internal/render"
	"go.uber.org/zap"
)

const fallbackIconSize = 64

// Icon returns the PNG named <key>.png from the icons dir, or a generated
// placeholder when it cannot be read. Icons are shared and must not be
// modified.
func (r *Resolver) Icon(key string) image.Image {
	r.mu.Lock()
	img, ok := r.icons[key]
	r.mu.Unlock()
	if ok {
		return img
	}

	img, err := loadImageFile(filepath.Join(r.iconsDir, key+".png"))
	if err != nil {
		r.logger.Warn("icon load failed, using placeholder", zap.String("key", key), zap.Error(err))
		img = placeholderIcon(key, fallbackIconSize)
	}

	r.mu.Lock()
	r.icons[key] = img
	r.mu.Unlock()
	return img
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// placeholderIcon draws a framed square with the key's initial.
func placeholderIcon(key string, size int) image.Image {
	c := render.NewCanvas(size, size)
	c.FillBackground()
	last := size - 1
	c.DrawLine(0, 0, last, 0, render.Foreground)
	c.DrawLine(last, 0, last, last, render.Foreground)
	c.DrawLine(last, last, 0, last, render.Foreground)
	c.DrawLine(0, last, 0, 0, render.Foreground)

	initial := "?"
	if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(key)); r != utf8.RuneError {
		initial = string(unicode.ToUpper(r))
	}
	style := render.TextStyle{Color: render.Foreground, Align: render.TextAlignCenter}
	m := c.MeasureText(initial, style)
	c.DrawText(initial, size/2, (size-m.Height)/2, style)
	return c.Image()
}
