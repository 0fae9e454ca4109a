package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontSpec names a TTF file (relative to the fonts dir) and its pixel size.
type FontSpec struct {
	File string
	Size float64
}

const (
	fontDPI         = 72
	defaultFontSize = 12
)

// HasFont reports whether key is configured and its file parsed.
func (r *Resolver) HasFont(key string) bool {
	if _, ok := r.fontSpecs[key]; !ok {
		return false
	}
	tt, _ := r.truetypeFont(key)
	return tt != nil
}

// Font returns a new face for key. Faces keep a glyph cache and are not safe
// for concurrent use, so each screen asks for its own. Unknown keys and
// unreadable files fall back to the built-in Go font at the configured size.
func (r *Resolver) Font(key string) font.Face {
	spec, ok := r.fontSpecs[key]
	size := spec.Size
	if size <= 0 {
		size = defaultFontSize
	}
	if ok {
		if tt, err := r.truetypeFont(key); tt != nil {
			return truetype.NewFace(tt, &truetype.Options{
				Size:    size,
				DPI:     fontDPI,
				Hinting: font.HintingFull,
			})
		} else if err != nil {
			r.logger.Warn("font load failed, using built-in font", zap.String("key", key), zap.Error(err))
		}
	} else {
		r.logger.Debug("unknown font key, using built-in font", zap.String("key", key))
	}
	return r.fallbackFace(size)
}

// truetypeFont parses and caches the file behind key. Failures are cached too
// so a missing file is only reported once.
func (r *Resolver) truetypeFont(key string) (*truetype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tt, ok := r.fonts[key]; ok {
		return tt, nil
	}
	if err, ok := r.fontErrs[key]; ok {
		return nil, err
	}

	spec := r.fontSpecs[key]
	tt, err := parseFontFile(filepath.Join(r.fontsDir, spec.File))
	if err != nil {
		r.fontErrs[key] = err
		return nil, err
	}
	r.fonts[key] = tt
	return tt, nil
}

func parseFontFile(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	tt, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return tt, nil
}

func (r *Resolver) fallbackFace(size float64) font.Face {
	r.mu.Lock()
	if r.builtin == nil && r.builtinErr == nil {
		r.builtin, r.builtinErr = opentype.Parse(goregular.TTF)
	}
	builtin, builtinErr := r.builtin, r.builtinErr
	r.mu.Unlock()

	if builtinErr != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(builtin, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		r.logger.Error("built-in font face create failed, using basicfont", zap.Error(err))
		return basicfont.Face7x13
	}
	return face
}
