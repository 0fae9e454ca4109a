// Package assets resolves fonts, icons and album art for the screens.
// Every lookup returns something drawable; failures are logged and replaced
// by built-in fallbacks.
package assets

import (
	"embed"
	"image"
	"io/fs"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font/opentype"
)

//go:embed web
var webFS embed.FS

// WebUI is the embedded preview page served at "/".
var WebUI fs.FS

func init() {
	// Embed paths include the leading directory; strip it for serving at '/'.
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	WebUI = sub
}

type Config struct {
	FontsDir string
	IconsDir string
	Fonts    map[string]FontSpec

	// BaseURL prefixes album art references that are server-relative paths,
	// as Volumio reports them ("/albumart?...").
	BaseURL string
}

type Resolver struct {
	logger    *zap.Logger
	fontsDir  string
	iconsDir  string
	fontSpecs map[string]FontSpec
	baseURL   string
	fetcher   *HTTPFetcher

	mu         sync.Mutex
	fonts      map[string]*truetype.Font
	fontErrs   map[string]error
	builtin    *opentype.Font
	builtinErr error
	icons      map[string]image.Image
	art        map[artKey]image.Image
	artOrder   []artKey
	inflight   map[artKey]bool
}

func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	specs := make(map[string]FontSpec, len(cfg.Fonts))
	for k, v := range cfg.Fonts {
		specs[k] = v
	}
	logger = logger.Named("assets")
	return &Resolver{
		logger:    logger,
		fontsDir:  cfg.FontsDir,
		iconsDir:  cfg.IconsDir,
		fontSpecs: specs,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		fetcher:   NewHTTPFetcher(logger),
		fonts:     make(map[string]*truetype.Font),
		fontErrs:  make(map[string]error),
		icons:     make(map[string]image.Image),
		art:       make(map[artKey]image.Image),
		inflight:  make(map[artKey]bool),
	}
}
