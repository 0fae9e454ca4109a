// Package config loads the quadify configuration file and applies
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "/etc/quadify/config.yaml"

	EnvConfigPath = "QUADIFY_CONFIG"
	EnvListenAddr = "QUADIFY_LISTEN"
	EnvDevMode    = "QUADIFY_DEV"
	EnvLogLevel   = "QUADIFY_LOG_LEVEL"
	EnvVolumioURL = "QUADIFY_VOLUMIO_URL"
	EnvDisplay    = "QUADIFY_DISPLAY"
)

// Display drivers.
const (
	DriverFramebuffer = "framebuffer"
	DriverOLED        = "oled"
	DriverMemory      = "memory"
)

// Playback sources.
const (
	SourceVolumio = "volumio"
	SourceMPRIS   = "mpris"
)

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Display  DisplayConfig `yaml:"display"`
	Source   SourceConfig  `yaml:"source"`
	Clock    ClockConfig   `yaml:"clock"`
	Modes    ModesConfig   `yaml:"modes"`
	Web      WebConfig     `yaml:"web"`

	// Path is the file the configuration was loaded from, or would have
	// been when it does not exist yet.
	Path string `yaml:"-"`
}

type DisplayConfig struct {
	Driver   string          `yaml:"driver"`
	Width    int             `yaml:"width"`
	Height   int             `yaml:"height"`
	Device   string          `yaml:"device"`
	I2CBus   string          `yaml:"i2c_bus"`
	Rotated  bool            `yaml:"rotated"`
	FontsDir string          `yaml:"fonts_dir"`
	IconsDir string          `yaml:"icons_dir"`
	Fonts    map[string]Font `yaml:"fonts"`
}

// Font maps a font key to a TTF file (relative to FontsDir) and point size.
type Font struct {
	File string  `yaml:"file"`
	Size float64 `yaml:"size"`
}

type SourceConfig struct {
	Kind       string        `yaml:"kind"`
	VolumioURL string        `yaml:"volumio_url"`
	Reconnect  time.Duration `yaml:"reconnect"`
	MPRISName  string        `yaml:"mpris_name"`
	SystemBus  bool          `yaml:"system_bus"`
}

type ClockConfig struct {
	FontKey     string `yaml:"font_key"`
	ShowSeconds bool   `yaml:"show_seconds"`
	ShowDate    bool   `yaml:"show_date"`
}

type ModesConfig struct {
	Initial    string        `yaml:"initial"`
	AutoSwitch bool          `yaml:"auto_switch"`
	Idle       string        `yaml:"idle"`
	Tick       time.Duration `yaml:"tick"`
	// Playback is the screen for services without a dedicated one. It is
	// rewritten when the user picks another playback screen.
	Playback string `yaml:"playback"`
}

type WebConfig struct {
	Listen    string `yaml:"listen"`
	DevMode   bool   `yaml:"dev_mode"`
	StaticDir string `yaml:"static_dir"`
	Advertise bool   `yaml:"advertise"`
	Instance  string `yaml:"instance"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Display: DisplayConfig{
			Driver:   DriverFramebuffer,
			Width:    256,
			Height:   64,
			Device:   "/dev/fb0",
			FontsDir: "/usr/share/quadify/fonts",
			IconsDir: "/usr/share/quadify/icons",
			Fonts: map[string]Font{
				"radio_title":       {File: "Montserrat-Bold.ttf", Size: 12},
				"radio_small":       {File: "Montserrat-Regular.ttf", Size: 10},
				"radio_bitrate":     {File: "Montserrat-Regular.ttf", Size: 9},
				"clock_digital":     {File: "DS-DIGI.TTF", Size: 40},
				"clockdate_digital": {File: "DS-DIGI.TTF", Size: 14},
				"clock_sans":        {File: "DejaVuSans-Bold.ttf", Size: 32},
				"clockdate_sans":    {File: "DejaVuSans.ttf", Size: 12},
				"song_font":         {File: "Montserrat-Bold.ttf", Size: 12},
				"artist_font":       {File: "Montserrat-Regular.ttf", Size: 11},
				"data_font":         {File: "Montserrat-Regular.ttf", Size: 9},
				"minimal_volume":    {File: "Montserrat-Bold.ttf", Size: 27},
				"minimal_service":   {File: "Montserrat-Regular.ttf", Size: 18},
			},
		},
		Source: SourceConfig{
			Kind:       SourceVolumio,
			VolumioURL: "http://localhost:3000",
			Reconnect:  5 * time.Second,
			MPRISName:  "org.mpris.MediaPlayer2.ShairportSync",
			SystemBus:  true,
		},
		Clock: ClockConfig{FontKey: "clock_digital"},
		Modes: ModesConfig{
			Initial:    "clock",
			AutoSwitch: true,
			Idle:       "clock",
			Tick:       200 * time.Millisecond,
			Playback:   "modern",
		},
		Web: WebConfig{
			Listen:    ":8080",
			Advertise: true,
			Instance:  "Quadify",
		},
	}
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Path = path
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from QUADIFY_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.Web.Listen = v
	}
	if raw := os.Getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		c.Web.DevMode = parsed
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvVolumioURL); v != "" {
		c.Source.VolumioURL = v
	}
	if v := os.Getenv(EnvDisplay); v != "" {
		c.Display.Driver = v
	}
	return nil
}

// fillDefaults restores zero values a partial file may have left behind.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Display.Width <= 0 {
		c.Display.Width = def.Display.Width
	}
	if c.Display.Height <= 0 {
		c.Display.Height = def.Display.Height
	}
	if c.Display.Fonts == nil {
		c.Display.Fonts = def.Display.Fonts
	}
	if c.Source.Reconnect <= 0 {
		c.Source.Reconnect = def.Source.Reconnect
	}
	if c.Clock.FontKey == "" {
		c.Clock.FontKey = def.Clock.FontKey
	}
	if c.Modes.Initial == "" {
		c.Modes.Initial = def.Modes.Initial
	}
	if c.Modes.Idle == "" {
		c.Modes.Idle = def.Modes.Idle
	}
	if c.Modes.Tick <= 0 {
		c.Modes.Tick = def.Modes.Tick
	}
	if c.Modes.Playback == "" {
		c.Modes.Playback = def.Modes.Playback
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Display.Driver) {
	case DriverFramebuffer, DriverOLED, DriverMemory:
	default:
		return fmt.Errorf("unknown display driver %q", c.Display.Driver)
	}
	switch strings.ToLower(c.Source.Kind) {
	case SourceVolumio, SourceMPRIS:
	default:
		return fmt.Errorf("unknown playback source %q", c.Source.Kind)
	}
	return nil
}
