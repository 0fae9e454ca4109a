package render

import (
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// OLEDSurface drives an SSD1306 panel over I²C.
type OLEDSurface struct {
	logger *zap.Logger

	mu     sync.Mutex
	bus    i2c.BusCloser
	dev    *ssd1306.Dev
	bounds image.Rectangle
}

// OpenOLED initialises the host drivers and opens the panel on busName
// ("" selects the first available bus).
func OpenOLED(busName string, width, height int, rotated bool, logger *zap.Logger) (*OLEDSurface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	opts := ssd1306.DefaultOpts
	opts.W = width
	opts.H = height
	opts.Rotated = rotated
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("ssd1306 init: %w", err)
	}
	logger.Named("oled").Info("oled open",
		zap.String("bus", bus.String()),
		zap.Int("width", width),
		zap.Int("height", height))
	return &OLEDSurface{
		logger: logger.Named("oled"),
		bus:    bus,
		dev:    dev,
		bounds: dev.Bounds(),
	}, nil
}

func (s *OLEDSurface) Bounds() image.Rectangle { return s.bounds }

func (s *OLEDSurface) Show(frame image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return fmt.Errorf("oled closed")
	}
	return s.dev.Draw(s.bounds, frame, frame.Bounds().Min)
}

func (s *OLEDSurface) Clear() error {
	return s.Show(image.NewGray(s.bounds))
}

func (s *OLEDSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	if err := s.dev.Halt(); err != nil {
		s.logger.Warn("oled halt failed", zap.Error(err))
	}
	s.dev = nil
	return s.bus.Close()
}
