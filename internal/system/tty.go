package system

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

var consolePaths = []string{"/dev/tty", "/dev/tty0"}

// Console switches the active virtual terminal between text and graphics
// mode so the blinking cursor and kernel messages do not bleed into the
// framebuffer.
type Console struct {
	logger *zap.Logger
	paths  []string
}

func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger.Named("tty"), paths: consolePaths}
}

// Acquire sets KD_GRAPHICS and hides the cursor. Errors are logged and the
// first one is returned.
func (c *Console) Acquire() error {
	err := c.setMode(kdGraphics)
	if err != nil {
		c.logger.Warn("KD_GRAPHICS failed", zap.Error(err))
	} else {
		c.logger.Info("KD_GRAPHICS set")
	}
	if cerr := c.writeVT("\x1b[?25l"); cerr != nil {
		c.logger.Warn("hide cursor failed", zap.Error(cerr))
		if err == nil {
			err = cerr
		}
	}
	return err
}

// Release restores text mode and shows the cursor again.
func (c *Console) Release() error {
	err := c.setMode(kdText)
	if err != nil {
		c.logger.Warn("KD_TEXT failed", zap.Error(err))
	} else {
		c.logger.Info("KD_TEXT set")
	}
	if cerr := c.writeVT("\x1b[?25h"); cerr != nil {
		c.logger.Warn("show cursor failed", zap.Error(cerr))
		if err == nil {
			err = cerr
		}
	}
	return err
}

func (c *Console) setMode(mode int) error {
	var errs []error
	for _, p := range c.paths {
		if err := ioctlMode(p, mode); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("KDSETMODE %d: no console", mode)
	}
	return errors.Join(errs...)
}

func ioctlMode(path string, mode int) error {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)
	if err := unix.IoctlSetInt(fd, kdSetMode, mode); err != nil {
		return fmt.Errorf("KDSETMODE on %s: %w", path, err)
	}
	return nil
}

func (c *Console) writeVT(s string) error {
	var errs []error
	for _, p := range c.paths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = f.WriteString(s)
		f.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("write VT: no console")
	}
	return fmt.Errorf("write VT failed: %w", errors.Join(errs...))
}
