package screens

import (
	"context"
	"image"
	"net"
	"time"

	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/screen"
	"github.com/quadify/quadify/internal/system"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

const (
	systemInfoRefresh = 10 * time.Second
	systemInfoNoIP    = "no network"
)

type SystemInfoConfig struct {
	Net     system.NetInfo
	WebPort string
	Version string
}

// SystemInfo shows how to reach the device: hostname, address and a QR code
// pointing at the web UI.
type SystemInfo struct {
	*screen.TickScreen

	cfg    SystemInfoConfig
	logger *zap.Logger
	width  int
	height int

	titleFace font.Face
	smallFace font.Face

	// Touched only from ComposeAt, which the tick scheduler serialises.
	host      string
	ip        string
	refreshed time.Time
	qrURL     string
	qr        image.Image
}

func NewSystemInfo(d Deps, cfg SystemInfoConfig, opts ...screen.Option) *SystemInfo {
	if cfg.Net == nil {
		cfg.Net = system.HostNetInfo{}
	}
	w, h := d.size()
	s := &SystemInfo{
		cfg:       cfg,
		logger:    d.logger().Named(ModeSystemInfo),
		width:     w,
		height:    h,
		titleFace: d.Assets.Font("radio_title"),
		smallFace: d.Assets.Font("radio_small"),
	}
	s.TickScreen = screen.NewTickScreen(ModeSystemInfo, d.Surface, s, d.screenOptions(opts)...)
	return s
}

// WebURL returns the address of the web UI for ip, or "" without an address.
func WebURL(ip, port string) string {
	if ip == "" {
		return ""
	}
	if port == "" || port == "80" {
		return "http://" + ip + "/"
	}
	return "http://" + net.JoinHostPort(ip, port) + "/"
}

func (s *SystemInfo) refresh(now time.Time) {
	if !s.refreshed.IsZero() && now.Sub(s.refreshed) < systemInfoRefresh {
		return
	}
	s.refreshed = now

	host, err := s.cfg.Net.Hostname()
	if err != nil {
		s.logger.Warn("hostname lookup failed", zap.Error(err))
	}
	s.host = host

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ip, err := s.cfg.Net.IP(ctx)
	if err != nil {
		s.logger.Debug("no address", zap.Error(err))
	}
	s.ip = ip

	url := WebURL(ip, s.cfg.WebPort)
	if url == s.qrURL {
		return
	}
	s.qrURL = url
	s.qr = nil
	if url == "" {
		return
	}
	s.qr, err = render.QRCode(url, s.height)
	if err != nil {
		s.logger.Warn("qr code generation failed", zap.Error(err))
		s.qr = nil
	}
}

func (s *SystemInfo) ComposeAt(now time.Time) image.Image {
	s.refresh(now)

	c := render.NewCanvas(s.width, s.height)
	c.FillBackground()

	title := render.TextStyle{Face: s.titleFace}
	small := render.TextStyle{Face: s.smallFace}

	y := 0
	m := c.DrawText(orDefault(s.host, "quadify"), 0, y, title)
	y += m.LineHeight + 2
	m = c.DrawText(orDefault(s.ip, systemInfoNoIP), 0, y, small)
	y += m.LineHeight
	if s.qrURL != "" {
		m = c.DrawText(s.qrURL, 0, y, small)
		y += m.LineHeight
	}
	if s.cfg.Version != "" {
		c.DrawText(s.cfg.Version, 0, y, render.TextStyle{Face: s.smallFace, Color: render.Dim})
	}

	if s.qr != nil {
		size := s.qr.Bounds().Dx()
		c.FillRect(image.Rect(s.width-size-4, 0, s.width, s.height), render.Background)
		c.DrawImage(s.qr, s.width-size, 0)
	}
	return c.Image()
}
