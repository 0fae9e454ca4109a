package screens

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/quadify/quadify/internal/system"
)

type countingNetInfo struct {
	system.StaticNetInfo
	lookups int
}

func (c *countingNetInfo) IP(ctx context.Context) (string, error) {
	c.lookups++
	return c.StaticNetInfo.IP(ctx)
}

func TestWebURL(t *testing.T) {
	tests := []struct {
		ip, port string
		want     string
	}{
		{"10.0.0.5", "8080", "http://10.0.0.5:8080/"},
		{"10.0.0.5", "80", "http://10.0.0.5/"},
		{"10.0.0.5", "", "http://10.0.0.5/"},
		{"", "8080", ""},
	}
	for _, tt := range tests {
		if got := WebURL(tt.ip, tt.port); got != tt.want {
			t.Errorf("WebURL(%q, %q) = %q, want %q", tt.ip, tt.port, got, tt.want)
		}
	}
}

func TestSystemInfoCompose(t *testing.T) {
	netInfo := &countingNetInfo{StaticNetInfo: system.StaticNetInfo{Host: "quadify", Address: "10.0.0.5"}}
	s := NewSystemInfo(newDeps(t, ModeSystemInfo, nil, nil), SystemInfoConfig{
		Net:     netInfo,
		WebPort: "8080",
		Version: "v1.0.0",
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	frame := s.ComposeAt(now)
	if s.qrURL != "http://10.0.0.5:8080/" {
		t.Errorf("qrURL = %q", s.qrURL)
	}
	if s.qr == nil {
		t.Fatal("qr code not generated")
	}
	if !anyLit(frame, image.Rect(256-64, 0, 256, 64)) {
		t.Error("qr code not drawn")
	}
	if !anyLit(frame, image.Rect(0, 0, 60, 14)) {
		t.Error("hostname not drawn")
	}

	s.ComposeAt(now.Add(time.Second))
	if netInfo.lookups != 1 {
		t.Errorf("address lookups = %d, want 1 within the refresh interval", netInfo.lookups)
	}
	s.ComposeAt(now.Add(systemInfoRefresh))
	if netInfo.lookups != 2 {
		t.Errorf("address lookups = %d, want 2 after the refresh interval", netInfo.lookups)
	}
}

func TestSystemInfoWithoutNetwork(t *testing.T) {
	s := NewSystemInfo(newDeps(t, ModeSystemInfo, nil, nil), SystemInfoConfig{
		Net: system.StaticNetInfo{Host: "quadify"},
	})
	s.ComposeAt(time.Now())
	if s.qr != nil || s.qrURL != "" {
		t.Error("no qr code expected without an address")
	}
	if s.ip != "" {
		t.Errorf("ip = %q, want empty", s.ip)
	}
}
