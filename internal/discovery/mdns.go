// Package discovery advertises the web API over mDNS so phones and the
// Volumio UI can find the display without knowing its address.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type the web API is announced as.
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	DefaultInstance = "Quadify"
)

type registration interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// Advertiser announces one HTTP service instance until stopped.
type Advertiser struct {
	Instance string
	Port     int
	// Meta becomes the TXT record set, one key=value per entry.
	Meta map[string]string

	logger   *zap.Logger
	register registerFunc

	mu     sync.Mutex
	server registration
}

func NewAdvertiser(instance string, port int, meta map[string]string, logger *zap.Logger) *Advertiser {
	if instance == "" {
		instance = DefaultInstance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advertiser{
		Instance: instance,
		Port:     port,
		Meta:     meta,
		logger:   logger.Named("mdns"),
		register: zeroconfRegister,
	}
}

// TXTRecords renders meta as sorted key=value strings.
func TXTRecords(meta map[string]string) []string {
	out := make([]string, 0, len(meta))
	for k, v := range meta {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return nil
	}
	if a.Port <= 0 {
		return errors.New("mdns: no port to advertise")
	}
	srv, err := a.register(a.Instance, ServiceType, ServiceDomain, a.Port, TXTRecords(a.Meta), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = srv
	a.logger.Info("advertising web api",
		zap.String("instance", a.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", a.Port))
	return nil
}

func (a *Advertiser) Stop() {
	a.mu.Lock()
	srv := a.server
	a.server = nil
	a.mu.Unlock()
	if srv != nil {
		srv.Shutdown()
	}
}
