// Simulator runs the display daemon against a scripted player and an
// in-memory display, so screens can be developed through the web preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quadify/quadify/internal/config"
	"github.com/quadify/quadify/internal/daemon"
	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/web"
	"go.uber.org/fx"
)

func main() {
	defaults, err := web.DefaultServerConfigFromEnv(":8081")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+config.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+config.EnvDevMode)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, the embedded preview page is served")
	scenario := flag.String("scenario", "airplay", "simulator scenario: "+strings.Join(ScenarioNames(), " | "))
	interval := flag.Duration("interval", 20*time.Second, "advance to the next scripted track this often (0 disables)")
	fontsDir := flag.String("fonts-dir", "", "directory with the TTF fonts (built-in font when empty)")
	iconsDir := flag.String("icons-dir", "", "directory with the PNG icons (placeholders when empty)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	mdns := flag.Bool("mdns", false, "advertise the simulator over mDNS")
	flag.Parse()

	cfg := config.Default()
	cfg.LogLevel = *logLevel
	cfg.Display.Driver = config.DriverMemory
	cfg.Display.FontsDir = *fontsDir
	cfg.Display.IconsDir = *iconsDir
	cfg.Web.Listen = *listenAddr
	cfg.Web.DevMode = *devMode
	cfg.Web.StaticDir = *staticDir
	cfg.Web.Advertise = *mdns
	cfg.Web.Instance = "Quadify Simulator"

	source := NewSimSource(*interval)
	control := NewSimControl(source, *scenario)
	if err := control.ApplyScenario(*scenario); err != nil {
		fmt.Println("scenario init error:", err)
		os.Exit(2)
	}

	var server *web.HTTPServer
	app := fx.New(
		daemon.Options(cfg),
		fx.Decorate(func(playback.Source) playback.Source { return source }),
		fx.Invoke(func(srv *web.HTTPServer) { srv.Extra = control.Register }),
		fx.Populate(&server),
	)
	if err := app.Err(); err != nil {
		fmt.Println("simulator build error:", err)
		os.Exit(1)
	}

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(processCtx); err != nil {
		fmt.Println("simulator start error:", err)
		os.Exit(1)
	}

	fmt.Println("Quadify simulator listening on", server.Addr())
	fmt.Println("Scenario:", source.Scenario())
	fmt.Printf("Preview: http://127.0.0.1:%d/\n", server.Port())

	select {
	case <-processCtx.Done():
	case <-app.Wait():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Println("simulator stop error:", err)
	}
}
