// Package daemon wires the display daemon together as an fx application.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/quadify/quadify/internal/app"
	"github.com/quadify/quadify/internal/assets"
	"github.com/quadify/quadify/internal/config"
	"github.com/quadify/quadify/internal/discovery"
	"github.com/quadify/quadify/internal/logging"
	"github.com/quadify/quadify/internal/mpris"
	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/render"
	"github.com/quadify/quadify/internal/screens"
	"github.com/quadify/quadify/internal/system"
	"github.com/quadify/quadify/internal/version"
	"github.com/quadify/quadify/internal/volumio"
	"github.com/quadify/quadify/internal/web"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Runner is a background loop started with the application.
type Runner interface {
	Run(ctx context.Context) error
}

// Screens groups the screens the controller switches between.
type Screens struct {
	AirPlay    *screens.AirPlay
	WebRadio   *screens.WebRadio
	Clock      *screens.Clock
	SystemInfo *screens.SystemInfo
	Modern     *screens.NowPlaying
	Minimal    *screens.NowPlaying
}

// Options builds the full application graph for cfg.
func Options(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			NewLogger,
			NewSurface,
			NewSource,
			NewResolver,
			NewController,
			NewScreens,
			NewWebServer,
		),
		fx.Invoke(
			runSource,
			runController,
			advertise,
		),
	)
}

func New(cfg config.Config) *fx.App {
	return fx.New(Options(cfg))
}

func NewLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel)
}

// NewSurface opens the configured display and wraps it in a MemorySurface so
// the web preview can show the current frame.
func NewSurface(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*render.MemorySurface, error) {
	d := cfg.Display
	switch d.Driver {
	case config.DriverMemory:
		return render.NewMemorySurface(d.Width, d.Height), nil

	case config.DriverFramebuffer:
		fbs := render.NewFBSurface(d.Device, d.Width, d.Height, logger)
		console := system.NewConsole(logger)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				if err := console.Acquire(); err != nil {
					logger.Warn("console not switched to graphics mode", zap.Error(err))
				}
				return fbs.Open()
			},
			OnStop: func(context.Context) error {
				_ = fbs.Clear()
				err := fbs.Close()
				return errors.Join(err, console.Release())
			},
		})
		return render.Mirror(fbs), nil

	case config.DriverOLED:
		// Opened here rather than on start so the screens see the panel size.
		oled, err := render.OpenOLED(d.I2CBus, d.Width, d.Height, d.Rotated, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = oled.Clear()
				return oled.Close()
			},
		})
		return render.Mirror(oled), nil
	}
	return nil, fmt.Errorf("unknown display driver %q", d.Driver)
}

// NewSource builds the configured playback source. Both implementations
// are Runners started by runSource.
func NewSource(cfg config.Config, logger *zap.Logger) (playback.Source, error) {
	s := cfg.Source
	switch s.Kind {
	case config.SourceVolumio:
		return volumio.NewClient(s.VolumioURL, s.Reconnect, logger)
	case config.SourceMPRIS:
		connect := func() (mpris.DBusClient, error) { return mpris.NewStdDBusClient(s.SystemBus) }
		return mpris.New(mpris.Config{BusName: s.MPRISName, Service: screens.ServiceAirPlay}, connect, logger), nil
	}
	return nil, fmt.Errorf("unknown playback source %q", s.Kind)
}

func NewResolver(cfg config.Config, logger *zap.Logger) *assets.Resolver {
	fonts := make(map[string]assets.FontSpec, len(cfg.Display.Fonts))
	for key, f := range cfg.Display.Fonts {
		fonts[key] = assets.FontSpec{File: f.File, Size: f.Size}
	}
	baseURL := ""
	if cfg.Source.Kind == config.SourceVolumio {
		baseURL = cfg.Source.VolumioURL
	}
	return assets.NewResolver(assets.Config{
		FontsDir: cfg.Display.FontsDir,
		IconsDir: cfg.Display.IconsDir,
		Fonts:    fonts,
		BaseURL:  baseURL,
	}, logger)
}

// NewController builds the mode controller. The chosen playback screen is
// written back to the config file it came from.
func NewController(cfg config.Config, logger *zap.Logger) *app.Controller {
	opts := app.Options{
		Initial:      cfg.Modes.Initial,
		AutoSwitch:   cfg.Modes.AutoSwitch,
		IdleMode:     cfg.Modes.Idle,
		TickInterval: cfg.Modes.Tick,
		ServiceModes: map[string]string{
			screens.ServiceAirPlay:  screens.ModeAirPlay,
			screens.ServiceWebRadio: screens.ModeWebRadio,
		},
		PlaybackMode:  cfg.Modes.Playback,
		PlaybackModes: screens.PlaybackModes,
	}
	if path := cfg.Path; path != "" {
		opts.SavePlaybackMode = func(mode string) error {
			return config.SavePlaybackMode(path, mode)
		}
	}
	return app.New(opts, logger)
}

type screensParams struct {
	fx.In

	Config     config.Config
	Surface    *render.MemorySurface
	Source     playback.Source
	Resolver   *assets.Resolver
	Controller *app.Controller
	Logger     *zap.Logger
	Lifecycle  fx.Lifecycle
}

// NewScreens builds every screen, registers it with the controller and
// subscribes the event-driven ones and the controller to the source.
func NewScreens(p screensParams) *Screens {
	deps := screens.Deps{
		Surface: p.Surface,
		Modes:   p.Controller,
		Source:  p.Source,
		Assets:  p.Resolver,
		Logger:  p.Logger,
	}
	s := &Screens{
		AirPlay:  screens.NewAirPlay(deps),
		WebRadio: screens.NewWebRadio(deps),
		Clock: screens.NewClock(deps, screens.ClockSettings{
			FontKey:     p.Config.Clock.FontKey,
			ShowSeconds: p.Config.Clock.ShowSeconds,
			ShowDate:    p.Config.Clock.ShowDate,
		}),
		SystemInfo: screens.NewSystemInfo(deps, screens.SystemInfoConfig{
			WebPort: listenPort(p.Config.Web.Listen),
			Version: version.Version,
		}),
		Modern:  screens.NewNowPlaying(deps, screens.LayoutModern),
		Minimal: screens.NewNowPlaying(deps, screens.LayoutMinimal),
	}

	p.Controller.Register(screens.ModeClock, s.Clock)
	p.Controller.Register(screens.ModeAirPlay, s.AirPlay)
	p.Controller.Register(screens.ModeWebRadio, s.WebRadio)
	p.Controller.Register(screens.ModeSystemInfo, s.SystemInfo)
	p.Controller.Register(screens.ModeModern, s.Modern)
	p.Controller.Register(screens.ModeMinimal, s.Minimal)

	cancels := []func(){
		p.Source.Subscribe(s.AirPlay.OnStateNotified),
		p.Source.Subscribe(s.WebRadio.OnStateNotified),
		p.Source.Subscribe(s.Modern.OnStateNotified),
		p.Source.Subscribe(s.Minimal.OnStateNotified),
		p.Source.Subscribe(p.Controller.OnStateNotified),
	}
	p.Lifecycle.Append(fx.StopHook(func() {
		for _, cancel := range cancels {
			cancel()
		}
	}))
	return s
}

func listenPort(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return port
}

func NewWebServer(cfg config.Config, ctrl *app.Controller, src playback.Source, surface *render.MemorySurface, s *Screens, logger *zap.Logger, lc fx.Lifecycle) *web.HTTPServer {
	srv := web.NewHTTPServer(web.ServerConfigFrom(cfg.Web), web.APIV1Deps{
		Modes:    ctrl,
		Commands: ctrl,
		State:    src,
		Frames:   surface,
		Clock:    s.Clock,
	}, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return srv.Start(context.Background()) },
		OnStop:  func(context.Context) error { return srv.Stop() },
	})
	return srv
}

// background runs fn until the application stops and waits for it on stop.
func background(lc fx.Lifecycle, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				fn(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// runSource ends the controller, and with it the application, when the
// source gives up.
func runSource(lc fx.Lifecycle, src playback.Source, ctrl *app.Controller) {
	runner, ok := src.(Runner)
	if !ok {
		return
	}
	background(lc, func(ctx context.Context) {
		if err := runner.Run(ctx); err != nil {
			ctrl.Exit(fmt.Errorf("playback source: %w", err))
		}
	})
}

// runController drives the display. It depends on Screens so every mode is
// registered before Run enters the initial one.
func runController(lc fx.Lifecycle, ctrl *app.Controller, _ *Screens, logger *zap.Logger, sd fx.Shutdowner) {
	background(lc, func(ctx context.Context) {
		err := ctrl.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("controller stopped", zap.Error(err))
			_ = sd.Shutdown(fx.ExitCode(1))
		}
	})
}

func advertise(lc fx.Lifecycle, cfg config.Config, srv *web.HTTPServer, logger *zap.Logger) {
	if !cfg.Web.Advertise {
		return
	}
	var adv *discovery.Advertiser
	lc.Append(fx.Hook{
		// Appended after the web server hook, so the port is bound here.
		OnStart: func(context.Context) error {
			adv = discovery.NewAdvertiser(cfg.Web.Instance, srv.Port(), map[string]string{
				"path":    "/",
				"version": version.Version,
			}, logger)
			if err := adv.Start(); err != nil {
				logger.Warn("mDNS advertisement unavailable", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			if adv != nil {
				adv.Stop()
			}
			return nil
		},
	})
}
