// Quadify drives the front-panel display of a Volumio streamer: now playing
// screens for AirPlay and web radio, a clock when idle, and a small web API.
//
// Usage:
//
//	quadify run [--config /etc/quadify/config.yaml]
//	quadify version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quadify/quadify/internal/config"
	"github.com/quadify/quadify/internal/daemon"
	"github.com/quadify/quadify/internal/version"
)

const envStdioLog = "QUADIFY_STDIO_LOG"

func main() {
	// A missing .env is normal on the device.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "quadify",
	Short: "Quadify display daemon",
	Long: `Quadify shows what the player is doing on the front-panel display.

It follows Volumio (or an MPRIS player such as Shairport Sync), switches
between the AirPlay, web radio, clock and system info screens, and serves a
small HTTP API with a live preview of the display.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	stdioLog   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the display daemon",
	Example: `  # Run with the default config file
  quadify run

  # Run against a Volumio on another host, logging at debug level
  QUADIFY_VOLUMIO_URL=http://volumio.local:3000 QUADIFY_LOG_LEVEL=debug quadify run --config ./config.yaml`,
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "quadify", version.Full())
	},
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath+", or $"+config.EnvConfigPath+")")
	runCmd.Flags().StringVar(&stdioLog, "stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+envStdioLog)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Best-effort: with the console in graphics mode, crashes are only
	// diagnosable from a file.
	logPath := stdioLog
	if logPath == "" {
		logPath = os.Getenv(envStdioLog)
	}
	if err := redirectStdIO(logPath); err != nil {
		fmt.Fprintln(os.Stderr, "stdio log redirect error:", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app := daemon.New(cfg)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, cancelStart := context.WithTimeout(ctx, 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("daemon exited with code %d", exitCode)
	}
	return nil
}
