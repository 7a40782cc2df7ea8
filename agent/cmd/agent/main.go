package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertcore/alertcore/agent/internal/config"
	"github.com/alertcore/alertcore/agent/internal/shipper"
	"github.com/alertcore/alertcore/pkg/alertrpc"
	"github.com/alertcore/alertcore/pkg/logging"
)

// maxLineBytes bounds one NDJSON input line.
const maxLineBytes = 1 << 20

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	input := flag.String("input", "-", "file of newline-delimited JSON alerts; - reads stdin")
	drainTimeout := flag.Duration("drain-timeout", 30*time.Second, "how long to keep shipping after input ends")
	flag.Parse()

	boot := zerolog.New(os.Stderr).With().Timestamp().Str("service", "alert-forwarder").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Str("config", *configPath).Msg("failed to load config")
	}
	// stdout may carry the input pipe's peer; logs go to stderr.
	logger, logCloser, err := logging.New(cfg.Agent.Log, os.Stderr, "alert-forwarder")
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to build logger")
	}
	defer logCloser.Close()

	startLevel, _ := logging.ParseLevel(cfg.Agent.Log.Level) // validated by Load
	levels := logging.NewLevelSwitch(startLevel)
	logger = levels.Attach(logger)

	logger.Info().
		Str("server_endpoint", cfg.Agent.ServerEndpoint).
		Int("buffer_size", cfg.Agent.BufferSize).
		Str("auth_mode", cfg.Agent.ServerAuth.Mode).
		Msg("config loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Log level follows the config file.
	go func() {
		err := config.Watch(ctx, *configPath, logger, func(updated *config.Config) {
			if lvl, err := logging.ParseLevel(updated.Agent.Log.Level); err == nil {
				levels.Set(lvl)
				logger.Info().Str("level", lvl.String()).Msg("log level updated")
			}
		})
		if err != nil {
			logger.Warn().Err(err).Msg("config watcher disabled")
		}
	}()

	ship := shipper.New(cfg.Agent, logger)
	go ship.Run(ctx)

	in := io.Reader(os.Stdin)
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Fatal().Err(err).Str("input", *input).Msg("failed to open input")
		}
		defer f.Close()
		in = f
	}

	n := readAlerts(ctx, in, ship, logger)
	logger.Info().Int("alerts", n).Msg("input finished, draining")

	drainCtx, stop := context.WithTimeout(ctx, *drainTimeout)
	defer stop()
	waitDrained(drainCtx, ship)

	if left := ship.Outstanding(); left > 0 {
		logger.Warn().Int("undelivered", left).Msg("alert-forwarder exiting with undelivered alerts")
		return
	}
	logger.Info().Msg("alert-forwarder shutting down")
}

// readAlerts ships every well-formed line of in and returns how many were
// accepted. Malformed lines are logged and skipped.
func readAlerts(ctx context.Context, in io.Reader, ship *shipper.Shipper, logger zerolog.Logger) int {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n, line := 0, 0
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var req alertrpc.RaiseRequest
		if err := json.Unmarshal([]byte(text), &req); err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("skipping malformed alert")
			continue
		}
		if req.Type == "" {
			logger.Warn().Int("line", line).Msg("skipping alert without type")
			continue
		}
		ship.Ship(&req)
		n++
	}
	if err := sc.Err(); err != nil {
		logger.Error().Err(err).Msg("input read failed")
	}
	return n
}

func waitDrained(ctx context.Context, ship *shipper.Shipper) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for ship.Outstanding() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
