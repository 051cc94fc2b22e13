// Command fanin runs simulated services through the coordinator under each
// failure policy and prints the aggregated results.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/NetPo4ki/go-fanin/coordinator"
	"github.com/NetPo4ki/go-fanin/internal/config"
	"github.com/NetPo4ki/go-fanin/observe/otel"
	"github.com/NetPo4ki/go-fanin/observe/prom"
	"github.com/NetPo4ki/go-fanin/unit"
)

const (
	exitSuccess       = 0
	exitDispatchError = 1
	exitTimeout       = 2
	exitConfig        = 4
	exitCanceled      = 130
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr))
}

func run(stdout, stderr io.Writer) int {
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return exitConfig
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Error().Err(err).Msg("invalid log level")
		return exitConfig
	}
	log = log.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics, err := prom.New(reg)
	if err != nil {
		log.Error().Err(err).Msg("metrics setup failed")
		return exitDispatchError
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	var tp *sdktrace.TracerProvider
	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Error().Err(err).Msg("trace exporter setup failed")
			return exitDispatchError
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	modes, err := cfg.Modes()
	if err != nil {
		log.Error().Err(err).Msg("invalid policy")
		return exitConfig
	}

	c := coordinator.New(
		coordinator.WithLogger(log),
		coordinator.WithObserver(coordinator.Observers(metrics, otel.New())),
		coordinator.WithMaxConcurrency(cfg.MaxConcurrency),
	)
	units := buildServices(cfg)

	code := exitSuccess
	for _, mode := range modes {
		runCtx, end := ctx, func() {}
		if tp != nil {
			runCtx, end = startSpan(ctx, tp, mode)
		}
		rc := dispatch(runCtx, c, mode, cfg, units, stdout)
		end()
		if rc > code {
			code = rc
		}
	}
	return code
}

func buildServices(cfg config.Config) []unit.Unit {
	units := make([]unit.Unit, len(cfg.Services))
	for i, id := range cfg.Services {
		units[i] = unit.NewService(id,
			unit.WithDelay(cfg.Delay),
			unit.WithJitter(cfg.Jitter),
			unit.WithFailure(cfg.IsFailing(id)))
	}
	return units
}

func dispatch(ctx context.Context, c *coordinator.Coordinator, mode coordinator.Mode, cfg config.Config, units []unit.Unit, out io.Writer) int {
	policy := coordinator.Policy{Mode: mode}
	if mode == coordinator.ModeFailSoft {
		policy = coordinator.FailSoft(cfg.Fallback)
	}
	f, err := c.Dispatch(ctx, policy, units, cfg.Inputs)
	if err != nil {
		fmt.Fprintf(out, "== %s ==\nrejected: %v\n", mode, err)
		return exitConfig
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	agg, err := f.Await(waitCtx)

	fmt.Fprintf(out, "== %s ==\n", mode)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(out, "timed out after %s\n", cfg.Timeout)
		return exitTimeout
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "canceled")
		return exitCanceled
	case err != nil:
		fmt.Fprintf(out, "failed: %v\n", err)
		return exitDispatchError
	case mode == coordinator.ModeFailPartial:
		fmt.Fprintf(out, "[%s]\n", strings.Join(agg.Positions, ", "))
	default:
		fmt.Fprintln(out, agg.Joined)
	}
	return exitSuccess
}

func startSpan(ctx context.Context, tp *sdktrace.TracerProvider, mode coordinator.Mode) (context.Context, func()) {
	ctx, span := tp.Tracer("github.com/NetPo4ki/go-fanin/cmd/fanin").Start(ctx, "dispatch "+mode.String())
	return ctx, func() { span.End() }
}
