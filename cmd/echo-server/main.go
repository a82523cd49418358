// Command echo-server accepts TCP connections and echoes every byte back to
// the peer that sent it.
//
//	echo-server [flags] [address]
//
// The address defaults to 127.0.0.1:6142. Use a client such as
// examples/client or `nc 127.0.0.1 6142` to try it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/NetPo4ki/go-echo/config"
	"github.com/NetPo4ki/go-echo/echo"
	"github.com/NetPo4ki/go-echo/interop/errgroup"
	"github.com/NetPo4ki/go-echo/observe/logging"
	"github.com/NetPo4ki/go-echo/observe/prom"
	"github.com/NetPo4ki/go-echo/scope"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) int {
	cfg, err := config.Load(args, getenv, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	if err := serve(ctx, cfg, logger); err != nil {
		if echo.IsBindError(err) {
			logger.Error("cannot start echo server", zap.Error(err))
		} else {
			logger.Error("echo server stopped", zap.Error(err))
		}
		return 1
	}
	logger.Info("echo server stopped")
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := prom.New(reg)

	opts := []echo.Option{
		echo.WithLogger(logger),
		echo.WithRecorder(metrics),
		echo.WithObserver(scope.Observers(metrics, logging.NewObserver(logger))),
		echo.WithMaxConnections(cfg.MaxConnections),
		echo.WithBufferSize(cfg.BufferSize),
		echo.WithAcceptBackoff(cfg.AcceptBackoff),
	}

	g, gctx := errgroup.WithContext(ctx, scope.WithObserver(logging.NewObserver(logger.Named("main"))))
	if cfg.MetricsAddr != "" {
		if err := serveMetrics(gctx, g, cfg.MetricsAddr, reg, logger); err != nil {
			return err
		}
	}
	g.Go(func() error {
		return echo.ListenAndServe(gctx, cfg.Addr, opts...)
	})
	return g.Wait()
}

// serveMetrics binds addr up front so a bad metrics address fails startup,
// then serves until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, logger *zap.Logger) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: prom.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return nil
}
