// Command kbuddyd boots a binary-buddy physical page allocator over an
// anonymous-mmap "arena" standing in for physical memory, and optionally
// exposes its diagnostic surface over HTTP. Flag/config handling and the
// gops/HTTP-server/signal lifecycle are generalized from
// cc-backend/cmd/cc-backend/main.go.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"govetachun/kbuddy/internal/arena"
	"govetachun/kbuddy/internal/buddy"
	"govetachun/kbuddy/internal/config"
	"govetachun/kbuddy/internal/httpserver"
	"govetachun/kbuddy/internal/scheduler"
	"govetachun/kbuddy/pkg/klog"
)

func main() {
	var (
		flagConfigFile string
		flagPages      int
		flagNoServer   bool
		flagGops       bool
		flagLogLevel   string
	)
	flag.StringVar(&flagConfigFile, "config", "./kbuddy.json", "overwrite the default allocator config with the contents of `file`")
	flag.IntVar(&flagPages, "pages", 0, "override the configured page count (must be a power of two)")
	flag.BoolVar(&flagNoServer, "no-server", false, "initialize the allocator and exit, without starting the HTTP diagnostic surface")
	flag.BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "minimum log level: debug, info, warn, err")
	flag.Parse()

	klog.SetLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			klog.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	cfg, err := config.LoadFile(flagConfigFile)
	if err != nil {
		klog.Fatalf("loading config: %s", err)
	}
	if flagPages != 0 {
		cfg.Pages = flagPages
	}

	ar, err := arena.Acquire(cfg.Pages, cfg.PageSize)
	if err != nil {
		klog.Fatalf("acquiring arena: %s", err)
	}
	defer ar.Release()

	alloc := buddy.New("default", cfg.BuddyConfig())
	alloc.Init(ar.Base(), ar.PhysTop())
	klog.Infof("allocator initialized: %d pages of %d bytes at %#x", cfg.Pages, cfg.PageSize, ar.Base())

	var sc *scheduler.Scheduler
	if cfg.StatsInterval > 0 {
		sc, err = scheduler.Start(alloc, cfg.StatsInterval)
		if err != nil {
			klog.Fatalf("starting scheduler: %s", err)
		}
		defer sc.Stop()
	}

	if flagNoServer {
		return
	}

	registry := httpserver.NewRegistry(alloc, cfg.MetricsEnabled)
	handler := httpserver.New(alloc, registry)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		klog.Fatalf("listening on %s: %s", cfg.HTTPAddr, err)
	}
	klog.Infof("HTTP diagnostic surface listening at %s", cfg.HTTPAddr)

	errs := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		klog.Fatalf("http server: %s", err)
	case <-sigs:
		klog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			klog.Errorf("graceful shutdown failed: %s", err)
		}
	}
}
