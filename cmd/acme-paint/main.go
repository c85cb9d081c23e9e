// Command acme-paint serves layer-composited paint canvases over 9P.
//
// Each file read from new allocates a canvas; commands written to its ctl
// file paint, undo, redo and replay, and its colors file serves the
// composed result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"9fans.net/go/plan9/client"
	"github.com/cptaffe/acme-paint/internal/catalog"
	"github.com/cptaffe/acme-paint/internal/server"
	"github.com/cptaffe/acme-paint/logger"
	"github.com/cptaffe/acme-paint/paint"
	"github.com/cptaffe/acme-paint/paintfs"
	"go.uber.org/zap"
)

func main() {
	layersFile := flag.String("layers", "", "layer catalog file (default: built-in catalog)")
	srv := flag.String("srv", "", "unix socket path (default: $NAMESPACE/"+paintfs.Service+")")
	verbose := flag.Bool("v", false, "verbose logging")
	styleName := flag.String("style", "", "initial draw style: set, additive or sequence (overrides @style)")
	size := flag.String("size", "", "canvas size WxH (overrides @size)")
	replay := flag.Duration("replay", server.DefaultReplayInterval, "delay between replayed actions")
	use9pserve := flag.Bool("9pserve", false, "announce through plan9port's 9pserve instead of listening directly")
	flag.Parse()

	var err error
	var l *zap.Logger
	if *verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zap.ReplaceGlobals(l)
	defer l.Sync() //nolint:errcheck

	srvPath := *srv
	if srvPath == "" {
		srvPath = client.Namespace() + "/" + paintfs.Service
	}

	catCfg, err := loadCatalog(*layersFile)
	if err != nil {
		l.Fatal("load layers", zap.String("path", *layersFile), zap.Error(err))
	}
	cfg := server.ConfigFrom(catCfg)
	cfg.ReplayInterval = *replay
	if *styleName != "" {
		if cfg.Style, err = paint.ParseStyle(*styleName); err != nil {
			l.Fatal("bad -style", zap.Error(err))
		}
	}
	if *size != "" {
		if cfg.Width, cfg.Height, err = parseSize(*size); err != nil {
			l.Fatal("bad -size", zap.Error(err))
		}
	}
	l.Info("loaded layers",
		zap.Int("layers", len(cfg.Catalog)),
		zap.Stringer("style", cfg.Style),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.String("path", *layersFile))

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	ctx = logger.NewContext(ctx, l)

	s, err := server.NewServer(ctx, cfg)
	if err != nil {
		l.Fatal("new server", zap.Error(err))
	}

	if *use9pserve {
		serve9pserve(ctx, s, srvPath)
	} else {
		serveUnix(ctx, s, srvPath)
	}

	l.Info("shutting down; waiting for canvas goroutines")
	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
		l.Info("shutdown complete")
	case <-time.After(5 * time.Second):
		l.Warn("shutdown timed out; exiting anyway")
	}
}

// serveUnix listens on srvPath and serves each connection until ctx is
// cancelled.
func serveUnix(ctx context.Context, s *server.Server, srvPath string) {
	l := logger.L(ctx)
	os.Remove(srvPath)
	ln, err := net.Listen("unix", srvPath)
	if err != nil {
		l.Fatal("listen", zap.String("path", srvPath), zap.Error(err))
	}
	defer os.Remove(srvPath)
	defer ln.Close()

	// Close the listener when the context is cancelled so that Accept
	// returns an error and the loop below can exit.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.Info("listening", zap.String("addr", srvPath))
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.Error("accept", zap.Error(err))
			continue
		}
		go s.ServeConn(c)
	}
}

// serve9pserve hands the service to 9pserve, which multiplexes clients
// onto a single pipe, and serves that pipe until ctx is cancelled.
func serve9pserve(ctx context.Context, s *server.Server, srvPath string) {
	l := logger.L(ctx)
	rwc, cleanup, err := listen(srvPath)
	if err != nil {
		l.Fatal("9pserve", zap.String("path", srvPath), zap.Error(err))
	}
	defer cleanup()
	l.Info("announced", zap.String("addr", srvPath))

	done := make(chan struct{})
	go func() {
		s.ServeConn(rwc)
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
		l.Warn("9pserve connection closed")
	}
}

// loadCatalog reads the catalog at path, or the built-in one if path is
// empty.
func loadCatalog(path string) (catalog.Config, error) {
	if path == "" {
		return catalog.MustDefault(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Config{}, err
	}
	return catalog.Parse(string(data))
}

// parseSize parses "WxH".
func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	if w, err = strconv.Atoi(ws); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if h, err = strconv.Atoi(hs); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: dimensions must be positive", s)
	}
	return w, h, nil
}
