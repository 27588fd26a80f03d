// Command relevel rewrites the visible text of live web pages at a
// target CEFR level, or produces leveled summary artifacts.
//
// Usage:
//
//	relevel -url https://example.com -level B1            # rewrite in place
//	relevel -url https://example.com -level A2 -mode summarize
//	relevel -config relevel.yaml -serve 127.0.0.1:7333    # HTTP API
//	relevel -config relevel.yaml -mcp                     # MCP over stdio
//
// The upstream credential is read from RELEVEL_API_KEY.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/relevel/history"
	"github.com/hazyhaar/relevel/level"
	"github.com/hazyhaar/relevel/releveler"
	"github.com/hazyhaar/relevel/rewrite"
	"github.com/hazyhaar/relevel/summary"
)

func main() {
	configPath := flag.String("config", "", "path to relevel.yaml config file")
	pageURL := flag.String("url", "", "page URL to process")
	levelStr := flag.String("level", "B1", "target CEFR level: A1, A2, B1, B2, C1, C2")
	mode := flag.String("mode", "rewrite", "operation: rewrite or summarize")
	serveAddr := flag.String("serve", "", "serve the HTTP API on this address instead of running one operation")
	mcpStdio := flag.Bool("mcp", false, "serve the MCP tool surface over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var lv slog.Level
	switch *logLevel {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *pageURL, *levelStr, *mode, *serveAddr, *mcpStdio); err != nil {
		logger.Error("relevel: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, pageURL, levelStr, mode, serveAddr string, mcpStdio bool) error {
	cfg := releveler.DefaultConfig()
	if configPath != "" {
		loaded, err := releveler.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}

	if pageURL == "" && cfg.Serve.Addr == "" && !mcpStdio {
		fmt.Fprintln(os.Stderr, "usage: relevel -url <url> -level <A1..C2> [-mode rewrite|summarize] | -serve <addr> | -mcp")
		os.Exit(1)
	}

	r, cleanup, err := assemble(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if mcpStdio {
		return serveMCP(ctx, r)
	}
	if cfg.Serve.Addr != "" {
		return serve(ctx, logger, cfg.Serve.Addr, r)
	}

	lvl, err := level.Parse(levelStr)
	if err != nil {
		return err
	}
	return runOnce(ctx, logger, r, mode, pageURL, lvl)
}

// assemble wires the orchestrator from config: browser, sinks, history.
func assemble(ctx context.Context, logger *slog.Logger, cfg *releveler.FileConfig) (*releveler.Releveler, func(), error) {
	snk, err := releveler.BuildSinks(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var store *history.Store
	if cfg.History.DBPath != "" {
		store, err = history.Open(cfg.History.DBPath)
		if err != nil {
			return nil, nil, err
		}
	}

	pager, err := releveler.NewBrowserPager(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	r, err := releveler.New(releveler.Config{
		Pager: pager,
		Upstream: rewrite.Config{
			BaseURL: cfg.Upstream.BaseURL,
			Model:   cfg.Upstream.Model,
			Logger:  logger,
		},
		APIKey:          os.Getenv("RELEVEL_API_KEY"),
		PacingDelay:     cfg.Rewrite.PacingDelay,
		UpstreamTimeout: cfg.Upstream.Timeout,
		MaskDelay:       cfg.Rewrite.MaskDelay,
		SummaryFormat:   summary.Format(cfg.Summary.Format),
		Sink:            snk,
		History:         store,
		Logger:          logger,
	})
	if err != nil {
		pager.Close()
		return nil, nil, err
	}

	cleanup := func() {
		r.Close()
		pager.Close()
		snk.Close()
		if store != nil {
			store.Close()
		}
	}
	return r, cleanup, nil
}

func runOnce(ctx context.Context, logger *slog.Logger, r *releveler.Releveler, mode, pageURL string, lvl level.Level) error {
	var out releveler.Outcome
	switch mode {
	case "rewrite":
		out = r.Rewrite(ctx, pageURL, lvl)
	case "summarize":
		out = r.Summarize(ctx, pageURL, lvl)
	default:
		return fmt.Errorf("unknown mode %q (want rewrite or summarize)", mode)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)

	if !out.Success {
		return fmt.Errorf("%s failed: %s", mode, out.Error)
	}
	logger.Info("relevel: done", "operation", mode, "session", out.SessionID)
	return nil
}

func serveMCP(ctx context.Context, r *releveler.Releveler) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "relevel",
		Version: "1.0.0",
	}, nil)
	r.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func serve(ctx context.Context, logger *slog.Logger, addr string, r *releveler.Releveler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relevel: http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
