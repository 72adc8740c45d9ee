// Entry point for the phoenix editing daemon: chi router with the
// parent-frame websocket endpoint, plus an optional MCP stdio mode for
// agent-driven inspection of a single page.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/phoenix/editor"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/pageload"
)

func main() {
	port := env("PORT", "8090")
	configPath := env("CONFIG", "phoenix.yaml")
	pageURL := env("PAGE_URL", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	chromeURL := env("CHROME_URL", "")
	logLevel := env("LOG_LEVEL", "info")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := editor.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := editor.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loader := pageload.New(pageload.Config{
		RemoteURL: chromeURL,
		Stealth:   true,
		Logger:    logger,
	})
	if err := loader.Start(ctx); err != nil {
		slog.Error("browser", "error", err)
		os.Exit(1)
	}
	defer loader.Close()

	if mcpTransport == "stdio" {
		if pageURL == "" {
			slog.Error("PAGE_URL is required for MCP stdio mode")
			os.Exit(1)
		}
		if err := runMCP(ctx, cfg, loader, pageURL, logger); err != nil && ctx.Err() == nil {
			slog.Error("mcp", "error", err)
			os.Exit(1)
		}
		return
	}

	policy := frame.Policy{AllowedOrigins: cfg.Frame.AllowedOrigins}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		target := req.URL.Query().Get("url")
		if target == "" {
			target = pageURL
		}
		if target == "" {
			http.Error(w, "missing url", http.StatusBadRequest)
			return
		}
		conn, err := frame.Upgrade(w, req, policy)
		if err != nil {
			slog.Warn("upgrade", "error", err)
			return
		}
		go runSession(req.Context(), cfg, loader, target, conn, logger)
	})

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		srv.Shutdown(shutCtx)
	}()

	slog.Info("phoenixd starting", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("serve", "error", err)
		os.Exit(1)
	}
}

// runSession snapshots the page and pumps one editing session over the
// websocket until the parent disconnects.
func runSession(ctx context.Context, cfg editor.Config, loader *pageload.Loader, target string, conn frame.Conn, logger *slog.Logger) {
	defer conn.Close()

	doc, err := loader.Snapshot(ctx, target)
	if err != nil {
		logger.Error("snapshot", "url", target, "error", err)
		return
	}
	e, err := editor.New(cfg, doc, conn, editor.WithLogger(logger))
	if err != nil {
		logger.Error("editor", "error", err)
		return
	}
	defer e.Close()

	logger.Info("session started", "url", target)
	if err := e.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("session ended", "url", target, "error", err)
		return
	}
	logger.Info("session ended", "url", target)
}

// runMCP snapshots one page and serves the editor tools over stdio. The
// parent side of the frame channel is drained so outbound broadcasts never
// block tool calls.
func runMCP(ctx context.Context, cfg editor.Config, loader *pageload.Loader, target string, logger *slog.Logger) error {
	doc, err := loader.Snapshot(ctx, target)
	if err != nil {
		return err
	}

	host, eng := frame.Pipe(64)
	defer host.Close()
	go func() {
		for {
			if _, err := host.Recv(); err != nil {
				return
			}
		}
	}()

	e, err := editor.New(cfg, doc, eng, editor.WithLogger(logger))
	if err != nil {
		return err
	}
	defer e.Close()
	e.Tracker().Scan()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "phoenix",
		Version: "1.0.0",
	}, nil)
	e.RegisterMCP(srv)

	logger.Info("mcp stdio serving", "url", target)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
