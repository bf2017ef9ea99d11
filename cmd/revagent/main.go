// Command revagent is the entry point for the reverse-engineering MCP
// tool server: it wires every subsystem in internal/ together and
// serves the MCP tool catalog over stdio, exactly as cmd/chrc/main.go
// wires chi + its services together for HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/analysis"
	"github.com/brennhill/revagent/internal/artifactcache"
	"github.com/brennhill/revagent/internal/browsersession"
	"github.com/brennhill/revagent/internal/cachecoord"
	"github.com/brennhill/revagent/internal/config"
	"github.com/brennhill/revagent/internal/consolemonitor"
	"github.com/brennhill/revagent/internal/dbopen"
	"github.com/brennhill/revagent/internal/debugger"
	"github.com/brennhill/revagent/internal/detailstore"
	"github.com/brennhill/revagent/internal/hookengine"
	"github.com/brennhill/revagent/internal/llm"
	"github.com/brennhill/revagent/internal/netrecorder"
	"github.com/brennhill/revagent/internal/perfmonitor"
	"github.com/brennhill/revagent/internal/scriptcatalog"
	"github.com/brennhill/revagent/internal/tokenbudget"
	"github.com/brennhill/revagent/internal/tools"
)

func main() {
	cfg, err := config.Load(os.Getenv("REVAGENT_CONFIG"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// All logging goes to stderr: stdout is reserved for the MCP
	// line-delimited JSON-RPC framing.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider := buildLLMProvider(cfg, logger)

	browser := browsersession.New(browsersession.Config{
		Headless:      cfg.PuppeteerHeadless,
		LaunchTimeout: cfg.PuppeteerTimeout,
		Stealth:       true,
		Logger:        logger,
	})

	scripts := scriptcatalog.New()
	network := netrecorder.New()
	console := consolemonitor.New()
	dbg := debugger.New()
	hooks := hookengine.New()
	perf := perfmonitor.New()
	detail := detailstore.New()
	defer detail.Close()
	caches := cachecoord.New()

	budget := tokenbudget.New(func() int64 {
		freed := detail.Clear()
		logger.Info("token budget cleanup", "bytes_freed", freed)
		return freed
	})

	caches.Register(detailstore.CacheAdapter{Store: detail})
	caches.Register(netrecorder.CacheAdapter{Recorder: network})
	caches.Register(consolemonitor.CacheAdapter{Monitor: console})
	caches.Register(scriptcatalog.CacheAdapter{Catalog: scripts})

	var artifacts *artifactcache.Store
	if cfg.EnableCache {
		dbPath := cfg.CacheDir + "/artifacts.db"
		db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
		if err != nil {
			logger.Error("artifact cache open", "error", err)
			os.Exit(1)
		}
		artifacts, err = artifactcache.Open(db)
		if err != nil {
			logger.Error("artifact cache schema", "error", err)
			os.Exit(1)
		}
		defer artifacts.Close()
		scripts.SetDiskSpill(artifacts)
		caches.Register(artifactcache.CacheAdapter{Store: artifacts})
		logger.Info("artifact cache enabled", "path", dbPath)
	}

	deps := &tools.Deps{
		Browser:  browser,
		Scripts:  scripts,
		Network:  network,
		Console:  console,
		Debugger: dbg,
		Hooks:    hooks,
		Perf:     perf,
		Detail:   detail,
		Budget:   budget,
		Caches:   caches,
		LLM:      provider,
		Logger:   logger,

		Deobfuscate: &analysis.DeobfuscateFacade{Provider: provider},
		Crypto:      &analysis.CryptoFacade{Provider: provider},
		Understand:  &analysis.UnderstandFacade{Provider: provider},
		Emulator:    &analysis.EmulatorFacade{Provider: provider},
	}

	if _, err := browser.Start(ctx); err != nil {
		logger.Error("browser start", "error", err)
		os.Exit(1)
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.MCPServerName,
		Version: cfg.MCPServerVersion,
	}, nil)
	tools.RegisterAll(srv, deps)

	var debugSrv *http.Server
	if cfg.DebugPort != "" {
		debugSrv = startDebugServer(cfg.DebugPort, browser, caches, budget, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("revagent starting", "transport", "stdio")
		errCh <- srv.Run(ctx, &mcp.StdioTransport{})
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("mcp transport", "error", err)
		}
	}

	if debugSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		debugSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if err := browser.Close(); err != nil {
		logger.Warn("browser close", "error", err)
	}
	logger.Info("revagent stopped")
	os.Exit(0)
}

func buildLLMProvider(cfg config.Config, logger *slog.Logger) llm.Provider {
	switch cfg.DefaultLLMProvider {
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
	default:
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger)
	}
}

// startDebugServer exposes /healthz and /metrics on loopback only — this
// is an operator convenience, never the MCP transport (which stays
// stdio per §6).
func startDebugServer(port string, browser *browsersession.Manager, caches *cachecoord.Coordinator, budget *tokenbudget.Budget, logger *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		status := browser.Status()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"running":%t,"pageUrl":%q}`, status.Running, status.PageURL)
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		snap, _ := budget.Stats()
		global := caches.Stats()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "revagent_token_budget_ratio %f\n", snap.Ratio)
		fmt.Fprintf(w, "revagent_token_budget_current %d\n", snap.CurrentUsage)
		fmt.Fprintf(w, "revagent_cache_total_bytes %d\n", global.TotalBytes)
		fmt.Fprintf(w, "revagent_cache_total_entries %d\n", global.TotalEntries)
		fmt.Fprintf(w, "revagent_cache_hit_rate %f\n", global.HitRate)
	})

	addr := "127.0.0.1:" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("debug http surface starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("debug http surface", "error", err)
		}
	}()
	return srv
}
