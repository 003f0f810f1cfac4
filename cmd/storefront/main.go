package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/tienda/internal/config"
	"github.com/jcmexdev/tienda/internal/gateway"
	"github.com/jcmexdev/tienda/internal/httpx"
	"github.com/jcmexdev/tienda/internal/pkg/cache"
	"github.com/jcmexdev/tienda/internal/pkg/telemetry"
	"github.com/jcmexdev/tienda/internal/store"
	"github.com/jcmexdev/tienda/internal/store/sqlite"
)

func main() {
	telemetry.InitLogger()

	seedFile := flag.String("seed", "", "JSON file of products to insert, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open ledger", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	var catalog cache.Cache
	if cfg.RedisAddr != "" {
		catalog = cache.NewRedisCache(cfg.RedisAddr, "storefront")
	}

	if *seedFile != "" {
		if err := seedProducts(ctx, ledger, catalog, *seedFile); err != nil {
			slog.Error("failed to seed products", "file", *seedFile, "error", err)
			os.Exit(1)
		}
		return
	}

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "storefront"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	gw := gateway.NewClient(cfg.GatewayURL, cfg.AccessToken)
	handler := httpx.NewHandler(cfg, ledger, gw, catalog)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpx.NewRouter(handler),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
	}()

	slog.Info("storefront running", "addr", cfg.Addr, "debug", cfg.Debug)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

// seedProducts inserts catalog entries from a JSON file. Products are
// otherwise created out-of-band; this is that administrative path.
func seedProducts(ctx context.Context, ledger store.Ledger, catalog cache.Cache, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var products []struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
	}
	if err := json.Unmarshal(raw, &products); err != nil {
		return err
	}

	for _, p := range products {
		product := &store.Product{Name: p.Name, Description: p.Description, Price: p.Price}
		if err := ledger.CreateProduct(ctx, product); err != nil {
			return err
		}
		slog.Info("product seeded", "id", product.ID, "name", product.Name)
	}

	if catalog != nil {
		if err := catalog.Delete(ctx, catalog.GenerateKey("catalog", "all")); err != nil {
			slog.Warn("failed to invalidate catalog cache", "error", err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
