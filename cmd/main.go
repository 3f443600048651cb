// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/auth"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/config"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/database"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/handler"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/notify"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/repository"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/service"
	"github.com/Shivanand-hulikatti/event-reg-coordinator/internal/telemetry"
)

// stores is the catalog and ledger pair selected by LEDGER_DRIVER.
type stores struct {
	catalog repository.EventCatalog
	ledger  repository.Ledger
	close   func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.LedgerDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, cfg.LockTimeout)
		if err != nil {
			return stores{}, err
		}
		st := repository.NewSQLiteStore(db)
		log.Printf("✓ Opened SQLite ledger at %s", cfg.SQLitePath)
		return stores{catalog: st, ledger: st, close: func() { _ = st.Close() }}, nil
	case config.DriverMemory:
		st := repository.NewMemoryStore()
		log.Println("✓ Using in-memory ledger (data is lost on exit)")
		return stores{catalog: st, ledger: st, close: func() {}}, nil
	default:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return stores{}, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		log.Println("✓ Connected to PostgreSQL")
		return stores{
			catalog: repository.NewEventRepository(pool),
			ledger:  repository.NewRegistrationRepository(pool, cfg.LockTimeout),
			close:   pool.Close,
		}, nil
	}
}

// openPublisher logs notifications unless RABBITMQ_URL is set.
func openPublisher(ctx context.Context, cfg config.Config) (notify.Publisher, func() error, error) {
	if cfg.RabbitMQURL == "" {
		return notify.Log{}, func() error { return nil }, nil
	}
	pub, err := notify.DialAMQP(ctx, cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}

func main() {
	ctx := context.Background()

	// ── 1. Configuration & tracing ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	// ── 2. Storage & broker ──────────────────────────────────────────────
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer st.close()

	publisher, closePublisher, err := openPublisher(ctx, cfg)
	if err != nil {
		log.Fatalf("notify: %v", err)
	}
	defer closePublisher()

	gatekeeper, err := auth.NewGatekeeper(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	eventSvc := service.NewEventService(st.catalog, st.ledger)
	coordinator := service.NewCoordinator(st.ledger, publisher, cfg.LockTimeout)
	router := handler.NewRouter(handler.RouterConfig{
		Handler:  handler.NewEventHandler(eventSvc, coordinator),
		Verifier: gatekeeper,
		WebDir:   cfg.WebDir,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✓ Server listening on http://localhost:%s (ledger=%s)", cfg.Port, cfg.LedgerDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
