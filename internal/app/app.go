// Package app assembles the storefront services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/application/auth"
	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	apppromo "github.com/Zhima-Mochi/storefront/internal/application/promotion"
	appstock "github.com/Zhima-Mochi/storefront/internal/application/stock"
	apptx "github.com/Zhima-Mochi/storefront/internal/application/transaction"
	"github.com/Zhima-Mochi/storefront/internal/config"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/payment"
	dompromo "github.com/Zhima-Mochi/storefront/internal/domain/promotion"
	domtx "github.com/Zhima-Mochi/storefront/internal/domain/transaction"
	httpclient "github.com/Zhima-Mochi/storefront/internal/infrastructure/http"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/id"
	inventoryworker "github.com/Zhima-Mochi/storefront/internal/infrastructure/inventory/worker"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/notify"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	httppresentation "github.com/Zhima-Mochi/storefront/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/storefront/internal/presentation/worker"

	"github.com/jmoiron/sqlx"
)

// Unit selects which services a process runs.
type Unit uint8

const (
	TransactionService Unit = 1 << iota
	InventoryService
	// Storefront runs both services in one process.
	Storefront = TransactionService | InventoryService
)

func (u Unit) has(x Unit) bool { return u&x != 0 }

// App is one running process: an HTTP server, a broker and the services bound to them.
type App struct {
	cfg      config.Config
	tel      *Telemetry
	server   *httppresentation.Server
	http     *http.Server
	broker   Broker
	notifier *appinv.Notifier
	closers  []func(context.Context) error

	// inventory use cases, shared with an in-process transaction service
	products *appinv.GetProductUseCase
	promos   *apppromo.ApplyUseCase
}

func New(ctx context.Context, cfg config.Config, units Unit) (_ *App, err error) {
	tel, err := NewTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, tel: tel}
	defer func() {
		if err != nil {
			_ = a.closeResources(context.Background())
			_ = tel.Close(context.Background())
		}
	}()

	a.server = httppresentation.NewServer(cfg.ServiceName, tel.Obs.Logger(), tel.Obs)
	a.server.Mount("GET /metrics", tel.MetricsHandler())

	if a.broker, err = openBroker(cfg, tel.Obs); err != nil {
		return nil, err
	}

	var db *sqlx.DB
	if cfg.Store == config.StorePostgres {
		var schemas []string
		if units.has(InventoryService) {
			schemas = append(schemas, postgres.SchemaInventory)
		}
		if units.has(TransactionService) {
			schemas = append(schemas, postgres.SchemaTransaction)
		}
		if db, err = openDB(ctx, cfg, schemas...); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	}

	if units.has(InventoryService) {
		if err = a.buildInventory(ctx, db); err != nil {
			return nil, err
		}
	}
	if units.has(TransactionService) {
		if err = a.buildTransaction(db); err != nil {
			return nil, err
		}
	}

	a.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

func (a *App) buildInventory(ctx context.Context, db *sqlx.DB) error {
	obs := a.tel.Obs

	var (
		products dominv.Repository
		promos   dompromo.Repository
	)
	if db != nil {
		products = postgres.NewProductRepository(db)
		promos = postgres.NewPromotionRepository(db)
	} else {
		now := time.Now().UTC()
		products = memory.NewProductRepository(seedProducts(now)...)
		promos = memory.NewPromotionRepository(seedPromotions(now)...)
	}

	ledger, closeLedger, err := openLedger(ctx, a.cfg)
	if err != nil {
		return err
	}
	if closeLedger != nil {
		a.closers = append(a.closers, closeLedger)
	}

	admins, err := notify.ParseAdmins(a.cfg.AdminEmails)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.notifier = appinv.NewNotifier(obs)
	a.notifier.Register(appinv.NewAdminEmailListener(admins, notify.NewLogMailer(obs.Logger())))

	consumer := appinv.NewAdjustmentConsumer(products, ledger, a.notifier, obs)
	subscriber := workerpresentation.NewSubscriber(a.broker, obs.Logger(), obs)
	inventoryworker.New(subscriber, consumer, obs.Logger()).Start()

	a.products = appinv.NewGetProductUseCase(products, obs)
	a.promos = apppromo.NewApplyUseCase(promos, products, dompromo.NewResolver(dompromo.DefaultStrategies()), obs)
	httppresentation.NewInventoryHandler(a.products, a.promos).Register(a.server)
	return nil
}

func (a *App) buildTransaction(db *sqlx.DB) error {
	obs := a.tel.Obs
	remote := func(base string) httpclient.Config {
		return httpclient.Config{BaseURL: base, Timeout: a.cfg.RemoteTimeout}
	}

	var (
		lookup appstock.ProductLookup
		promos apptx.PromoApplier
	)
	switch {
	case a.cfg.InventoryURL != "":
		pc, err := httpclient.NewProductClient(remote(a.cfg.InventoryURL))
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		pr, err := httpclient.NewPromoClient(remote(a.cfg.InventoryURL))
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		lookup, promos = pc, pr
	case a.products != nil:
		lookup, promos = localProducts{uc: a.products}, localPromos{uc: a.promos}
	default:
		return errors.New("app: INVENTORY_URL is required when the inventory service runs elsewhere")
	}

	var tokens auth.TokenValidator
	if a.cfg.UserServiceURL != "" {
		uc, err := httpclient.NewUserClient(remote(a.cfg.UserServiceURL))
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		tokens = uc
	} else {
		static, err := auth.ParseStaticTokens(a.cfg.AuthStaticTokens)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		if len(static) == 0 {
			a.tel.System.Warn("auth_no_tokens_configured")
		}
		tokens = static
		// This process is the token authority, so it answers validation requests too.
		httppresentation.NewUsersHandler(static).Register(a.server)
	}

	var repo domtx.Repository
	if db != nil {
		repo = postgres.NewTransactionRepository(db)
	} else {
		repo = memory.NewTransactionRepository()
	}

	validator := appstock.NewValidator(lookup, obs, appstock.WithLookupTimeout(a.cfg.RemoteTimeout))
	publisher := appstock.NewPublisher(a.broker, obs, a.cfg.RemoteTimeout)
	methods := payment.NewRegistry(payment.Card{}, payment.Wallet{})

	httppresentation.NewTransactionHandler(
		apptx.NewCreateUseCase(repo, id.UUIDGenerator{}, validator, promos, a.cfg.RemoteTimeout, obs),
		apptx.NewPayUseCase(repo, methods, publisher, obs),
		apptx.NewRefundUseCase(repo, methods, publisher, obs),
		apptx.NewGetUseCase(repo, obs),
		apptx.NewHistoryUseCase(repo, obs),
		tokens,
	).Register(a.server)
	return nil
}

// Handler exposes the routed HTTP surface, for embedding or tests.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Start launches the broker consumers. Subscriptions are complete once New returns.
func (a *App) Start(ctx context.Context) {
	a.broker.Start(ctx)
}

// Run serves HTTP until ctx ends or the listener fails, then shuts down within ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	a.Start(ctx)

	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		shutdownErr := a.Shutdown(context.Background())
		return errors.Join(fmt.Errorf("app: listen %s: %w", a.cfg.HTTPAddr, err), shutdownErr)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.tel.System.Info("http_server_start", observability.F("addr", ln.Addr().String()))
		if err := a.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			a.tel.System.Error("http_server_error", observability.F("error", err.Error()))
			runErr = fmt.Errorf("app: serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops intake first, then drains: HTTP, broker, notifications, stores, telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("app: http shutdown: %w", err))
	} else {
		a.tel.System.Info("http_server_stopped")
	}
	errs = append(errs, a.closeResources(ctx))
	if err := errors.Join(errs...); err != nil {
		a.tel.System.Error("shutdown_incomplete", observability.F("error", err.Error()))
		errs = []error{err}
	}
	return errors.Join(append(errs, a.tel.Close(ctx))...)
}

func (a *App) closeResources(ctx context.Context) error {
	var errs []error
	if a.broker != nil {
		if err := a.broker.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.notifier != nil {
		done := make(chan struct{})
		go func() {
			a.notifier.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("app: low-stock notifications: %w", ctx.Err()))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
