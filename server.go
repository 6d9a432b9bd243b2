package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThanawawEikQ/dark-vista-shop/catalog"
	"github.com/ThanawawEikQ/dark-vista-shop/config"
	"github.com/ThanawawEikQ/dark-vista-shop/handlers"
	"github.com/ThanawawEikQ/dark-vista-shop/logging"
	"github.com/ThanawawEikQ/dark-vista-shop/repository"
	"github.com/ThanawawEikQ/dark-vista-shop/services"
	"github.com/ThanawawEikQ/dark-vista-shop/views"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func loadConfig(path, addr string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app is the wired storefront. close releases what newApp opened.
type app struct {
	handler  http.Handler
	sessions services.SessionService
	checkout *services.CheckoutService
	log      *zap.Logger
	close    func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	products, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	pR, err := repository.NewProductRepository(products)
	if err != nil {
		return nil, err
	}

	closers := []func(){}
	var sR repository.SessionRepository
	switch cfg.Session.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
		defer cncl()
		sR, err = repository.NewRedisSessionRepository(pingCtx, rdb, cfg.GetSessionTTL(), logger)
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis is not working: %w", err)
		}
		closers = append(closers, func() { rdb.Close() })
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	default:
		sR = repository.NewMemorySessionRepository(cfg.GetSessionTTL(), logger, nil)
	}

	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, err
	}

	checkout := services.NewCheckoutService(sR, services.CheckoutParams{
		PaymentDelay:  cfg.GetPaymentDelay(),
		RedirectDelay: cfg.GetRedirectDelay(),
		TaxRate:       cfg.GetTaxRate(),
		Currency:      cfg.GetCurrency(),
	}, logger)
	closers = append([]func(){checkout.Close}, closers...)

	sessions := services.NewSessionService(sR, logger)
	hp := handlers.HandlerParams{
		PrdService:      services.NewProductService(pR),
		CrtService:      services.NewCartService(pR, sR, logger),
		CheckoutService: checkout,
		AdmService:      services.NewAdminService(pR, sR, logger),
		SessService:     sessions,
		Renderer:        renderer,
		Logger:          logger,
		Currency:        cfg.GetCurrency(),
		SessionTTL:      cfg.GetSessionTTL(),
		SecureCookie:    cfg.Session.SecureCookie,
	}

	return &app{
		handler:  handlers.NewRouter(handlers.NewHandler(hp)),
		sessions: sessions,
		checkout: checkout,
		log:      logger,
		close: func() {
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

// sweep drops expired sessions every interval until ctx is done.
func (a *app) sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := a.sessions.SweepExpired(ctx); err == nil && n > 0 {
				a.log.Debug("sessions swept", zap.Int("removed", n))
			}
		}
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return run(ctx, srv, a, cfg, logger)
}

// run serves until ctx is cancelled or the server fails, then shuts down.
func run(ctx context.Context, srv *http.Server, a *app, cfg *config.Config, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.sweep(gctx, cfg.GetSweepInterval())
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		a.checkout.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
