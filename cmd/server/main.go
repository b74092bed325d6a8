package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/httpapi"
	"storefront-be/internal/inventory"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/notify"
	"storefront-be/internal/order"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/voucher"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = listenAndServe
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	srv := newServer(cfg, database)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Close(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.limiter.Cleanup(ctx)

	addr := ":" + cfg.AppPort
	logger.L().Info("http server starting",
		zap.String("addr", addr),
		zap.String("env", cfg.AppEnv),
	)
	return startServerFunc(ctx, addr, srv)
}

// server owns the long-lived collaborators that need closing on shutdown.
type server struct {
	handler  http.Handler
	notifier *notify.Notifier
	kafka    *notify.KafkaPublisher
	limiter  *middleware.RateLimiter
}

func newServer(cfg *config.Config, database *sql.DB) *server {
	log := logger.L()

	tx := db.NewTxRunner(database, cfg.TxMaxRetries)

	stockRepo := inventory.NewRepository(database)
	voucherRepo := voucher.NewRepository(database)
	orderRepo := order.NewRepository(database)

	hub := notify.NewHub()
	publishers := notify.MultiPublisher{hub}

	var kafka *notify.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		k, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka bridge disabled", zap.Error(err))
		} else {
			kafka = k
			publishers = append(publishers, k)
		}
	}

	notifier := notify.NewNotifier(publishers, cfg.NotifyQueueSize)

	voucherSvc := voucher.NewService(voucherRepo, tx)
	orderSvc := order.NewService(orderRepo, stockRepo, voucherSvc, tx, notifier)

	limiter := middleware.NewRateLimiter(cfg.InternalKey)

	handler := httpapi.NewRouter(httpapi.Deps{
		Orders:        orderSvc,
		Vouchers:      voucherSvc,
		WS:            notify.NewWSHandler(hub, orderSvc, cfg.AllowOrigin),
		Webhook:       webhook.NewWebhookHandler(orderSvc, cfg.PaymentToken),
		Limiter:       limiter,
		JWTSecret:     cfg.JWTSecret,
		AllowedOrigin: cfg.AllowOrigin,
	})

	return &server{
		handler:  handler,
		notifier: notifier,
		kafka:    kafka,
		limiter:  limiter,
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close drains queued notifications before the Kafka client goes away.
func (s *server) Close(ctx context.Context) {
	if err := s.notifier.Close(ctx); err != nil {
		logger.L().Warn("notifier did not drain", zap.Error(err))
	}
	if s.kafka != nil {
		s.kafka.Close()
	}
}

func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
