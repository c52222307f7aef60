package offersaggregator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/donaoferta/offers-aggregator/internal/cache"
	"github.com/donaoferta/offers-aggregator/internal/config"
	"github.com/donaoferta/offers-aggregator/internal/lib/rabbitmq"
	"github.com/donaoferta/offers-aggregator/internal/migrations"
	deliveryservice "github.com/donaoferta/offers-aggregator/internal/services/delivery"
	ingestservice "github.com/donaoferta/offers-aggregator/internal/services/ingestion"
	personservice "github.com/donaoferta/offers-aggregator/internal/services/personalization"
	regservice "github.com/donaoferta/offers-aggregator/internal/services/registration"
	"github.com/donaoferta/offers-aggregator/internal/storage"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	amqp   *amqp.Connection
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	amqpConn, err := rabbitmq.Connect(cfg.RabbitMQConnection, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	amqpChannel, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetDeliveryQueues())
	if err != nil {
		return nil, err
	}

	registrationService := regservice.NewRegistrationService(db, logger)
	ingestService := ingestservice.NewIngestService(db, cacheRedis, logger)
	personalizationService := personservice.NewPersonalizationService(db, logger)
	deliveryService := deliveryservice.NewDeliveryService(rabbitmq.NewChannelPublisher(amqpChannel), logger)

	router := chi.NewRouter()

	RegisterRoutes(router, logger,
		registrationService, ingestService, personalizationService, deliveryService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   amqpConn,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		a.amqp.Close()
		return err
	}
}
