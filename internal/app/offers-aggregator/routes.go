// Package offersaggregator предоставляет маршруты для основного приложения.
package offersaggregator

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/donaoferta/offers-aggregator/internal/http/handlers/health"
	"github.com/donaoferta/offers-aggregator/internal/http/handlers/offers/dispatch"
	"github.com/donaoferta/offers-aggregator/internal/http/handlers/offers/personalized"
	"github.com/donaoferta/offers-aggregator/internal/http/handlers/offers/process"
	"github.com/donaoferta/offers-aggregator/internal/http/handlers/user/register"
	"github.com/donaoferta/offers-aggregator/internal/http/middlewarectx"
	deliveryservice "github.com/donaoferta/offers-aggregator/internal/services/delivery"
	ingestservice "github.com/donaoferta/offers-aggregator/internal/services/ingestion"
	personservice "github.com/donaoferta/offers-aggregator/internal/services/personalization"
	regservice "github.com/donaoferta/offers-aggregator/internal/services/registration"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	registrationService *regservice.RegistrationService,
	ingestService *ingestservice.IngestService,
	personalizationService *personservice.PersonalizationService,
	deliveryService *deliveryservice.DeliveryService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middlewarectx.RateLimitMiddleware(logger))

	r.Post("/usuarios-whatsapp", register.New(logger, registrationService).ServeHTTP)
	r.Post("/processar-ofertas", process.New(logger, ingestService).ServeHTTP)
	r.Post("/ofertas-personalizadas", personalized.New(logger, personalizationService).ServeHTTP)
	r.Post("/enviar-ofertas", dispatch.New(logger, personalizationService, deliveryService).ServeHTTP)

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
