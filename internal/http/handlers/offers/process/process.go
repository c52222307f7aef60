// Package process реализует HTTP-обработчик приёма извлечённых предложений супермаркета.
//
// Handler принимает пакет предложений от экстрактора, валидирует идентификатор
// супермаркета и передаёт пакет в бизнес-логику приёма. Некорректные позиции
// отбрасываются поштучно, не прерывая обработку пакета.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/donaoferta/offers-aggregator/internal/http/response"
	"github.com/donaoferta/offers-aggregator/internal/lib/sl"
	"github.com/donaoferta/offers-aggregator/internal/models"
	ingestservice "github.com/donaoferta/offers-aggregator/internal/services/ingestion"
)

// Handler управляет HTTP-запросами на приём предложений.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики приёма предложений.
type Service interface {
	Process(ctx context.Context, req models.DummyIngest) (*ingestservice.IngestResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

type processResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Inserted    int    `json:"ofertas_inseridas"`
	Supermarket string `json:"supermercado"`
}

// ServeHTTP godoc
// @Summary Принять пакет предложений
// @Description Принимает извлечённые предложения супермаркета, очищает устаревшие записи и сохраняет новые.
// @Tags Offers
// @Accept  json
// @Produce  json
// @Param request body models.DummyIngest true "Пакет извлечённых предложений"
// @Success 200 {object} map[string]any "Итог обработки пакета"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при обработке"
// @Router /processar-ofertas [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.offers.process"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyIngest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded",
		slog.String("supermarket", req.SupermarketUID),
		slog.Int("offers", len(req.Offers)))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Process(r.Context(), req)
	switch {
	case errors.Is(err, ingestservice.ErrSupermarketNotFound):
		log.Info("supermarket not found", slog.String("uid", req.SupermarketUID))
		render.JSON(w, r, response.Failure("Supermercado não encontrado"))
		return
	case errors.Is(err, ingestservice.ErrIngestionInProgress):
		log.Info("ingestion already in progress", slog.String("uid", req.SupermarketUID))
		render.JSON(w, r, response.Failure("Processamento já em andamento para este supermercado"))
		return
	case err != nil:
		log.Error("failed to process offers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Erro interno do servidor"))
		return
	}

	log.Info("offer batch processed",
		slog.Int("inserted", res.Inserted),
		slog.Int("skipped", res.Skipped))
	render.JSON(w, r, processResponse{
		Success:     true,
		Message:     fmt.Sprintf("%d ofertas processadas para %s", res.Inserted, res.Supermarket.Name),
		Inserted:    res.Inserted,
		Supermarket: res.Supermarket.Name,
	})
}
