// Package dispatch реализует HTTP-обработчик отправки подборки в очередь доставки.
//
// Handler собирает персональную подборку пользователя и публикует её в очередь
// доставки WhatsApp. Бизнес-отказы подбора возвращаются так же, как при прямом
// запросе подборки.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/donaoferta/offers-aggregator/internal/http/response"
	"github.com/donaoferta/offers-aggregator/internal/lib/sl"
	"github.com/donaoferta/offers-aggregator/internal/models"
	deliveryservice "github.com/donaoferta/offers-aggregator/internal/services/delivery"
	personservice "github.com/donaoferta/offers-aggregator/internal/services/personalization"
)

// Handler управляет HTTP-запросами на отправку подборки в очередь доставки.
type Handler struct {
	log             *slog.Logger
	personalization PersonalizationService
	delivery        DeliveryService
	validate        *validator.Validate
}

// PersonalizationService описывает интерфейс бизнес-логики подбора предложений.
type PersonalizationService interface {
	Build(ctx context.Context, phone string) (*personservice.Payload, error)
}

// DeliveryService описывает интерфейс постановки подборки в очередь доставки.
type DeliveryService interface {
	Send(msg deliveryservice.DeliveryMessage) error
}

// New создает новый Handler с переданными логгером и сервисами.
func New(log *slog.Logger, personalization PersonalizationService, delivery DeliveryService) *Handler {
	return &Handler{
		log:             log,
		personalization: personalization,
		delivery:        delivery,
		validate:        validator.New(),
	}
}

type dispatchResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Format      string `json:"formato"`
	TotalOffers int    `json:"total_ofertas"`
}

type trialExpiredResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TrialExpired bool   `json:"trial_expirado"`
}

// ServeHTTP godoc
// @Summary Отправить подборку в очередь доставки
// @Description Собирает персональную подборку пользователя и публикует её в очередь доставки WhatsApp.
// @Tags Offers
// @Accept  json
// @Produce  json
// @Param request body models.DummyPersonalize true "Телефон пользователя"
// @Success 200 {object} map[string]any "Подборка поставлена в очередь"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при отправке"
// @Router /enviar-ofertas [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.offers.dispatch"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPersonalize
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	payload, err := h.personalization.Build(r.Context(), req.Phone)
	switch {
	case errors.Is(err, personservice.ErrUserNotFound):
		log.Info("active user not found")
		render.JSON(w, r, response.Failure("Usuário não encontrado ou inativo"))
		return
	case errors.Is(err, personservice.ErrTrialExpired):
		log.Info("trial expired")
		render.JSON(w, r, trialExpiredResponse{
			Success:      false,
			Message:      "Trial expirado - necessário assinar um plano",
			TrialExpired: true,
		})
		return
	case errors.Is(err, personservice.ErrNoOffersAvailable):
		log.Info("no offers available")
		render.JSON(w, r, response.Failure("Nenhuma oferta disponível no momento"))
		return
	case errors.Is(err, personservice.ErrUnsupportedFormat):
		log.Info("unsupported delivery format")
		render.JSON(w, r, response.Failure("Formato de oferta não suportado"))
		return
	case err != nil:
		log.Error("failed to build personalized payload", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Erro interno do servidor"))
		return
	}

	err = h.delivery.Send(deliveryservice.DeliveryMessage{
		Phone:       payload.User.Phone,
		Format:      payload.Format,
		Message:     payload.Message,
		Flyers:      payload.Flyers,
		TotalOffers: payload.TotalOffers,
	})
	if err != nil {
		log.Error("failed to queue delivery", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Erro interno do servidor"))
		return
	}

	log.Info("delivery queued",
		slog.String("format", payload.Format),
		slog.Int("offers", payload.TotalOffers))
	render.JSON(w, r, dispatchResponse{
		Success:     true,
		Message:     "Ofertas enviadas para a fila de entrega",
		Format:      payload.Format,
		TotalOffers: payload.TotalOffers,
	})
}
