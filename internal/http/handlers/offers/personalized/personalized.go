// Package personalized реализует HTTP-обработчик выдачи персональной подборки предложений.
//
// Handler принимает телефон пользователя, вызывает бизнес-логику подбора и
// возвращает подборку в предпочитаемом формате пользователя: готовое текстовое
// сообщение либо список свежих PDF-энкартов.
package personalized

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
	personservice "github.com/donaoferta/offers-aggregator/internal/services/personalization"
)

// Handler управляет HTTP-запросами на получение персональной подборки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики подбора предложений.
type Service interface {
	Build(ctx context.Context, phone string) (*personservice.Payload, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

type personalizedResponse struct {
	Success     bool                      `json:"success"`
	Format      string                    `json:"formato"`
	Message     string                    `json:"mensagem,omitempty"`
	Flyers      []*models.FlyerWithMarket `json:"encartes,omitempty"`
	TotalOffers int                       `json:"total_ofertas"`
}

type trialExpiredResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TrialExpired bool   `json:"trial_expirado"`
}

// ServeHTTP godoc
// @Summary Получить персональную подборку
// @Description Возвращает действующие предложения по супермаркетам пользователя в его предпочитаемом формате.
// @Tags Offers
// @Accept  json
// @Produce  json
// @Param request body models.DummyPersonalize true "Телефон пользователя"
// @Success 200 {object} map[string]any "Персональная подборка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при подборе"
// @Router /ofertas-personalizadas [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.offers.personalized"
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

	payload, err := h.service.Build(r.Context(), req.Phone)
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

	log.Info("personalized payload built",
		slog.String("format", payload.Format),
		slog.Int("offers", payload.TotalOffers))
	render.JSON(w, r, personalizedResponse{
		Success:     true,
		Format:      payload.Format,
		Message:     payload.Message,
		Flyers:      payload.Flyers,
		TotalOffers: payload.TotalOffers,
	})
}
