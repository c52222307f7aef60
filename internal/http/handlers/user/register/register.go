// Package register реализует HTTP-обработчик регистрации пользователей WhatsApp-рассылки.
//
// Handler принимает JSON-запрос с телефоном и CEP, валидирует его, вызывает
// бизнес-логику регистрации и возвращает созданного пользователя вместе со списком
// обслуживающих супермаркетов. Повторная регистрация и необслуживаемый регион
// возвращаются как бизнес-отказы с success=false.
package register

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
	regservice "github.com/donaoferta/offers-aggregator/internal/services/registration"
)

// Handler управляет HTTP-запросами на регистрацию пользователей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, req models.DummyRegistration) (*regservice.RegistrationResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

type registerResponse struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	User         *models.User          `json:"usuario,omitempty"`
	Supermarkets []*models.Supermarket `json:"supermercados_disponiveis,omitempty"`
	Cep          int64                 `json:"cep,omitempty"`
}

// ServeHTTP godoc
// @Summary Зарегистрировать пользователя
// @Description Регистрирует пользователя по телефону и CEP, подбирая супермаркеты региона.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body models.DummyRegistration true "Данные регистрации"
// @Success 200 {object} map[string]any "Результат регистрации"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации"
// @Router /usuarios-whatsapp [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyRegistration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("phone", req.Phone))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Register(r.Context(), req)
	switch {
	case errors.Is(err, regservice.ErrUserAlreadyExists):
		log.Info("phone already registered")
		render.JSON(w, r, registerResponse{
			Success: false,
			Message: "Usuário já cadastrado",
			User:    res.User,
		})
		return
	case errors.Is(err, regservice.ErrRegionNotCovered):
		log.Info("region not covered", slog.Int64("cep", res.PostalCode))
		render.JSON(w, r, registerResponse{
			Success: false,
			Message: "Região não coberta ainda",
			Cep:     res.PostalCode,
		})
		return
	case errors.Is(err, regservice.ErrInvalidPostalCode):
		log.Error("invalid postal code", slog.String("cep", req.Cep))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("CEP inválido"))
		return
	case err != nil:
		log.Error("failed to register user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("Erro interno do servidor"))
		return
	}

	log.Info("user registered", slog.String("uid", res.User.UID))
	render.JSON(w, r, registerResponse{
		Success:      true,
		Message:      "Usuário cadastrado com sucesso!",
		User:         res.User,
		Supermarkets: res.Supermarkets,
	})
}
