// Package services содержит бизнес-логику регистрации пользователей WhatsApp-рассылки.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

// Продолжительность пробного периода для новых пользователей.
const trialDays = 60

var (
	// ErrUserAlreadyExists возвращается, когда телефон уже зарегистрирован.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrRegionNotCovered возвращается, когда ни один супермаркет не обслуживает CEP.
	ErrRegionNotCovered = errors.New("region not covered")
	// ErrInvalidPostalCode возвращается, когда CEP не содержит цифр.
	ErrInvalidPostalCode = errors.New("invalid postal code")
)

// RegistrationRepository определяет методы для работы с пользователями и супермаркетами в хранилище.
type RegistrationRepository interface {
	// GetUserByPhone возвращает пользователя по номеру телефона.
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	// RegisterUser добавляет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// ListServingSupermarkets возвращает супермаркеты, обслуживающие CEP.
	ListServingSupermarkets(ctx context.Context, postalCode int64) ([]*models.Supermarket, error)
}

// RegistrationResult содержит результат регистрации пользователя.
type RegistrationResult struct {
	User         *models.User
	Supermarkets []*models.Supermarket
	PostalCode   int64
}

// RegistrationService реализует бизнес-логику регистрации пользователей.
type RegistrationService struct {
	repo RegistrationRepository
	log  *slog.Logger
}

// NewRegistrationService создает новый экземпляр RegistrationService.
func NewRegistrationService(repo RegistrationRepository, log *slog.Logger) *RegistrationService {
	return &RegistrationService{
		repo: repo,
		log:  log,
	}
}

// Register регистрирует нового пользователя, подбирая супермаркеты по его CEP.
// Повторная регистрация возвращает существующего пользователя вместе с ErrUserAlreadyExists.
func (s *RegistrationService) Register(ctx context.Context, req models.DummyRegistration) (*RegistrationResult, error) {
	existing, err := s.repo.GetUserByPhone(ctx, req.Phone)
	if err == nil {
		s.log.Info("phone already registered", slog.String("uid", existing.UID))
		return &RegistrationResult{User: existing}, ErrUserAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	postalCode, err := parsePostalCode(req.Cep)
	if err != nil {
		return nil, ErrInvalidPostalCode
	}

	markets, err := s.repo.ListServingSupermarkets(ctx, postalCode)
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return &RegistrationResult{PostalCode: postalCode}, ErrRegionNotCovered
	}

	uids := make([]string, 0, len(markets))
	for _, m := range markets {
		uids = append(uids, m.UID)
	}

	format := req.PreferredFormat
	if format == "" {
		format = models.FormatText
	}
	var taxID *string
	if req.TaxID != "" {
		taxID = &req.TaxID
	}

	user := models.User{
		Phone:           req.Phone,
		PostalCode:      postalCode,
		TaxID:           taxID,
		Plan:            models.PlanTrial,
		TrialEndDate:    time.Now().AddDate(0, 0, trialDays),
		Active:          true,
		PreferredFormat: format,
		Supermarkets:    uids,
		CreatedAt:       time.Now(),
	}

	uid, err := s.repo.RegisterUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.UID = uid

	s.log.Info("registered new user",
		slog.String("uid", uid),
		slog.Int64("cep", postalCode),
		slog.Int("supermarkets", len(markets)))

	return &RegistrationResult{
		User:         &user,
		Supermarkets: markets,
		PostalCode:   postalCode,
	}, nil
}

// parsePostalCode извлекает цифры из CEP и приводит его к числу.
func parsePostalCode(cep string) (int64, error) {
	var b strings.Builder
	for _, r := range cep {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no digits in postal code %q", cep)
	}
	return strconv.ParseInt(b.String(), 10, 64)
}
