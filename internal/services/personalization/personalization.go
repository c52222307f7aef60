// Package services содержит бизнес-логику подбора персональных предложений для пользователя.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

const (
	// Максимум предложений в одной подборке.
	maxOffers = 20
	// Максимум предложений на один супермаркет в текстовом сообщении.
	maxOffersPerMarket = 5
	// Максимум энкартов в подборке формата pdf.
	maxFlyers = 3
)

var (
	// ErrUserNotFound возвращается, когда активный пользователь с таким телефоном не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrTrialExpired возвращается, когда пробный период пользователя истёк.
	ErrTrialExpired = errors.New("trial period expired")
	// ErrNoOffersAvailable возвращается, когда действующих предложений нет.
	ErrNoOffersAvailable = errors.New("no offers available")
	// ErrUnsupportedFormat возвращается при неизвестном формате доставки.
	ErrUnsupportedFormat = errors.New("unsupported delivery format")
)

// PersonalizationRepository определяет методы чтения данных для подборки.
type PersonalizationRepository interface {
	// GetActiveUserByPhone возвращает активного пользователя по телефону.
	GetActiveUserByPhone(ctx context.Context, phone string) (*models.User, error)
	// ListValidOffers возвращает действующие предложения по супермаркетам пользователя.
	ListValidOffers(ctx context.Context, supermarketUIDs []string, today time.Time, limit int) ([]*models.OfferWithMarket, error)
	// ListLatestFlyers возвращает свежие энкарты по супермаркетам пользователя.
	ListLatestFlyers(ctx context.Context, supermarketUIDs []string, limit int) ([]*models.FlyerWithMarket, error)
}

// Payload содержит персональную подборку, готовую к доставке.
type Payload struct {
	User        *models.User
	Format      string
	Message     string
	Flyers      []*models.FlyerWithMarket
	TotalOffers int
}

// PersonalizationService реализует бизнес-логику подбора предложений.
type PersonalizationService struct {
	repo PersonalizationRepository
	log  *slog.Logger
}

// NewPersonalizationService создает новый экземпляр PersonalizationService.
func NewPersonalizationService(repo PersonalizationRepository, log *slog.Logger) *PersonalizationService {
	return &PersonalizationService{
		repo: repo,
		log:  log,
	}
}

// Build собирает персональную подборку для пользователя в его предпочитаемом формате.
func (s *PersonalizationService) Build(ctx context.Context, phone string) (*Payload, error) {
	user, err := s.repo.GetActiveUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if user.Plan == models.PlanTrial && time.Now().After(user.TrialEndDate) {
		return nil, ErrTrialExpired
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offers, err := s.repo.ListValidOffers(ctx, user.Supermarkets, today, maxOffers)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return nil, ErrNoOffersAvailable
	}

	payload := &Payload{
		User:        user,
		Format:      user.PreferredFormat,
		TotalOffers: len(offers),
	}

	switch user.PreferredFormat {
	case models.FormatText:
		payload.Message = renderTextMessage(offers)
	case models.FormatPDF:
		flyers, err := s.repo.ListLatestFlyers(ctx, user.Supermarkets, maxFlyers)
		if err != nil {
			return nil, err
		}
		payload.Flyers = flyers
	default:
		return nil, ErrUnsupportedFormat
	}

	s.log.Info("built personalized payload",
		slog.String("uid", user.UID),
		slog.String("format", payload.Format),
		slog.Int("offers", payload.TotalOffers))

	return payload, nil
}
