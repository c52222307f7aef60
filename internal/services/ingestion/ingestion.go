// Package services содержит бизнес-логику приёма извлечённых предложений супермаркетов.
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

	"github.com/donaoferta/offers-aggregator/internal/lib/sl"
	"github.com/donaoferta/offers-aggregator/internal/models"
)

const (
	// Срок хранения предложений до автоматической очистки.
	retentionDays = 7
	// Время жизни блокировки на приём данных одного супермаркета.
	lockTTL = 2 * time.Minute
	// Время жизни кеша карточки супермаркета.
	supermarketCacheTTL = 10 * time.Minute

	dateLayout = "2006-01-02"
)

var (
	// ErrSupermarketNotFound возвращается, когда супермаркет не зарегистрирован.
	ErrSupermarketNotFound = errors.New("supermarket not found")
	// ErrIngestionInProgress возвращается, когда приём для супермаркета уже идёт.
	ErrIngestionInProgress = errors.New("ingestion already in progress")
)

// IngestRepository определяет методы для работы с предложениями и энкартами в хранилище.
type IngestRepository interface {
	// GetSupermarket возвращает супермаркет по UID.
	GetSupermarket(ctx context.Context, uid string) (*models.Supermarket, error)
	// DeleteStaleOffers удаляет устаревшие предложения супермаркета.
	DeleteStaleOffers(ctx context.Context, supermarketUID string, olderThan time.Time) (int, error)
	// InsertOffers добавляет пакет предложений и возвращает количество вставленных.
	InsertOffers(ctx context.Context, offers []models.Offer) (int, error)
	// FlyerExists проверяет наличие энкарта на дату.
	FlyerExists(ctx context.Context, supermarketUID string, flyerDate time.Time) (bool, error)
	// InsertFlyer добавляет новый энкарт и возвращает его ID.
	InsertFlyer(ctx context.Context, flyer models.StoredFlyer) (int64, error)
}

// Cache описывает методы кеширования и распределённой блокировки.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// AcquireLock пытается захватить блокировку с заданным TTL.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// ReleaseLock снимает блокировку.
	ReleaseLock(ctx context.Context, key string) error
}

// IngestResult содержит итог обработки одного пакета предложений.
type IngestResult struct {
	Inserted    int
	Skipped     int
	Deleted     int
	Supermarket *models.Supermarket
}

// IngestService реализует бизнес-логику приёма предложений.
type IngestService struct {
	repo  IngestRepository
	cache Cache
	log   *slog.Logger
}

// NewIngestService создает новый экземпляр IngestService.
func NewIngestService(repo IngestRepository, cache Cache, log *slog.Logger) *IngestService {
	return &IngestService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Process принимает пакет извлечённых предложений: очищает устаревшие записи,
// отбрасывает некорректные позиции поштучно и сохраняет остальные.
func (s *IngestService) Process(ctx context.Context, req models.DummyIngest) (*IngestResult, error) {
	market, err := s.resolveSupermarket(ctx, req.SupermarketUID)
	if err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("ingest:lock:%s", market.UID)
	acquired, err := s.cache.AcquireLock(ctx, lockKey, lockTTL)
	if err != nil {
		s.log.Warn("lock service unavailable, processing without serialization", sl.Err(err))
	} else {
		if !acquired {
			return nil, ErrIngestionInProgress
		}
		defer func() {
			if err := s.cache.ReleaseLock(ctx, lockKey); err != nil {
				s.log.Warn("failed to release ingest lock", slog.String("key", lockKey), sl.Err(err))
			}
		}()
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteStaleOffers(ctx, market.UID, cutoff)
	if err != nil {
		s.log.Warn("failed to delete stale offers", slog.String("uid", market.UID), sl.Err(err))
	} else if deleted > 0 {
		s.log.Info("deleted stale offers", slog.String("uid", market.UID), slog.Int("count", deleted))
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offers, skipped := s.mapOffers(market.UID, req.Offers, now, today)

	inserted, err := s.repo.InsertOffers(ctx, offers)
	if err != nil {
		return nil, err
	}

	s.log.Info("processed offer batch",
		slog.String("supermarket", market.Name),
		slog.Int("inserted", inserted),
		slog.Int("skipped", skipped))

	if req.PDFURL != "" && market.ExtractionMode == models.ExtractionModePDF {
		s.registerFlyer(ctx, market.UID, today, req.PDFURL)
	}

	return &IngestResult{
		Inserted:    inserted,
		Skipped:     skipped,
		Deleted:     deleted,
		Supermarket: market,
	}, nil
}

// resolveSupermarket возвращает карточку супермаркета, используя кеш или репозиторий.
func (s *IngestService) resolveSupermarket(ctx context.Context, uid string) (*models.Supermarket, error) {
	var market *models.Supermarket
	cacheKey := fmt.Sprintf("supermarket:%s", uid)
	found, err := s.cache.Get(cacheKey, &market)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found && market != nil {
		return market, nil
	}

	market, err = s.repo.GetSupermarket(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSupermarketNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(cacheKey, market, supermarketCacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return market, nil
}

// mapOffers переводит сырые позиции в модель хранения, отбрасывая некорректные.
func (s *IngestService) mapOffers(supermarketUID string, raw []models.DummyRawOffer, now, today time.Time) ([]models.Offer, int) {
	offers := make([]models.Offer, 0, len(raw))
	var skipped int
	for _, item := range raw {
		offer, err := s.mapOffer(supermarketUID, item, now, today)
		if err != nil {
			skipped++
			s.log.Warn("skipped invalid offer", slog.String("product", item.ProductName), sl.Err(err))
			continue
		}
		offers = append(offers, offer)
	}
	return offers, skipped
}

func (s *IngestService) mapOffer(supermarketUID string, item models.DummyRawOffer, now, today time.Time) (models.Offer, error) {
	if strings.TrimSpace(item.ProductName) == "" {
		return models.Offer{}, fmt.Errorf("empty product name")
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(item.Price), 64)
	if err != nil {
		return models.Offer{}, fmt.Errorf("invalid price %q: %w", item.Price, err)
	}
	if price < 0 {
		return models.Offer{}, fmt.Errorf("negative price %q", item.Price)
	}

	if item.ValidUntil == "" {
		return models.Offer{}, fmt.Errorf("missing valid until date")
	}
	validUntil, err := time.Parse(dateLayout, item.ValidUntil)
	if err != nil {
		return models.Offer{}, fmt.Errorf("invalid valid until date %q: %w", item.ValidUntil, err)
	}

	validFrom := today
	if item.ValidFrom != "" {
		validFrom, err = time.Parse(dateLayout, item.ValidFrom)
		if err != nil {
			return models.Offer{}, fmt.Errorf("invalid valid from date %q: %w", item.ValidFrom, err)
		}
	}
	if validFrom.After(validUntil) {
		return models.Offer{}, fmt.Errorf("valid from %q after valid until %q", item.ValidFrom, item.ValidUntil)
	}

	return models.Offer{
		SupermarketUID: supermarketUID,
		ProductName:    strings.TrimSpace(item.ProductName),
		Price:          price,
		ValidFrom:      validFrom,
		ValidUntil:     validUntil,
		ExtractedAt:    now,
	}, nil
}

// registerFlyer сохраняет ссылку на PDF-энкарт, если на эту дату его ещё нет.
func (s *IngestService) registerFlyer(ctx context.Context, supermarketUID string, flyerDate time.Time, storageURL string) {
	exists, err := s.repo.FlyerExists(ctx, supermarketUID, flyerDate)
	if err != nil {
		s.log.Warn("failed to check flyer existence", slog.String("uid", supermarketUID), sl.Err(err))
		return
	}
	if exists {
		return
	}

	id, err := s.repo.InsertFlyer(ctx, models.StoredFlyer{
		SupermarketUID: supermarketUID,
		FlyerDate:      flyerDate,
		StorageURL:     storageURL,
	})
	if err != nil {
		s.log.Warn("failed to register flyer", slog.String("uid", supermarketUID), sl.Err(err))
		return
	}
	s.log.Info("registered flyer", slog.Int64("id", id), slog.String("uid", supermarketUID))
}
