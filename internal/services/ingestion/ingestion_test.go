package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/donaoferta/offers-aggregator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSupermarket(ctx context.Context, uid string) (*models.Supermarket, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supermarket), args.Error(1)
}
func (m *RepoMock) DeleteStaleOffers(ctx context.Context, supermarketUID string, olderThan time.Time) (int, error) {
	args := m.Called(ctx, supermarketUID, olderThan)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) InsertOffers(ctx context.Context, offers []models.Offer) (int, error) {
	args := m.Called(ctx, offers)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) FlyerExists(ctx context.Context, supermarketUID string, flyerDate time.Time) (bool, error) {
	args := m.Called(ctx, supermarketUID, flyerDate)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) InsertFlyer(ctx context.Context, flyer models.StoredFlyer) (int64, error) {
	args := m.Called(ctx, flyer)
	return args.Get(0).(int64), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) ReleaseLock(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const marketUID = "7d9f78a0-0000-0000-0000-000000000001"

func siteMarket() *models.Supermarket {
	return &models.Supermarket{
		UID:            marketUID,
		Name:           "Mercado Central",
		Region:         "Centro",
		ExtractionMode: models.ExtractionModeSite,
	}
}

func pdfMarket() *models.Supermarket {
	m := siteMarket()
	m.ExtractionMode = models.ExtractionModePDF
	return m
}

// setupHappyPath настраивает кеш-промах, захват блокировки и очистку.
func setupHappyPath(r *RepoMock, c *CacheMock, market *models.Supermarket) {
	c.On("Get", "supermarket:"+marketUID, mock.Anything).Return(false, nil).Once()
	r.On("GetSupermarket", mock.Anything, marketUID).Return(market, nil).Once()
	c.On("Set", "supermarket:"+marketUID, market, supermarketCacheTTL).Return(nil).Once()
	c.On("AcquireLock", mock.Anything, "ingest:lock:"+marketUID, lockTTL).Return(true, nil).Once()
	c.On("ReleaseLock", mock.Anything, "ingest:lock:"+marketUID).Return(nil).Once()
	r.On("DeleteStaleOffers", mock.Anything, marketUID, mock.MatchedBy(func(cutoff time.Time) bool {
		want := time.Now().AddDate(0, 0, -retentionDays)
		return cutoff.Sub(want) < time.Minute && want.Sub(cutoff) < time.Minute
	})).Return(0, nil).Once()
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(dateLayout)
}

func TestIngestService_Process(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		req        models.DummyIngest
		wantErr    error
		check      func(t *testing.T, res *IngestResult)
	}{
		{
			name: "успешный приём пакета",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, siteMarket())
				r.On("InsertOffers", mock.Anything, mock.MatchedBy(func(offers []models.Offer) bool {
					return len(offers) == 2 &&
						offers[0].ProductName == "Arroz 5kg" &&
						offers[0].Price == 19.90 &&
						offers[1].ProductName == "Feijão 1kg"
				})).Return(2, nil).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				Offers: []models.DummyRawOffer{
					{ProductName: "Arroz 5kg", Price: "19.90", ValidUntil: futureDate(5)},
					{ProductName: "Feijão 1kg", Price: "8.50", ValidUntil: futureDate(5)},
				},
			},
			check: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, 2, res.Inserted)
				assert.Equal(t, 0, res.Skipped)
				assert.Equal(t, "Mercado Central", res.Supermarket.Name)
			},
		},
		{
			name: "некорректные позиции отбрасываются поштучно",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, siteMarket())
				r.On("InsertOffers", mock.Anything, mock.MatchedBy(func(offers []models.Offer) bool {
					return len(offers) == 1 && offers[0].ProductName == "Arroz 5kg"
				})).Return(1, nil).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				Offers: []models.DummyRawOffer{
					{ProductName: "Arroz 5kg", Price: "19.90", ValidUntil: futureDate(5)},
					{ProductName: "Sem preço", Price: "grátis", ValidUntil: futureDate(5)},
					{ProductName: "Preço negativo", Price: "-1.00", ValidUntil: futureDate(5)},
					{ProductName: "Sem validade", Price: "5.00"},
					{ProductName: "", Price: "5.00", ValidUntil: futureDate(5)},
				},
			},
			check: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, 1, res.Inserted)
				assert.Equal(t, 4, res.Skipped)
			},
		},
		{
			name: "пустой пакет проходит без ошибок",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, siteMarket())
				r.On("InsertOffers", mock.Anything, mock.MatchedBy(func(offers []models.Offer) bool {
					return len(offers) == 0
				})).Return(0, nil).Once()
			},
			req: models.DummyIngest{SupermarketUID: marketUID},
			check: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, 0, res.Inserted)
			},
		},
		{
			name: "супермаркет не найден",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, mock.Anything).Return(false, nil).Once()
				r.On("GetSupermarket", mock.Anything, marketUID).Return(nil, sql.ErrNoRows).Once()
			},
			req:     models.DummyIngest{SupermarketUID: marketUID},
			wantErr: ErrSupermarketNotFound,
		},
		{
			name: "приём уже идёт",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, mock.Anything).Return(false, nil).Once()
				r.On("GetSupermarket", mock.Anything, marketUID).Return(siteMarket(), nil).Once()
				c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				c.On("AcquireLock", mock.Anything, "ingest:lock:"+marketUID, lockTTL).Return(false, nil).Once()
			},
			req:     models.DummyIngest{SupermarketUID: marketUID},
			wantErr: ErrIngestionInProgress,
		},
		{
			name: "недоступная блокировка не останавливает приём",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()
				r.On("GetSupermarket", mock.Anything, marketUID).Return(siteMarket(), nil).Once()
				c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
				c.On("AcquireLock", mock.Anything, mock.Anything, lockTTL).Return(false, errors.New("redis down")).Once()
				r.On("DeleteStaleOffers", mock.Anything, marketUID, mock.Anything).Return(0, nil).Once()
				r.On("InsertOffers", mock.Anything, mock.Anything).Return(0, nil).Once()
			},
			req: models.DummyIngest{SupermarketUID: marketUID},
			check: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, 0, res.Inserted)
			},
		},
		{
			name: "ошибка очистки не останавливает приём",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, mock.Anything).Return(false, nil).Once()
				r.On("GetSupermarket", mock.Anything, marketUID).Return(siteMarket(), nil).Once()
				c.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				c.On("AcquireLock", mock.Anything, mock.Anything, lockTTL).Return(true, nil).Once()
				c.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil).Once()
				r.On("DeleteStaleOffers", mock.Anything, marketUID, mock.Anything).
					Return(0, errors.New("deadlock detected")).Once()
				r.On("InsertOffers", mock.Anything, mock.Anything).Return(1, nil).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				Offers: []models.DummyRawOffer{
					{ProductName: "Arroz 5kg", Price: "19.90", ValidUntil: futureDate(5)},
				},
			},
			check: func(t *testing.T, res *IngestResult) {
				assert.Equal(t, 1, res.Inserted)
			},
		},
		{
			name: "PDF-энкарт регистрируется один раз в день",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, pdfMarket())
				r.On("InsertOffers", mock.Anything, mock.Anything).Return(0, nil).Once()
				r.On("FlyerExists", mock.Anything, marketUID, mock.Anything).Return(false, nil).Once()
				r.On("InsertFlyer", mock.Anything, mock.MatchedBy(func(f models.StoredFlyer) bool {
					return f.SupermarketUID == marketUID &&
						f.StorageURL == "https://storage.example.com/encarte.pdf"
				})).Return(int64(1), nil).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				PDFURL:         "https://storage.example.com/encarte.pdf",
			},
		},
		{
			name: "повторный энкарт на ту же дату игнорируется",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, pdfMarket())
				r.On("InsertOffers", mock.Anything, mock.Anything).Return(0, nil).Once()
				r.On("FlyerExists", mock.Anything, marketUID, mock.Anything).Return(true, nil).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				PDFURL:         "https://storage.example.com/encarte.pdf",
			},
		},
		{
			name: "ссылка на PDF игнорируется для сайтового супермаркета",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, siteMarket())
				r.On("InsertOffers", mock.Anything, mock.Anything).Return(0, nil).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				PDFURL:         "https://storage.example.com/encarte.pdf",
			},
		},
		{
			name: "ошибка вставки возвращается наружу",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				setupHappyPath(r, c, siteMarket())
				r.On("InsertOffers", mock.Anything, mock.Anything).
					Return(0, errors.New("connection refused")).Once()
			},
			req: models.DummyIngest{
				SupermarketUID: marketUID,
				Offers: []models.DummyRawOffer{
					{ProductName: "Arroz 5kg", Price: "19.90", ValidUntil: futureDate(5)},
				},
			},
			wantErr: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := NewIngestService(repo, cache, newNoopLogger())

			tt.setupMocks(repo, cache)

			res, err := svc.Process(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrSupermarketNotFound) ||
					errors.Is(tt.wantErr, ErrIngestionInProgress) {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
			}
			if tt.check != nil {
				tt.check(t, res)
			}

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestIngestService_Process_CacheHitSkipsRepository(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := NewIngestService(repo, cache, newNoopLogger())

	cache.On("Get", "supermarket:"+marketUID, mock.Anything).
		Run(func(args mock.Arguments) {
			market := args.Get(1).(**models.Supermarket)
			*market = siteMarket()
		}).Return(true, nil).Once()
	cache.On("AcquireLock", mock.Anything, mock.Anything, lockTTL).Return(true, nil).Once()
	cache.On("ReleaseLock", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("DeleteStaleOffers", mock.Anything, marketUID, mock.Anything).Return(0, nil).Once()
	repo.On("InsertOffers", mock.Anything, mock.Anything).Return(0, nil).Once()

	res, err := svc.Process(context.Background(), models.DummyIngest{SupermarketUID: marketUID})
	require.NoError(t, err)
	assert.Equal(t, "Mercado Central", res.Supermarket.Name)

	repo.AssertNotCalled(t, "GetSupermarket", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}
