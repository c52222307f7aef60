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

func (m *RepoMock) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *RepoMock) ListServingSupermarkets(ctx context.Context, postalCode int64) ([]*models.Supermarket, error) {
	args := m.Called(ctx, postalCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Supermarket), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegistrationService_Register(t *testing.T) {
	markets := []*models.Supermarket{
		{UID: "1db0f4f4-0000-0000-0000-000000000001", Name: "Mercado Central", Region: "Centro"},
		{UID: "1db0f4f4-0000-0000-0000-000000000002", Name: "Super Econômico", Region: "Centro"},
	}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		req        models.DummyRegistration
		wantErr    error
		check      func(t *testing.T, res *RegistrationResult)
	}{
		{
			name: "успешная регистрация",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, "+5511999990000").
					Return(nil, sql.ErrNoRows).Once()
				r.On("ListServingSupermarkets", mock.Anything, int64(1310100)).
					Return(markets, nil).Once()
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Phone == "+5511999990000" &&
						u.PostalCode == 1310100 &&
						u.Plan == models.PlanTrial &&
						u.Active &&
						u.PreferredFormat == models.FormatText &&
						len(u.Supermarkets) == 2
				})).Return("uid-123", nil).Once()
			},
			req: models.DummyRegistration{Phone: "+5511999990000", Cep: "01310-100"},
			check: func(t *testing.T, res *RegistrationResult) {
				require.NotNil(t, res.User)
				assert.Equal(t, "uid-123", res.User.UID)
				assert.Len(t, res.Supermarkets, 2)
				assert.Equal(t, int64(1310100), res.PostalCode)
			},
		},
		{
			name: "пробный период заканчивается через 60 дней",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, mock.Anything).
					Return(nil, sql.ErrNoRows).Once()
				r.On("ListServingSupermarkets", mock.Anything, mock.Anything).
					Return(markets, nil).Once()
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					want := time.Now().AddDate(0, 0, 60)
					return u.TrialEndDate.Sub(want) < time.Minute &&
						want.Sub(u.TrialEndDate) < time.Minute
				})).Return("uid-456", nil).Once()
			},
			req: models.DummyRegistration{Phone: "+5511999990001", Cep: "01310100"},
			check: func(t *testing.T, res *RegistrationResult) {
				assert.Equal(t, models.PlanTrial, res.User.Plan)
			},
		},
		{
			name: "повторная регистрация возвращает существующего пользователя",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, "+5511999990000").
					Return(&models.User{UID: "uid-old", Phone: "+5511999990000"}, nil).Once()
			},
			req:     models.DummyRegistration{Phone: "+5511999990000", Cep: "01310-100"},
			wantErr: ErrUserAlreadyExists,
			check: func(t *testing.T, res *RegistrationResult) {
				require.NotNil(t, res.User)
				assert.Equal(t, "uid-old", res.User.UID)
			},
		},
		{
			name: "регион не обслуживается",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, mock.Anything).
					Return(nil, sql.ErrNoRows).Once()
				r.On("ListServingSupermarkets", mock.Anything, int64(99999999)).
					Return([]*models.Supermarket{}, nil).Once()
			},
			req:     models.DummyRegistration{Phone: "+5511999990002", Cep: "99999-999"},
			wantErr: ErrRegionNotCovered,
			check: func(t *testing.T, res *RegistrationResult) {
				assert.Equal(t, int64(99999999), res.PostalCode)
			},
		},
		{
			name: "CEP без цифр",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, mock.Anything).
					Return(nil, sql.ErrNoRows).Once()
			},
			req:     models.DummyRegistration{Phone: "+5511999990003", Cep: "abc"},
			wantErr: ErrInvalidPostalCode,
		},
		{
			name: "предпочитаемый формат сохраняется",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, mock.Anything).
					Return(nil, sql.ErrNoRows).Once()
				r.On("ListServingSupermarkets", mock.Anything, mock.Anything).
					Return(markets, nil).Once()
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.PreferredFormat == models.FormatPDF
				})).Return("uid-789", nil).Once()
			},
			req: models.DummyRegistration{Phone: "+5511999990004", Cep: "01310-100", PreferredFormat: models.FormatPDF},
		},
		{
			name: "ошибка хранилища при проверке телефона",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByPhone", mock.Anything, mock.Anything).
					Return(nil, errors.New("connection refused")).Once()
			},
			req:     models.DummyRegistration{Phone: "+5511999990005", Cep: "01310-100"},
			wantErr: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := NewRegistrationService(repo, newNoopLogger())

			tt.setupMocks(repo)

			res, err := svc.Register(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrUserAlreadyExists) ||
					errors.Is(tt.wantErr, ErrRegionNotCovered) ||
					errors.Is(tt.wantErr, ErrInvalidPostalCode) {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			} else {
				require.NoError(t, err)
			}
			if tt.check != nil {
				tt.check(t, res)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestParsePostalCode(t *testing.T) {
	tests := []struct {
		name    string
		cep     string
		want    int64
		wantErr bool
	}{
		{name: "с дефисом", cep: "01310-100", want: 1310100},
		{name: "только цифры", cep: "01310100", want: 1310100},
		{name: "с пробелами", cep: " 01310 100 ", want: 1310100},
		{name: "без цифр", cep: "sem-cep", wantErr: true},
		{name: "пустая строка", cep: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePostalCode(tt.cep)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
