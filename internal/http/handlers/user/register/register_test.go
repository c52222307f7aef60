package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/donaoferta/offers-aggregator/internal/models"
	regservice "github.com/donaoferta/offers-aggregator/internal/services/registration"
)

// MockService реализует интерфейс register.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req models.DummyRegistration) (*regservice.RegistrationResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*regservice.RegistrationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRegisterHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация",
			body: `{"telefone":"+5511999990000","cep":"01310-100"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything).Return(&regservice.RegistrationResult{
					User: &models.User{
						UID:   "uid-123",
						Phone: "+5511999990000",
					},
					Supermarkets: []*models.Supermarket{
						{UID: "market-a", Name: "Mercado Central"},
					},
					PostalCode: 1310100,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"message":"Usuário cadastrado com sucesso!"`,
		},
		{
			name: "повторная регистрация",
			body: `{"telefone":"+5511999990000","cep":"01310-100"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything).Return(&regservice.RegistrationResult{
					User: &models.User{UID: "uid-old", Phone: "+5511999990000"},
				}, regservice.ErrUserAlreadyExists)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"message":"Usuário já cadastrado"`,
		},
		{
			name: "регион не обслуживается",
			body: `{"telefone":"+5511999990000","cep":"99999-999"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything).Return(&regservice.RegistrationResult{
					PostalCode: 99999999,
				}, regservice.ErrRegionNotCovered)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"message":"Região não coberta ainda","cep":99999999`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"telefone":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "отсутствует телефон",
			body:           `{"cep":"01310-100"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Phone is a required field`,
		},
		{
			name:           "недопустимый формат предложений",
			body:           `{"telefone":"+5511999990000","cep":"01310-100","formato_preferido":"audio"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PreferredFormat must be one of`,
		},
		{
			name: "ошибка сервиса регистрации",
			body: `{"telefone":"+5511999990000","cep":"01310-100"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"Erro interno do servidor"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/usuarios-whatsapp", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
