package models

import "time"

// Планы подписки и форматы доставки предложений.
const (
	PlanTrial = "trial" // Пробный план, назначается при регистрации

	FormatText = "texto" // Доставка в виде текстового сообщения
	FormatPDF  = "pdf"   // Доставка в виде ссылок на PDF-энкарты
)

// User представляет зарегистрированного пользователя WhatsApp-рассылки.
// Поле Supermarkets — снимок идентификаторов супермаркетов региона,
// вычисленный один раз при регистрации и не пересчитываемый автоматически.
type User struct {
	UID             string    `json:"id"`                       // Уникальный идентификатор пользователя
	Phone           string    `json:"telefone_whatsapp"`        // Номер WhatsApp (уникальный)
	PostalCode      int64     `json:"cep"`                      // Почтовый индекс (только цифры)
	TaxID           *string   `json:"cpf,omitempty"`            // CPF (опционально)
	Plan            string    `json:"plano"`                    // План подписки
	TrialEndDate    time.Time `json:"data_fim_trial"`           // Дата истечения пробного периода
	Active          bool      `json:"ativo"`                    // Флаг активности
	PreferredFormat string    `json:"formato_oferta_preferido"` // Предпочитаемый формат: texto или pdf
	Supermarkets    []string  `json:"supermercados_preferidos"` // Снимок идентификаторов супермаркетов
	CreatedAt       time.Time `json:"created_at"`
}

// DummyRegistration используется для приёма данных регистрации из JSON-запроса,
// прежде чем конвертировать их в User. Поле Cep приходит строкой и может
// содержать разделители ("02010-000"), нецифровые символы отбрасываются.
type DummyRegistration struct {
	Phone           string `json:"telefone" validate:"required"`                             // Номер WhatsApp
	Cep             string `json:"cep" validate:"required"`                                  // Почтовый индекс
	TaxID           string `json:"cpf,omitempty" validate:"omitempty"`                       // CPF (опционально)
	PreferredFormat string `json:"formato_preferido,omitempty" validate:"omitempty,oneof=texto pdf"` // Формат доставки
}

// DummyPersonalize используется для приёма запроса персонализированных предложений.
type DummyPersonalize struct {
	Phone string `json:"telefone_usuario" validate:"required"` // Номер WhatsApp пользователя
}
