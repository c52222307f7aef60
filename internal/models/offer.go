package models

import "time"

// Offer представляет одно извлечённое предложение супермаркета.
// Инвариант: ValidFrom <= ValidUntil. Поле CreatedAt определяет политику
// хранения: записи старше порога удаляются при следующей загрузке,
// независимо от собственного окна валидности.
type Offer struct {
	ID             int64     `json:"id"`
	SupermarketUID string    `json:"supermercado_id"`      // Идентификатор супермаркета-владельца
	ProductName    string    `json:"nome_produto"`         // Название продукта
	Price          float64   `json:"preco"`                // Цена (неотрицательная)
	ValidFrom      time.Time `json:"data_inicio_validade"` // Начало окна валидности
	ValidUntil     time.Time `json:"data_fim_validade"`    // Конец окна валидности
	ExtractedAt    time.Time `json:"data_extracao"`        // Момент извлечения
	CreatedAt      time.Time `json:"created_at"`
}

// OfferWithMarket расширяет Offer названием и регионом супермаркета,
// полученными при выборке предложений для персонализации.
type OfferWithMarket struct {
	Offer
	SupermarketName   string `json:"supermercado_nome"`
	SupermarketRegion string `json:"supermercado_regiao"`
}

// DummyRawOffer используется для приёма извлечённых предложений из JSON-запроса.
// Поля не валидируются структурно: ошибки отдельных позиций (нечитаемая цена,
// отсутствующая дата окончания) обрабатываются поштучно в конвейере загрузки
// и не прерывают обработку всей партии.
type DummyRawOffer struct {
	ProductName string `json:"nome_produto"`
	Price       string `json:"preco"`
	ValidFrom   string `json:"data_inicio_validade,omitempty"` // Формат 2006-01-02, по умолчанию сегодня
	ValidUntil  string `json:"data_fim_validade"`              // Формат 2006-01-02, обязательное
}

// DummyIngest используется для приёма партии предложений на загрузку.
type DummyIngest struct {
	SupermarketUID string          `json:"supermercado_id" validate:"required,uuid"` // Идентификатор супермаркета
	Offers         []DummyRawOffer `json:"ofertas_extraidas"`                        // Партия извлечённых предложений
	PDFURL         string          `json:"url_pdf,omitempty"`                        // URL энкарта в хранилище (опционально)
}
