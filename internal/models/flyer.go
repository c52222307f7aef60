package models

import "time"

// StoredFlyer представляет зарегистрированный PDF-энкарт супермаркета на
// конкретную дату. Инвариант: не более одной записи на пару
// (супермаркет, дата) — повторная регистрация за тот же день игнорируется.
type StoredFlyer struct {
	ID             int64     `json:"id"`
	SupermarketUID string    `json:"supermercado_id"` // Идентификатор супермаркета-владельца
	FlyerDate      time.Time `json:"data_encarte"`    // Календарная дата энкарта
	StorageURL     string    `json:"url_storage"`     // Адрес PDF в блоб-хранилище
	CreatedAt      time.Time `json:"created_at"`
}

// FlyerWithMarket расширяет StoredFlyer названием супермаркета для выдачи
// в персонализированном ответе формата pdf.
type FlyerWithMarket struct {
	StoredFlyer
	SupermarketName string `json:"supermercado_nome"`
}
