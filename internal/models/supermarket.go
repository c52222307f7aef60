// Package models содержит доменные модели системы рассылки предложений:
// супермаркеты, пользователей, предложения и зарегистрированные PDF-энкарты.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Режимы извлечения предложений супермаркета.
const (
	ExtractionModeSite = "site" // Предложения извлекаются со страницы сайта
	ExtractionModePDF  = "pdf"  // Предложения извлекаются из PDF-энкарта
)

// Supermarket представляет супермаркет с диапазоном обслуживаемых почтовых индексов.
// Инвариант: RangeStart <= RangeEnd, диапазон включительный.
type Supermarket struct {
	UID            string    `json:"id"`                 // Уникальный идентификатор супермаркета
	Name           string    `json:"nome"`               // Отображаемое название
	Region         string    `json:"regiao"`             // Метка региона
	RangeStart     int64     `json:"cep_faixa_inicial"`  // Начало диапазона почтовых индексов
	RangeEnd       int64     `json:"cep_faixa_final"`    // Конец диапазона почтовых индексов
	ExtractionMode string    `json:"tipo_extracao"`      // Режим извлечения: site или pdf
	CreatedAt      time.Time `json:"created_at"`
}
