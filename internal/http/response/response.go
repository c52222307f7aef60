// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Бизнес-отказы возвращаются
// с success=false и человеко‑читаемым сообщением, инфраструктурные сбои —
// с полем error.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Fail описывает бизнес-отказ: запрос корректен, но операция не выполнена.
type Fail struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Região não coberta ainda"`
}

// ErrorResponse описывает инфраструктурный сбой сервера.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"Erro interno do servidor"`
}

// Failure возвращает бизнес-отказ с переданным сообщением.
func Failure(msg string) Fail {
	return Fail{
		Success: false,
		Message: msg,
	}
}

// Error возвращает ErrorResponse с переданным текстом сбоя.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   msg,
	}
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Success: false,
		Error:   strings.Join(errsMsgs, ", "),
	}
}
