package dto

import "github.com/qrave1/TaleRoom/internal/domain/apperr"

// ErrorResponse - тело ответа для ошибок ядра
type ErrorResponse struct {
	Error *apperr.Error `json:"error"`
}
