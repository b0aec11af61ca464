package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shaiso/Deck/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeStepNotFound    ErrorCode = "STEP_NOT_FOUND"
	ErrCodeDeckNotFound    ErrorCode = "DECK_NOT_FOUND"
	ErrCodeVersionNotFound ErrorCode = "DECK_VERSION_NOT_FOUND"
	ErrCodeInvalidVersion  ErrorCode = "INVALID_VERSION"
	ErrCodeStoreDisabled   ErrorCode = "STORE_DISABLED"
	ErrCodeCorruptDeck     ErrorCode = "CORRUPT_DECK"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Accepted отправляет ответ 202 для запущенной асинхронной операции.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// InvalidRequest отправляет 400 для неразборчивого тела запроса.
func InvalidRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, message)
}

// InvalidVersion отправляет 400 для некорректного номера версии deck.
func InvalidVersion(w http.ResponseWriter, raw string) {
	Error(w, http.StatusBadRequest, ErrCodeInvalidVersion, fmt.Sprintf("invalid version %q", raw))
}

// StepNotFound отправляет 404 для шага, которого нет в deck.
func StepNotFound(w http.ResponseWriter, id string) {
	Error(w, http.StatusNotFound, ErrCodeStepNotFound, fmt.Sprintf("step %q not found", id))
}

// StoreDisabled отправляет 503: хранилище decks не подключено.
func StoreDisabled(w http.ResponseWriter) {
	Error(w, http.StatusServiceUnavailable, ErrCodeStoreDisabled, "deck storage is not configured")
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleStoreError преобразует ошибку хранилища decks в HTTP ответ.
// version == 0 означает запрос последней версии.
func HandleStoreError(w http.ResponseWriter, logger *slog.Logger, err error, name string, version int) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, repo.ErrNotFound) && version > 0:
		Error(w, http.StatusNotFound, ErrCodeVersionNotFound, fmt.Sprintf("deck %q has no version %d", name, version))
	case errors.Is(err, repo.ErrNotFound):
		Error(w, http.StatusNotFound, ErrCodeDeckNotFound, fmt.Sprintf("deck %q not found", name))
	case errors.Is(err, repo.ErrInvalidManifest):
		logger.Error("stored deck is corrupt", "deck", name, "version", version, "error", err)
		Error(w, http.StatusInternalServerError, ErrCodeCorruptDeck, fmt.Sprintf("stored deck %q is corrupt", name))
	default:
		InternalError(w, logger, err)
	}
	return true
}
