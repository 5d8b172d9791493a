package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind - машиночитаемый вид ошибки, отдаётся клиенту в поле "error".
type ErrorKind string

const (
	KindConfiguration        ErrorKind = "configuration_error"
	KindRateLimit            ErrorKind = "rate_limit"
	KindTimeout              ErrorKind = "timeout"
	KindTransientUnavailable ErrorKind = "transient_unavailable"
	KindInvalidCredential    ErrorKind = "invalid_credential"
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindValidation           ErrorKind = "validation_error"
	KindNotFound             ErrorKind = "not_found"
	KindUnknown              ErrorKind = "unknown"
)

// AppError - единый тип доменной ошибки.
// Message и Hint безопасны для клиента; Err хранит исходную причину только для логов.
type AppError struct {
	Kind       ErrorKind
	Message    string
	Hint       string
	RetryAfter time.Duration
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is сравнивает ошибки по Kind, поэтому errors.Is(err, ErrTimeout) срабатывает
// для любого AppError с тем же видом.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// Retryable сообщает, имеет ли смысл повторить запрос без его изменения.
func (e *AppError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindTransientUnavailable:
		return true
	default:
		return false
	}
}

// Application-wide standard errors
var (
	ErrConfiguration     = &AppError{Kind: KindConfiguration, Message: "service is not configured"}
	ErrRateLimited       = &AppError{Kind: KindRateLimit, Message: "rate limit exceeded"}
	ErrTimeout           = &AppError{Kind: KindTimeout, Message: "request timed out"}
	ErrUnavailable       = &AppError{Kind: KindTransientUnavailable, Message: "vendor temporarily unavailable"}
	ErrInvalidCredential = &AppError{Kind: KindInvalidCredential, Message: "vendor rejected the credential"}
	ErrInvalidRequest    = &AppError{Kind: KindInvalidRequest, Message: "vendor rejected the request"}
	ErrValidation        = &AppError{Kind: KindValidation, Message: "invalid input data"}
	ErrNotFound          = &AppError{Kind: KindNotFound, Message: "resource not found"}
	ErrUnknown           = &AppError{Kind: KindUnknown, Message: "generation failed"}
)

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewConfigurationError - отсутствует обязательная настройка (обычно ключ вендора).
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Kind:    KindConfiguration,
		Message: message,
		Hint:    "set the missing credential in the server environment and restart",
	}
}

func NewRateLimitError(retryAfter time.Duration, cause error) *AppError {
	if retryAfter <= 0 {
		retryAfter = 60 * time.Second
	}
	return &AppError{
		Kind:       KindRateLimit,
		Message:    "vendor rate limit exceeded",
		Hint:       "wait before sending more requests or reduce batch size",
		RetryAfter: retryAfter,
		Err:        cause,
	}
}

func NewTimeoutError(cause error) *AppError {
	return &AppError{
		Kind:       KindTimeout,
		Message:    "vendor call timed out",
		Hint:       "try again, shorter prompts finish faster",
		RetryAfter: 5 * time.Second,
		Err:        cause,
	}
}

// NewUnavailableError - холодный старт модели или перегрузка вендора.
func NewUnavailableError(retryAfter time.Duration, cause error) *AppError {
	if retryAfter <= 0 {
		retryAfter = 20 * time.Second
	}
	return &AppError{
		Kind:       KindTransientUnavailable,
		Message:    "vendor model is loading or overloaded",
		Hint:       "the model is warming up, retry in a few seconds",
		RetryAfter: retryAfter,
		Err:        cause,
	}
}

func NewInvalidCredentialError(cause error) *AppError {
	return &AppError{
		Kind:    KindInvalidCredential,
		Message: "vendor rejected the configured credential",
		Hint:    "check that the API key is valid and has access to the model",
		Err:     cause,
	}
}

func NewInvalidRequestError(cause error) *AppError {
	return &AppError{
		Kind:    KindInvalidRequest,
		Message: "vendor rejected the request parameters",
		Hint:    "adjust the prompt or generation options",
		Err:     cause,
	}
}

func NewUnknownError(message string, cause error) *AppError {
	if message == "" {
		message = ErrUnknown.Message
	}
	return &AppError{Kind: KindUnknown, Message: message, Err: cause}
}

// AsAppError извлекает AppError из цепочки. Любая другая ошибка превращается в unknown.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewUnknownError("", err)
}
