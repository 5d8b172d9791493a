package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gamecontent-server/internal/models"

	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
)

// classifyError переводит ошибку вызова вендора в доменную таксономию.
// Классификация идёт только по кодам статуса и типам ошибок, не по тексту.
func classifyError(err error) *models.AppError {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if isTimeout(err) {
		return models.NewTimeoutError(err)
	}

	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return classifyStatus(apiErr.HTTPStatusCode, 0, err)
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return classifyStatus(reqErr.HTTPStatusCode, 0, err)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, 0, err)
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return models.NewUnavailableError(0, err)
	}
	return models.NewUnknownError("", err)
}

// classifyStatus сопоставляет HTTP-статус вендора виду ошибки.
func classifyStatus(status int, retryAfter time.Duration, cause error) *models.AppError {
	switch {
	case status == http.StatusTooManyRequests:
		return models.NewRateLimitError(retryAfter, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.NewInvalidCredentialError(cause)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusRequestEntityTooLarge:
		return models.NewInvalidRequestError(cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return models.NewTimeoutError(cause)
	// Модель снята с хостинга или ещё не развёрнута: следующая модель из списка может ответить.
	case status == http.StatusNotFound || status == http.StatusGone:
		return models.NewUnavailableError(retryAfter, cause)
	case status >= 500:
		return models.NewUnavailableError(retryAfter, cause)
	default:
		return models.NewUnknownError("", cause)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter понимает только форму в секундах, дату HTTP игнорирует.
func parseRetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// hfErrorBody - тело ошибки Hugging Face Inference API.
type hfErrorBody struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime *float64        `json:"estimated_time"`
}

// classifyHFResponse разбирает неуспешный ответ HF. Поле estimated_time
// означает холодный старт модели независимо от статуса.
func classifyHFResponse(status int, header http.Header, body []byte, cause error) *models.AppError {
	retryAfter := parseRetryAfter(header.Get("Retry-After"))

	var parsed hfErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.EstimatedTime != nil {
		wait := time.Duration(*parsed.EstimatedTime * float64(time.Second))
		if wait < time.Second {
			wait = time.Second
		}
		return models.NewUnavailableError(wait, cause)
	}
	return classifyStatus(status, retryAfter, cause)
}
