package models

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Success           bool      `json:"success"`
	Error             ErrorKind `json:"error"`
	Message           string    `json:"message"`
	Hint              string    `json:"hint,omitempty"`
	RetryAfterSeconds int       `json:"retryAfterSeconds,omitempty"`
}

// NewErrorResponse строит тело ответа из доменной ошибки. Причина (Err) не попадает в ответ.
func NewErrorResponse(err *AppError) ErrorResponse {
	return ErrorResponse{
		Success:           false,
		Error:             err.Kind,
		Message:           err.Message,
		Hint:              err.Hint,
		RetryAfterSeconds: int(err.RetryAfter.Seconds()),
	}
}
