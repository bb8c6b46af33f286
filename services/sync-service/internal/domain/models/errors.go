package models

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("account credentials are not set")
	ErrUnknownDomain      = errors.New("unknown domain")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrMalformedResponse  = errors.New("malformed response")
)

// maxErrorBody предел длины тела ответа, сохраняемого в ошибке
const maxErrorBody = 300

// ErrorKind класс ошибки ввода-вывода
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindClient    ErrorKind = "client"
	KindServer    ErrorKind = "server"
	KindMalformed ErrorKind = "malformed"
)

// FetchError ошибка обращения к поставщику или приёмнику
type FetchError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

// NewStatusError создаёт ошибку для ответа с неуспешным статусом
func NewStatusError(op, endpoint string, status int, body []byte) *FetchError {
	return &FetchError{
		Op:         op,
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       TruncateBody(body),
	}
}

// TruncateBody обрезает тело ответа для логов и ошибок
func TruncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Endpoint, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s %s: failed", e.Op, e.Endpoint)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Kind классифицирует ошибку
func (e *FetchError) Kind() ErrorKind {
	switch {
	case errors.Is(e.Err, ErrMalformedResponse):
		return KindMalformed
	case e.StatusCode >= 500:
		return KindServer
	case e.StatusCode >= 400:
		return KindClient
	}
	return KindTransport
}

// KindOf возвращает класс ошибки или пустую строку для ошибок другого типа
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind()
	}
	return ""
}
