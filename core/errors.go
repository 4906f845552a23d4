package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorCodeForbidden         = "GOOGLE_FORBIDDEN"
	ErrorCodeConfigMissing     = "GOOGLE_CONFIG_MISSING"
	ErrorCodeNotConnected      = "GOOGLE_NOT_CONNECTED"
	ErrorCodeReconnectRequired = "GOOGLE_RECONNECT_REQUIRED"
	ErrorCodeExchangeFailed    = "GOOGLE_EXCHANGE_FAILED"
	ErrorCodeRefreshFailed     = "GOOGLE_REFRESH_FAILED"
	ErrorCodeAPIError          = "GOOGLE_API_ERROR"
	ErrorCodeBadInput          = "GOOGLE_BAD_INPUT"
	ErrorCodeInternal          = "GOOGLE_INTERNAL_ERROR"
)

func forbiddenError(message string) *goerrors.Error {
	return newIntegrationError(message, goerrors.CategoryAuthz, ErrorCodeForbidden)
}

func configMissingError(service GoogleService) *goerrors.Error {
	return newIntegrationError(
		"oauth client is not configured for "+string(service),
		goerrors.CategoryValidation,
		ErrorCodeConfigMissing,
	)
}

func notConnectedError(service GoogleService) *goerrors.Error {
	return newIntegrationError(
		"no token found for "+string(service)+", please reconnect",
		goerrors.CategoryNotFound,
		ErrorCodeNotConnected,
	)
}

func reconnectRequiredError(service GoogleService, reason string) *goerrors.Error {
	message := string(service) + " authorization is no longer valid, please reconnect"
	if strings.TrimSpace(reason) != "" {
		message += ": " + strings.TrimSpace(reason)
	}
	return newIntegrationError(message, goerrors.CategoryAuth, ErrorCodeReconnectRequired)
}

func exchangeFailedError(cause error) *goerrors.Error {
	wrapped := goerrors.Wrap(cause, goerrors.CategoryExternal, "token exchange failed").
		WithTextCode(ErrorCodeExchangeFailed)
	wrapped.Code = http.StatusBadGateway
	return wrapped
}

func refreshFailedError(cause error) *goerrors.Error {
	wrapped := goerrors.Wrap(cause, goerrors.CategoryExternal, "token refresh failed").
		WithTextCode(ErrorCodeRefreshFailed)
	wrapped.Code = http.StatusBadGateway
	return wrapped
}

// integrationErrorMapper normalizes anything crossing the service boundary
// into a go-errors envelope with an HTTP status and text code.
func integrationErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureIntegrationErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrTokenNotFound):
		return newIntegrationError(err.Error(), goerrors.CategoryNotFound, ErrorCodeNotConnected)
	case errors.Is(err, ErrClientConfigNotFound):
		return newIntegrationError(err.Error(), goerrors.CategoryValidation, ErrorCodeConfigMissing)
	case errors.Is(err, ErrInvalidService),
		errors.Is(err, ErrInvalidSheetMappingKind),
		errors.Is(err, ErrInvalidSheetMappingTransition):
		return newIntegrationError(err.Error(), goerrors.CategoryBadInput, ErrorCodeBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "invalid_grant"), strings.Contains(msg, "reconnect"):
		return newIntegrationError(err.Error(), goerrors.CategoryAuth, ErrorCodeReconnectRequired)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newIntegrationError(err.Error(), goerrors.CategoryBadInput, ErrorCodeBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureIntegrationErrorEnvelope(mapped)
}

func newIntegrationError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureIntegrationErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureIntegrationErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = integrationHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultIntegrationTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultIntegrationTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorCodeBadInput
	case goerrors.CategoryNotFound:
		return ErrorCodeNotConnected
	case goerrors.CategoryAuth:
		return ErrorCodeReconnectRequired
	case goerrors.CategoryAuthz:
		return ErrorCodeForbidden
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return ErrorCodeAPIError
	default:
		return ErrorCodeInternal
	}
}

func integrationHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MapError normalizes err into the taxonomy envelope. Transport layers use
// it for errors raised outside Service methods, which map internally.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return integrationErrorMapper(err)
}

// HTTPStatus exposes the mapped status for transport handlers.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

// TextCode returns the taxonomy code carried by err, or ErrorCodeInternal.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && strings.TrimSpace(richErr.TextCode) != "" {
		return richErr.TextCode
	}
	return ErrorCodeInternal
}
