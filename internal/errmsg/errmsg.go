package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Message
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)

	ErrRequestIDInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request id is invalid"),
	)

	ErrForbidden = NewHTTPError(
		http.StatusForbidden,
		errors.New("access denied"),
	)
)

var (
	ErrUserAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("user already exists"),
	)

	ErrUserCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("user credentials invalid"),
	)
)

var (
	ErrAccountNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("account not found"),
	)

	ErrProductNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("product not found"),
	)

	ErrOrderNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("order not found"),
	)

	ErrOrderAlreadyRefunded = NewHTTPError(
		http.StatusConflict,
		errors.New("order already refunded"),
	)
)

var (
	ErrReviewNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("review not found"),
	)

	ErrReviewAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("product already reviewed"),
	)

	ErrReviewNotOwned = NewHTTPError(
		http.StatusForbidden,
		errors.New("review belongs to another user"),
	)
)
