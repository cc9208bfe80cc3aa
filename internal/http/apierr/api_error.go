package apierr

import (
	"errors"
	"net/http"
	"strings"
	"time"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/MatheusCampagnolo/kargo/internal/apperr"
	"github.com/MatheusCampagnolo/kargo/pkg/validator"
	"github.com/MatheusCampagnolo/kargo/pkg/zerror"
)

const InternalServerErrorCode = "INTERNAL_SERVER_ERROR"

// ErrorResponse is the error response for the API.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`

	// StatusCode is the status code for the error response.
	StatusCode int `json:"-"`
}

// New maps err to the response returned to the client.
func New(err error) ErrorResponse {
	res := errorToErrorResponse(err)
	res.Timestamp = time.Now().UTC()
	res.Status = res.StatusCode
	return res
}

// InternalServerErr is the body for failures whose details are not exposed.
var InternalServerErr = ErrorResponse{
	Code:       InternalServerErrorCode,
	Message:    "an unexpected error occurred",
	StatusCode: http.StatusInternalServerError,
}

func errorToErrorResponse(err error) ErrorResponse {
	var validationErrs govalidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]string, len(validationErrs))
		for i, fe := range validationErrs {
			details[i] = fe.Field() + ": " + validator.ValidationErrorMessage(fe)
		}

		return ErrorResponse{
			Code:       apperr.ValidationErrorCode,
			Message:    strings.Join(details, ", "),
			StatusCode: http.StatusBadRequest,
		}
	}

	if zErr, ok := zerror.As(err); ok {
		return ErrorResponse{
			Code:       zErr.Code(),
			Message:    zErr.Msg(),
			StatusCode: ZErrorStatusToHTTPStatus(zErr.Status()),
		}
	}

	return InternalServerErr
}

func ZErrorStatusToHTTPStatus(status zerror.Status) int {
	switch status {
	case zerror.StatusUnauthorized:
		return http.StatusUnauthorized
	case zerror.StatusForbidden:
		return http.StatusForbidden
	case zerror.StatusNotFound:
		return http.StatusNotFound
	case zerror.StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case zerror.StatusConflict:
		return http.StatusConflict
	case zerror.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case zerror.StatusBadRequest:
		return http.StatusBadRequest
	case zerror.StatusValidationFailed:
		return http.StatusBadRequest
	case zerror.StatusUnknown, zerror.StatusInternalServerError:
		return http.StatusInternalServerError
	case zerror.StatusTimeout:
		return http.StatusGatewayTimeout
	case zerror.StatusNotImplemented:
		return http.StatusNotImplemented
	case zerror.StatusBadGateway:
		return http.StatusBadGateway
	case zerror.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
