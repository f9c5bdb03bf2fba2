package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an error that knows the HTTP status it is reported with.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code int, err error) *Error {
	return &Error{Code: code, Err: err}
}

// FailureResponse writes err as a failed response. Errors without a status
// are reported as 500.
func FailureResponse(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	var statusErr *Error
	if errors.As(err, &statusErr) {
		code = statusErr.Code
	}
	_ = c.Error(err)
	ErrorResponse(c, code, err.Error())
}
