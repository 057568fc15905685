package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Err struct {
	HTTPStatusCode int               `json:"-"`
	StatusText     string            `json:"status_text"`
	ErrorText      string            `json:"error_text,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`

	err error
}

func (e *Err) Error() string {
	return e.ErrorText
}

func (e *Err) Unwrap() error {
	return e.err
}

// RenderErr writes e and aborts the chain. Internal errors are logged with the
// request id so the payload can be matched to the log line.
func RenderErr(ctx *gin.Context, e *Err) {
	e.RequestID = requestid.Get(ctx)

	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("internal server error",
			zap.String("request_id", e.RequestID),
			zap.String("path", ctx.FullPath()),
			zap.Error(e.err),
		)
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func newErr(status int, err error, text string) *Err {
	return &Err{
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
		ErrorText:      text,
		err:            err,
	}
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, err, err.Error())
}

func ErrNotFound(resource, key string, value interface{}) *Err {
	err := fmt.Errorf("%s with %s %v not found", resource, key, value)
	return newErr(http.StatusNotFound, err, err.Error())
}

func ErrWrongCredentials(err error) *Err {
	return newErr(http.StatusUnauthorized, err, "email or password is incorrect")
}

func ErrUnauthorized(err error) *Err {
	return newErr(http.StatusUnauthorized, err, err.Error())
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, err, err.Error())
}

func ErrConflict(err error) *Err {
	return newErr(http.StatusConflict, err, err.Error())
}

// ErrValidation reports per-field messages; fields maps a field name to the
// message shown beside it.
func ErrValidation(err error, fields map[string]string) *Err {
	e := newErr(http.StatusUnprocessableEntity, err, err.Error())
	e.Fields = fields
	return e
}

func ErrServiceUnavailable(err error) *Err {
	return newErr(http.StatusServiceUnavailable, err, err.Error())
}

// ErrIdentityUnavailable hides the store failure behind a fixed text.
func ErrIdentityUnavailable(err error) *Err {
	return newErr(http.StatusServiceUnavailable, err, "identity provider unavailable")
}

// ErrGatewayTimeout is used when the ledger did not answer in time. text is
// safe to show the donor.
func ErrGatewayTimeout(err error, text string) *Err {
	return newErr(http.StatusGatewayTimeout, err, text)
}

// ErrInternalServerError hides err from the client.
func ErrInternalServerError(err error) *Err {
	if err == nil {
		err = errors.New("unknown error")
	}
	return newErr(http.StatusInternalServerError, err, "")
}

// ErrLedger is a 500 whose text is the donor-facing message.
func ErrLedger(err error, text string) *Err {
	return newErr(http.StatusInternalServerError, err, text)
}
