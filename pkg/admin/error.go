package admin

import (
	"net/http"

	"github.com/SyndewTech/Oluso-sub010/pkg/logger"
)

// handlerWithError lets a route handler return an error instead of
// writing an error response itself, the same decorator shape
// stacklok-toolhive's pkg/api/errors.ErrorHandler uses around its
// chi routes.
type handlerWithError func(http.ResponseWriter, *http.Request) error

// statusError carries the HTTP status code an error should be reported
// with, so handlers can return a plain Go error and still control the
// response code the way httperr.Error does in the SAML stack.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func newStatusError(status int, msg string) error {
	return &statusError{status: status, msg: msg}
}

func errorHandler(fn handlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		if se, ok := err.(*statusError); ok {
			http.Error(w, se.msg, se.status)
			return
		}
		logger.Errorf("admin: internal error: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
