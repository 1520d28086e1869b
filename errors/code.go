package errors

import (
	"net/http"
)

func BadRequest() ErrorEnricher   { return WithCode(http.StatusBadRequest) }
func Unauthorized() ErrorEnricher { return WithCode(http.StatusUnauthorized) }
func Forbidden() ErrorEnricher    { return WithCode(http.StatusForbidden) }
func NotFound() ErrorEnricher     { return WithCode(http.StatusNotFound) }
func Conflict() ErrorEnricher     { return WithCode(http.StatusConflict) }

// Code extracts the HTTP status of an error, falling back to DefaultCode.
func Code(err error) int {
	if err, ok := err.(Error); ok {
		return err.Code()
	}
	return DefaultCode
}
