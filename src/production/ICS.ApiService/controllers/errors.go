package controllers

import (
	"errors"
	"net/http"

	icssync "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Sync"
)

// statusFor maps engine errors to HTTP status codes. Anything that is not a
// validation failure is reported as a server error, store failures included.
func statusFor(err error) int {
	if errors.Is(err, icssync.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
