package google

import (
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// IsUnauthorized reports whether Google rejected the credentials
func IsUnauthorized(err error) bool {
	return hasCode(err, http.StatusUnauthorized)
}

// IsGrantRevoked reports whether a user's stored Google grant is no longer
// usable: the token endpoint answered invalid_grant, or an API call was
// rejected as unauthenticated.
func IsGrantRevoked(err error) bool {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant" {
		return true
	}
	return IsUnauthorized(err)
}

// retryAfter returns the Retry-After hint of a throttled response in seconds
func retryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusTooManyRequests || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil {
		return 0
	}
	return secs
}

func hasCode(err error, code int) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == code
	}
	return false
}
