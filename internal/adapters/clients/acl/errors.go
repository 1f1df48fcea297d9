package acl

import (
	"errors"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MapHTTPError translates a client failure or a non-2xx response into a
// *domain.NetworkError. It returns nil for a 2xx response.
//
// Exhausted retries against 5xx responses keep the last status code so
// callers can tell an unreachable remote from a failing one.
func MapHTTPError(resp *http.Response, clientErr error, serviceName string) error {
	if clientErr != nil {
		var statusErr *clients.StatusError
		if errors.As(clientErr, &statusErr) {
			return &domain.NetworkError{Service: serviceName, StatusCode: statusErr.StatusCode, Cause: clientErr}
		}

		return domain.NewNetworkError(serviceName, clientErr)
	}

	if resp == nil {
		return domain.NewNetworkError(serviceName, errors.New("no response received"))
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	return domain.NewNetworkStatusError(serviceName, resp.StatusCode)
}
