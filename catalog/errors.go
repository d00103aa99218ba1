package catalog

import (
	"fmt"
	"net/http"
)

// StatusError is a catalog response the caller could not continue from.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: catalog returned %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
}

// CheckStatus turns any status other than 200 into a *StatusError.
func CheckStatus(endpoint string, status int) error {
	if status == http.StatusOK {
		return nil
	}
	return &StatusError{Endpoint: endpoint, Status: status}
}
