package venue

import (
	"fmt"
	"net/http"
)

// GatewayError reports a failed venue API call or an unusable response.
type GatewayError struct {
	Op     string
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status != 0 {
		return fmt.Sprintf("venue %s: unexpected status %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	if e.Err == nil {
		return fmt.Sprintf("venue %s failed", e.Op)
	}

	return fmt.Sprintf("venue %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}
