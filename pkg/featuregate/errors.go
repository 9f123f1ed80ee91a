package featuregate

import "net/http"

// Error codes attached to gating failures. Clients branch on the code, the
// message is for humans.
const (
	CodeEntitlementRequired  = "entitlement_required"
	CodeStorageQuotaExceeded = "storage_quota_exceeded"
)

// Error is a gating failure that maps directly onto an HTTP response.
// Status carries the suggested response code and Detail the machine-readable
// context (e.g. which entitlement was missing).
type Error struct {
	Code    string
	Message string
	Status  int
	Detail  map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status the failure should be served with,
// defaulting to 403 Forbidden when unset.
func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusForbidden
	}
	return e.Status
}

// Payload renders the response body for the failure: the error code and
// message with all detail fields flattened alongside them.
func (e *Error) Payload() map[string]any {
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
	}
	for key, value := range e.Detail {
		payload[key] = value
	}
	return payload
}
