package featuregate

import (
	"fmt"
	"net/http"
	"strings"
)

// RequireOption customizes the Error produced by a failed gate check.
type RequireOption func(*Error)

// WithErrorCode overrides the error code reported on failure.
func WithErrorCode(code string) RequireOption {
	return func(e *Error) {
		if code != "" {
			e.Code = code
		}
	}
}

// WithMessage overrides the human-readable failure message.
func WithMessage(message string) RequireOption {
	return func(e *Error) {
		if message != "" {
			e.Message = message
		}
	}
}

// RequireEntitlement checks that the named feature flag is enabled in the
// given flag set. It returns nil when the flag holds a truthy value and an
// *Error carrying the missing flag otherwise.
func RequireEntitlement(flags map[string]any, flag string, opts ...RequireOption) error {
	if truthy(flags[flag]) {
		return nil
	}

	gateErr := &Error{
		Code:    CodeEntitlementRequired,
		Message: fmt.Sprintf("Entitlement '%s' is required.", flag),
		Status:  http.StatusForbidden,
		Detail:  map[string]any{"missing_entitlement": flag},
	}
	for _, opt := range opts {
		opt(gateErr)
	}
	return gateErr
}

// truthy mirrors entitlement.Payload.HasFlag so a flag reads the same
// whether checked through the payload or through a raw flag map.
func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return false
	}
}
