package binder

import (
	"net/http"
)

// Query creates a query parameter binder function.
//
// It supports struct tags for custom parameter names:
//   - `query:"name"` - binds to query parameter "name"
//   - `query:"-"` - skips the field
//   - `query:"name,omitempty"` - same as query:"name" for parsing
//
// Supported types:
//   - Basic types: string, int, int64, uint, uint64, float32, float64, bool
//   - Slices of basic types for multi-value parameters
//   - Pointers for optional fields
//
// Example:
//
//	type invoiceListQuery struct {
//		CustomerType string `query:"customerType"`
//		CustomerID   string `query:"customerId"`
//		Limit        int    `query:"limit"`
//	}
//
//	var q invoiceListQuery
//	if err := binder.Query()(r, &q); err != nil {
//		// respond with 400 Bad Request
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}
