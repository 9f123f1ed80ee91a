// Package binder provides type-safe HTTP request data binding.
//
// The binder package offers utilities for binding HTTP request data to Go
// structs. It supports JSON request bodies and URL query parameters, the two
// request surfaces the Shelfmark API exposes.
//
// # Key Features
//
//   - Type-safe binding of HTTP request data to structs
//   - Strict JSON decoding: unknown fields and trailing data are rejected
//   - Request body size limits (default 1MB for JSON)
//   - Support for optional fields using pointers
//   - Multi-value and comma-separated query parameters bound to slices
//
// # Basic Usage
//
//	// Define a request struct with binding tags
//	type checkoutRequest struct {
//	    PlanKey         string            `json:"planKey"`
//	    BillingInterval string            `json:"billingInterval"`
//	    SeatQuantity    int               `json:"seatQuantity"`
//	    Metadata        map[string]string `json:"metadata"`
//	}
//
//	func (h *handler) createCheckout(w http.ResponseWriter, r *http.Request) {
//	    var req checkoutRequest
//	    if err := binder.JSON()(r, &req); err != nil {
//	        http.Error(w, err.Error(), http.StatusBadRequest)
//	        return
//	    }
//	    // req is populated from the JSON body
//	}
//
// # Available Binders
//
// The package provides the following binder functions:
//
//   - JSON(): Binds JSON request bodies to structs
//   - Query(): Binds URL query parameters to structs
//
// # Error Handling
//
// The package defines several error variables for common binding failures:
//
//   - ErrUnsupportedMediaType: Content type doesn't match expected type
//   - ErrInvalidJSON: Failed to parse JSON request body
//   - ErrInvalidQuery: Failed to parse query parameters
//   - ErrMissingContentType: Missing Content-Type header
//
// All errors wrap one of these sentinels, so handlers can map binding
// failures to 400 responses with errors.Is.
package binder
