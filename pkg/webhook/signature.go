// Package webhook signs and verifies webhook payloads with HMAC-SHA256.
//
// The signature covers "timestamp.payload", which binds each signature to
// the moment it was produced and lets verifiers reject stale deliveries.
// Three headers carry the result:
//
//	X-Webhook-Signature: hex-encoded HMAC-SHA256
//	X-Webhook-Timestamp: unix seconds used in the signature
//	X-Webhook-ID:        unique delivery ID, useful for idempotency
//
// The billing webhook endpoint verifies inbound payment-provider events
// with VerifySignature before any handler logic runs; SignPayload produces
// the matching header set for outbound deliveries and for exercising the
// verification path in tests and sandbox environments.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Header names used to transmit signature data.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"
)

// Verification tolerates this much clock drift between signer and verifier
// before a future-dated timestamp is rejected.
const maxClockSkew = time.Minute

var (
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
)

// SignatureHeaders holds the signature data carried alongside a webhook
// delivery.
type SignatureHeaders struct {
	Signature string
	Timestamp int64
	ID        string
}

// Headers returns the signature data keyed by wire header name, ready to be
// set on an outbound request.
func (s SignatureHeaders) Headers() map[string]string {
	return map[string]string{
		HeaderSignature: s.Signature,
		HeaderTimestamp: strconv.FormatInt(s.Timestamp, 10),
		HeaderID:        s.ID,
	}
}

// digest computes the hex-encoded HMAC-SHA256 over "timestamp.payload".
func digest(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload signs payload with the current time and a fresh delivery ID.
func SignPayload(secret string, payload []byte) (SignatureHeaders, error) {
	if secret == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	now := time.Now().Unix()
	return SignatureHeaders{
		Signature: digest(secret, now, payload),
		Timestamp: now,
		ID:        uuid.NewString(),
	}, nil
}

// VerifySignature checks that headers authenticate payload under secret.
// When maxAge is positive, timestamps older than maxAge or more than a
// minute in the future are rejected to close the replay window. Comparison
// is constant-time.
func VerifySignature(secret string, payload []byte, headers SignatureHeaders, maxAge time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	if headers.Signature == "" {
		return fmt.Errorf("%w: signature is missing", ErrInvalidConfiguration)
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(headers.Timestamp, 0))
		switch {
		case age > maxAge:
			return fmt.Errorf("%w: signature timestamp too old: %v", ErrInvalidConfiguration, age)
		case age < -maxClockSkew:
			return fmt.Errorf("%w: signature timestamp is in the future", ErrInvalidConfiguration)
		}
	}

	want := digest(secret, headers.Timestamp, payload)
	if !hmac.Equal([]byte(want), []byte(headers.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidConfiguration)
	}
	return nil
}

// HeadersFromRequest extracts signature data from an incoming HTTP request.
func HeadersFromRequest(r *http.Request) (SignatureHeaders, error) {
	headers := make(map[string]string, 3)
	for _, key := range []string{HeaderSignature, HeaderTimestamp, HeaderID} {
		if val := r.Header.Get(key); val != "" {
			headers[key] = val
		}
	}
	return ExtractSignatureHeaders(headers)
}

// ExtractSignatureHeaders extracts signature data from a header map. Keys
// are matched case-insensitively since HTTP headers carry no canonical
// casing guarantee across proxies and client libraries.
func ExtractSignatureHeaders(headers map[string]string) (SignatureHeaders, error) {
	lookup := func(name string) (string, bool) {
		for key, val := range headers {
			if strings.EqualFold(key, name) {
				return val, true
			}
		}
		return "", false
	}

	var sig SignatureHeaders
	sig.Signature, _ = lookup(HeaderSignature)

	if raw, ok := lookup(HeaderTimestamp); ok {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SignatureHeaders{}, fmt.Errorf("%w: invalid timestamp format", ErrInvalidConfiguration)
		}
		sig.Timestamp = ts
	}

	sig.ID, _ = lookup(HeaderID)

	if sig.Signature == "" || sig.Timestamp == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: missing required signature headers", ErrInvalidConfiguration)
	}
	return sig, nil
}
