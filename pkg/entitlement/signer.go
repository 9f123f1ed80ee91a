package entitlement

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// TokenSigner produces signed tokens from entitlement claims. The service
// does not care how tokens are encoded as long as clients can verify them.
type TokenSigner interface {
	Sign(claims map[string]any) (string, error)
}

// HMACSigner signs claims with HMAC-SHA256 over their canonical JSON form.
// The token is base64url(claimsJSON + "." + digest); claims stay readable
// by the holder while the digest pins them to the shared secret.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner returns a signer for the given shared secret.
func NewHMACSigner(secret string) (*HMACSigner, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &HMACSigner{secret: []byte(secret)}, nil
}

func (s *HMACSigner) Sign(claims map[string]any) (string, error) {
	serialized, err := canonicalJSON(claims)
	if err != nil {
		return "", fmt.Errorf("entitlement: sign claims: %w", err)
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(serialized)
	digest := mac.Sum(nil)

	token := make([]byte, 0, len(serialized)+1+len(digest))
	token = append(token, serialized...)
	token = append(token, '.')
	token = append(token, digest...)
	return base64.URLEncoding.EncodeToString(token), nil
}

// VerifyToken checks a token's signature against the secret and returns the
// embedded claims. Expired tokens are rejected when they carry an
// "expires_at" claim.
func VerifyToken(token, secret string) (map[string]any, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	// Claims JSON may itself contain dots, so the separator is located
	// relative to the fixed-size digest at the end.
	if len(raw) < sha256.Size+2 {
		return nil, ErrInvalidToken
	}
	sep := len(raw) - sha256.Size - 1
	if raw[sep] != '.' {
		return nil, ErrInvalidToken
	}
	serialized, digest := raw[:sep], raw[sep+1:]

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(serialized)
	if subtle.ConstantTimeCompare(mac.Sum(nil), digest) != 1 {
		return nil, ErrSignatureInvalid
	}

	var claims map[string]any
	if err := json.Unmarshal(serialized, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if expiresAt, ok := claims["expires_at"].(string); ok {
		ts, err := time.Parse(time.RFC3339Nano, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: bad expires_at", ErrInvalidToken)
		}
		if !time.Now().Before(ts) {
			return nil, ErrTokenExpired
		}
	}
	return claims, nil
}

// canonicalJSON renders claims deterministically: encoding/json emits map
// keys in sorted order and the encoder is kept compact with no HTML escaping
// so signatures remain stable across processes.
func canonicalJSON(claims map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(claims); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
