// Package webhooks receives billing provider events: svix-style signature
// verification, duplicate-delivery suppression, and event dispatch.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	secretPrefix = "whsec_"

	// DefaultTolerance is the maximum accepted webhook age.
	DefaultTolerance = 5 * time.Minute

	// maxFutureSkew tolerates provider/server clock drift.
	maxFutureSkew = time.Minute
)

// VerificationError describes a rejected webhook delivery.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "webhook verification failed: " + e.Reason
}

// IsVerificationError checks if an error is a webhook signature rejection.
func IsVerificationError(err error) bool {
	var verr *VerificationError

	return errors.As(err, &verr)
}

// Verifier checks svix-style webhook signatures: HMAC SHA-256 over
// "<id>.<timestamp>.<body>" with the base64-decoded secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
}

// NewVerifier parses a "whsec_<base64-key>" secret.
func NewVerifier(secret string) (*Verifier, error) {
	if !strings.HasPrefix(secret, secretPrefix) {
		return nil, fmt.Errorf("invalid webhook secret format (must start with %s)", secretPrefix)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret encoding: %w", err)
	}

	return &Verifier{key: key, tolerance: DefaultTolerance}, nil
}

// WithTolerance overrides the maximum accepted webhook age.
func (v *Verifier) WithTolerance(tolerance time.Duration) *Verifier {
	v.tolerance = tolerance

	return v
}

// Verify checks the signature and timestamp of one delivery. The header
// values arrive as svix-id, svix-timestamp, and svix-signature.
func (v *Verifier) Verify(body []byte, id, timestamp, signature string, now time.Time) error {
	if id == "" || timestamp == "" || signature == "" {
		return &VerificationError{Reason: "missing required signature headers (svix-id, svix-timestamp, svix-signature)"}
	}

	version, sig, found := strings.Cut(signature, ",")
	if !found || version != "v1" || sig == "" {
		return &VerificationError{Reason: "invalid signature format (expected v1,<base64-signature>)"}
	}

	given, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return &VerificationError{Reason: "invalid signature encoding"}
	}

	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)

	if !hmac.Equal(given, mac.Sum(nil)) {
		return &VerificationError{Reason: "signature mismatch"}
	}

	sent, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return &VerificationError{Reason: "invalid timestamp"}
	}

	age := now.Sub(time.Unix(sent, 0))

	if age > v.tolerance {
		return &VerificationError{Reason: fmt.Sprintf("timestamp too old (%s > %s)", age.Round(time.Second), v.tolerance)}
	}

	if age < -maxFutureSkew {
		return &VerificationError{Reason: "timestamp too far in the future"}
	}

	return nil
}

// Sign computes the signature headers for a body, for tests and outbound
// delivery simulation.
func (v *Verifier) Sign(body []byte, id string, at time.Time) (timestamp, signature string) {
	ts := strconv.FormatInt(at.Unix(), 10)

	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", id, ts)
	mac.Write(body)

	return ts, "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
