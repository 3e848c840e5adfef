package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxRequestAge is how old a signed interaction may be
const MaxRequestAge = 5 * time.Minute

var (
	ErrMissingHeaders   = errors.New("missing signature headers")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleRequest     = errors.New("request timestamp too old")
)

// Verifier checks that interaction requests were signed by Discord
type Verifier struct {
	publicKey ed25519.PublicKey
	now       func() time.Time
}

// NewVerifier parses the application's hex encoded Ed25519 public key
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid discord public key")
	}
	return &Verifier{publicKey: key, now: time.Now}, nil
}

// VerifyRequest verifies that a request is actually from Discord
func (v *Verifier) VerifyRequest(body []byte, signature, timestamp string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	if v.now().Sub(time.Unix(ts, 0)) > MaxRequestAge {
		return ErrStaleRequest
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	// Discord signs timestamp + body
	message := append([]byte(timestamp), body...)
	if !ed25519.Verify(v.publicKey, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// ExtractSignatureHeaders extracts signature and timestamp from request headers
func ExtractSignatureHeaders(headers map[string]string) (signature, timestamp string, err error) {
	signature = header(headers, "x-signature-ed25519")
	timestamp = header(headers, "x-signature-timestamp")
	if signature == "" || timestamp == "" {
		return "", "", ErrMissingHeaders
	}
	return signature, timestamp, nil
}

func header(headers map[string]string, key string) string {
	if value, ok := headers[key]; ok {
		return value
	}
	for k, value := range headers {
		if strings.EqualFold(k, key) {
			return value
		}
	}
	return ""
}
