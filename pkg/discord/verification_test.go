package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRequest(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	v, err := NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	body := []byte(`{"type":1}`)
	sign := func(ts string, b []byte) string {
		return hex.EncodeToString(ed25519.Sign(priv, append([]byte(ts), b...)))
	}
	fresh := strconv.FormatInt(now.Unix()-10, 10)
	stale := strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10)

	tests := []struct {
		name      string
		signature string
		timestamp string
		want      error
	}{
		{name: "valid", signature: sign(fresh, body), timestamp: fresh},
		{name: "tampered body", signature: sign(fresh, []byte(`{"type":2}`)), timestamp: fresh, want: ErrInvalidSignature},
		{name: "not hex", signature: "zz", timestamp: fresh, want: ErrInvalidSignature},
		{name: "stale", signature: sign(stale, body), timestamp: stale, want: ErrStaleRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.VerifyRequest(body, tt.signature, tt.timestamp)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.ErrorContains(t, v.VerifyRequest(body, sign(fresh, body), "abc"), "invalid timestamp")
}

func TestNewVerifier_BadKey(t *testing.T) {
	_, err := NewVerifier("abcd")
	assert.Error(t, err)
	_, err = NewVerifier("not-hex")
	assert.Error(t, err)
}

func TestExtractSignatureHeaders(t *testing.T) {
	sig, ts, err := ExtractSignatureHeaders(map[string]string{
		"X-Signature-Ed25519":   "abc",
		"x-signature-timestamp": "123",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", sig)
	assert.Equal(t, "123", ts)

	_, _, err = ExtractSignatureHeaders(map[string]string{"x-signature-ed25519": "abc"})
	assert.ErrorIs(t, err, ErrMissingHeaders)
}
