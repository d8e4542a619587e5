package handlers

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // RFC 6238 mandates SHA-1 for the default TOTP algorithm
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// totpCode computes the RFC 6238 TOTP value for secret (base32, RFC 4648
// without padding) at instant t, per a 30-second step and 6-digit output —
// the defaults used by every common authenticator app.
func totpCode(secret string, t time.Time) (string, error) {
	key, err := decodeBase32Secret(secret)
	if err != nil {
		return "", fmt.Errorf("totp: decode secret: %w", err)
	}

	counter := uint64(t.Unix() / 30)
	return hotp(key, counter, 6), nil
}

// totpVerify checks candidate against the TOTP values for the current step
// and the immediately adjacent steps (±30s), tolerating clock skew.
func totpVerify(secret, candidate string, now time.Time) (bool, error) {
	key, err := decodeBase32Secret(secret)
	if err != nil {
		return false, fmt.Errorf("totp: decode secret: %w", err)
	}

	counter := now.Unix() / 30
	for _, delta := range []int64{0, -1, 1} {
		if hotp(key, uint64(counter+delta), 6) == candidate {
			return true, nil
		}
	}
	return false, nil
}

func decodeBase32Secret(secret string) ([]byte, error) {
	clean := strings.ToUpper(strings.TrimSpace(secret))
	clean = strings.ReplaceAll(clean, " ", "")
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(clean)
}

// hotp implements RFC 4226's HOTP value function, the building block TOTP
// (RFC 6238) layers a time-derived counter on top of.
func hotp(key []byte, counter uint64, digits int) string {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	truncated := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, truncated%mod)
}
