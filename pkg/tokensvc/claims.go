package tokensvc

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash"
	"strings"
)

// marshalClaims serializes a claim set for persistence as a reference
// token's grant payload.
func marshalClaims(claims map[string]any) ([]byte, error) {
	b, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("tokensvc: marshaling claims: %w", err)
	}
	return b, nil
}

// unmarshalClaims reverses marshalClaims.
func unmarshalClaims(payload []byte) (map[string]any, error) {
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("tokensvc: unmarshaling claims: %w", err)
	}
	return claims, nil
}

// marshalCodePayload serializes a codeGrantPayload for persistence.
func marshalCodePayload(p codeGrantPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("tokensvc: marshaling code payload: %w", err)
	}
	return b, nil
}

// unmarshalCodePayload reverses marshalCodePayload.
func unmarshalCodePayload(payload []byte) (codeGrantPayload, error) {
	var p codeGrantPayload
	if len(payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("tokensvc: unmarshaling code payload: %w", err)
	}
	return p, nil
}

// deviceCodeRef is the user_code grant's payload: a pointer back to the
// device_code grant it was issued alongside.
type deviceCodeRef struct {
	DeviceCode string `json:"device_code"`
}

func marshalDeviceCodeRef(r deviceCodeRef) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("tokensvc: marshaling device code ref: %w", err)
	}
	return b, nil
}

func unmarshalDeviceCodeRef(payload []byte) (deviceCodeRef, error) {
	var r deviceCodeRef
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("tokensvc: unmarshaling device code ref: %w", err)
	}
	return r, nil
}

func marshalDevicePollPayload(p devicePollPayload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("tokensvc: marshaling device poll payload: %w", err)
	}
	return b, nil
}

func unmarshalDevicePollPayload(payload []byte) (devicePollPayload, error) {
	var p devicePollPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("tokensvc: unmarshaling device poll payload: %w", err)
	}
	return p, nil
}

// mergeClaimsKeepFirst copies every key from addition into dest that dest
// does not already hold. Spec §4.3: "Duplicate claim types are dropped
// silently, keeping the earlier value" — callers apply addition sources in
// priority order, earliest first.
func mergeClaimsKeepFirst(dest map[string]any, addition map[string]any) {
	for k, v := range addition {
		if _, exists := dest[k]; exists {
			continue
		}
		dest[k] = v
	}
}

// hashForAlgorithm returns the hash constructor matching the signing
// algorithm's bit strength, per spec §4.3's at_hash/c_hash rule (SHA-256 for
// *256, SHA-384 for *384, SHA-512 for *512).
func hashForAlgorithm(algorithm string) (func() hash.Hash, error) {
	switch {
	case strings.HasSuffix(algorithm, "256"):
		return sha256.New, nil
	case strings.HasSuffix(algorithm, "384"):
		return sha512.New384, nil
	case strings.HasSuffix(algorithm, "512"):
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("tokensvc: cannot determine hash for algorithm %q", algorithm)
	}
}

// leftMostHalfHash implements the at_hash/c_hash computation: hash the
// ASCII bytes of the token/code, take the left-most half of the digest, and
// base64url-encode it without padding.
func leftMostHalfHash(value, algorithm string) (string, error) {
	newHash, err := hashForAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	h := newHash()
	h.Write([]byte(value))
	sum := h.Sum(nil)
	half := sum[:len(sum)/2]
	return base64.RawURLEncoding.EncodeToString(half), nil
}
