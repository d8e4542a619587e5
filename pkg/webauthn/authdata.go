package webauthn

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Flag bits within AuthenticatorData.Flags (WebAuthn §6.1).
const (
	flagUserPresent         = 1 << 0
	flagUserVerified        = 1 << 2
	flagAttestedCredData    = 1 << 6
	flagExtensionDataIncl   = 1 << 7
)

// AuthenticatorData is the parsed form of the wire layout named in spec §6:
// "authData is rpIdHash(32) || flags(1) || signCount(4) ||
// [attestedCredentialData] || [extensions]".
type AuthenticatorData struct {
	RPIDHash  [32]byte
	Flags     byte
	SignCount uint32

	AAGUID              [16]byte
	CredentialID        []byte
	CredentialPublicKey []byte // raw COSE_Key CBOR
	Extensions          []byte // raw CBOR, uninterpreted
}

func (a *AuthenticatorData) UserPresent() bool  { return a.Flags&flagUserPresent != 0 }
func (a *AuthenticatorData) UserVerified() bool { return a.Flags&flagUserVerified != 0 }
func (a *AuthenticatorData) hasAttestedCredData() bool {
	return a.Flags&flagAttestedCredData != 0
}
func (a *AuthenticatorData) hasExtensions() bool { return a.Flags&flagExtensionDataIncl != 0 }

// ParseAuthenticatorData decodes the fixed-layout prefix and, when present,
// the attested credential data block (registration ceremonies) and the raw
// extensions block.
func ParseAuthenticatorData(raw []byte) (*AuthenticatorData, error) {
	if len(raw) < 37 {
		return nil, fmt.Errorf("webauthn: authData too short: %d bytes", len(raw))
	}
	a := &AuthenticatorData{}
	copy(a.RPIDHash[:], raw[0:32])
	a.Flags = raw[32]
	a.SignCount = binary.BigEndian.Uint32(raw[33:37])

	rest := raw[37:]
	if a.hasAttestedCredData() {
		if len(rest) < 18 {
			return nil, fmt.Errorf("webauthn: attestedCredentialData truncated")
		}
		copy(a.AAGUID[:], rest[0:16])
		credIDLen := binary.BigEndian.Uint16(rest[16:18])
		rest = rest[18:]
		if len(rest) < int(credIDLen) {
			return nil, fmt.Errorf("webauthn: credentialId truncated")
		}
		a.CredentialID = append([]byte(nil), rest[:credIDLen]...)
		rest = rest[credIDLen:]

		pubKey, consumed, err := decodeFirstCBORItem(rest)
		if err != nil {
			return nil, fmt.Errorf("webauthn: decoding credentialPublicKey: %w", err)
		}
		a.CredentialPublicKey = pubKey
		rest = rest[consumed:]
	}
	if a.hasExtensions() {
		a.Extensions = append([]byte(nil), rest...)
	}
	return a, nil
}

// decodeFirstCBORItem returns the raw bytes of the first CBOR data item in
// data and how many bytes it consumed, using cbor.RawMessage to capture
// the item without needing to know its shape ahead of time — the COSE key
// can be an EC2 or RSA key with a different field set either way.
func decodeFirstCBORItem(data []byte) ([]byte, int, error) {
	reader := bytes.NewReader(data)
	dec := cbor.NewDecoder(reader)
	var raw cbor.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, err
	}
	consumed := len(data) - reader.Len()
	return []byte(raw), consumed, nil
}
