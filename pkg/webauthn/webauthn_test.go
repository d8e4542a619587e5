package webauthn

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
)

const testRPID = "oluso.example"

func rpidHash() [32]byte {
	return sha256.Sum256([]byte(testRPID))
}

func buildAuthData(t *testing.T, signCount uint32, includeCredData bool, pub *ecdsa.PublicKey, credID []byte) []byte {
	t.Helper()
	hash := rpidHash()
	buf := make([]byte, 0, 200)
	buf = append(buf, hash[:]...)
	flags := byte(flagUserPresent)
	if includeCredData {
		flags |= flagAttestedCredData
	}
	buf = append(buf, flags)
	var countBytes [4]byte
	binary.BigEndian.PutUint32(countBytes[:], signCount)
	buf = append(buf, countBytes[:]...)

	if includeCredData {
		var aaguid [16]byte
		buf = append(buf, aaguid[:]...)
		var lenBytes [2]byte
		binary.BigEndian.PutUint16(lenBytes[:], uint16(len(credID)))
		buf = append(buf, lenBytes[:]...)
		buf = append(buf, credID...)

		key := coseKey{
			Kty: coseKtyEC2,
			Alg: coseAlgES256,
			Crv: 1,
			X:   pub.X.Bytes(),
			Y:   pub.Y.Bytes(),
		}
		m := map[int]any{
			1:  key.Kty,
			3:  key.Alg,
			-1: key.Crv,
			-2: key.X,
			-3: key.Y,
		}
		encoded, err := cbor.Marshal(m)
		if err != nil {
			t.Fatalf("marshal COSE key: %v", err)
		}
		buf = append(buf, encoded...)
	}
	return buf
}

func TestRegistrationAndAssertionRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	credID := []byte{0x01, 0x02, 0x03, 0x04}
	authData := buildAuthData(t, 1, true, &priv.PublicKey, credID)

	obj := &AttestationObject{
		AuthData: authData,
		Fmt:      "none",
		AttStmt:  map[string]any{},
	}
	attestationObject, err := EncodeAttestationObject(obj)
	if err != nil {
		t.Fatalf("encode attestation object: %v", err)
	}

	clientDataJSON := []byte(`{"type":"webauthn.create","challenge":"abc","origin":"https://oluso.example"}`)

	st := memory.New()
	v := &Verifier{Credentials: st, RPID: testRPID, Now: func() time.Time { return time.Unix(0, 0) }}

	credentialID, err := v.VerifyRegistration(context.Background(), "tenant-a", "user-1", attestationObject, clientDataJSON)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}
	if credentialID == "" {
		t.Fatal("expected non-empty credential id")
	}

	stored, err := st.GetWebAuthnCredential(context.Background(), "tenant-a", credentialID)
	if err != nil {
		t.Fatalf("GetWebAuthnCredential: %v", err)
	}
	if stored.SignCount != 1 {
		t.Fatalf("expected stored sign count 1, got %d", stored.SignCount)
	}

	assertionClientDataJSON := []byte(`{"type":"webauthn.get","challenge":"def","origin":"https://oluso.example"}`)
	assertionAuthData := buildAuthData(t, 2, false, nil, nil)
	digest := sha256.Sum256(append(append([]byte(nil), assertionAuthData...), sha256.Sum256(assertionClientDataJSON)[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := v.VerifyAssertion(context.Background(), "tenant-a", "user-1", assertionAuthData, assertionClientDataJSON, sig); err != nil {
		t.Fatalf("VerifyAssertion: %v", err)
	}

	stored, err = st.GetWebAuthnCredential(context.Background(), "tenant-a", credentialID)
	if err != nil {
		t.Fatalf("GetWebAuthnCredential after assertion: %v", err)
	}
	if stored.SignCount != 2 {
		t.Fatalf("expected sign count advanced to 2, got %d", stored.SignCount)
	}
}

func TestAssertionNonIncreasingCounterWarnsNotRejects(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	credID := []byte{0xaa, 0xbb}
	regAuthData := buildAuthData(t, 5, true, &priv.PublicKey, credID)
	obj := &AttestationObject{AuthData: regAuthData, Fmt: "none", AttStmt: map[string]any{}}
	attestationObject, err := EncodeAttestationObject(obj)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	regClientData := []byte(`{"type":"webauthn.create"}`)

	st := memory.New()
	v := &Verifier{Credentials: st, RPID: testRPID}
	credentialID, err := v.VerifyRegistration(context.Background(), "tenant-a", "user-1", attestationObject, regClientData)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	assertionClientData := []byte(`{"type":"webauthn.get"}`)
	assertionAuthData := buildAuthData(t, 3, false, nil, nil) // counter went backwards
	digest := sha256.Sum256(append(append([]byte(nil), assertionAuthData...), sha256.Sum256(assertionClientData)[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := v.VerifyAssertion(context.Background(), "tenant-a", "user-1", assertionAuthData, assertionClientData, sig); err != nil {
		t.Fatalf("expected lenient acceptance despite non-increasing counter, got: %v", err)
	}

	stored, err := st.GetWebAuthnCredential(context.Background(), "tenant-a", credentialID)
	if err != nil {
		t.Fatalf("GetWebAuthnCredential: %v", err)
	}
	if stored.SignCount != 3 {
		t.Fatalf("expected sign count updated to reported value 3, got %d", stored.SignCount)
	}
}

func TestVerifyAssertionRejectsBadSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	credID := []byte{0x09}
	regAuthData := buildAuthData(t, 1, true, &priv.PublicKey, credID)
	obj := &AttestationObject{AuthData: regAuthData, Fmt: "none", AttStmt: map[string]any{}}
	attestationObject, err := EncodeAttestationObject(obj)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	st := memory.New()
	v := &Verifier{Credentials: st, RPID: testRPID}
	if _, err := v.VerifyRegistration(context.Background(), "tenant-a", "user-1", attestationObject, []byte(`{}`)); err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	assertionAuthData := buildAuthData(t, 2, false, nil, nil)
	badSig := []byte{0x00, 0x01, 0x02}
	if err := v.VerifyAssertion(context.Background(), "tenant-a", "user-1", assertionAuthData, []byte(`{}`), badSig); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestRPIDMismatchRejected(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	authData := buildAuthData(t, 1, true, &priv.PublicKey, []byte{0x01})
	obj := &AttestationObject{AuthData: authData, Fmt: "none", AttStmt: map[string]any{}}
	attestationObject, err := EncodeAttestationObject(obj)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	st := memory.New()
	v := &Verifier{Credentials: st, RPID: "wrong.example"}
	if _, err := v.VerifyRegistration(context.Background(), "tenant-a", "user-1", attestationObject, []byte(`{}`)); err == nil {
		t.Fatal("expected rpIdHash mismatch error")
	}
}

// TestCBORRoundTrip exercises spec §8's round-trip law directly against
// fxamacker/cbor/v2 over representative primitive shapes (unsigned/negative
// ints, byte/text strings, arrays, maps, booleans), not just the
// application-level AttestationObject shape.
func TestCBORRoundTrip(t *testing.T) {
	cases := []any{
		uint64(0),
		uint64(23),
		uint64(1000000),
		int64(-1),
		int64(-1000),
		"",
		"hello webauthn",
		[]byte{0x01, 0x02, 0x03},
		[]any{uint64(1), uint64(2), uint64(3)},
		map[string]any{"a": uint64(1), "b": "two"},
		true,
		false,
	}
	for _, c := range cases {
		encoded, err := cbor.Marshal(c)
		if err != nil {
			t.Fatalf("marshal %#v: %v", c, err)
		}
		var decoded any
		if err := cbor.Unmarshal(encoded, &decoded); err != nil {
			t.Fatalf("unmarshal %#v: %v", c, err)
		}
		reencoded, err := cbor.Marshal(decoded)
		if err != nil {
			t.Fatalf("re-marshal %#v: %v", c, err)
		}
		if string(reencoded) != string(encoded) {
			t.Errorf("round trip mismatch for %#v: %x != %x", c, reencoded, encoded)
		}
	}
}

func TestParseAuthenticatorDataTooShort(t *testing.T) {
	if _, err := ParseAuthenticatorData([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for truncated authData")
	}
}

func TestStoreNotFound(t *testing.T) {
	st := memory.New()
	if _, err := st.GetWebAuthnCredential(context.Background(), "tenant-a", "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
