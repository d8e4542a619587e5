package saml

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"
)

// DecodeRedirectBinding reverses the HTTP-Redirect binding encoding
// (SAMLBind 2.0 §3.4.4.1): base64-decode, then DEFLATE-inflate (the query
// parameter itself is assumed already URL-decoded by the caller's HTTP
// framework). Spec §6 wire-formats: "Redirect binding: base64+DEFLATE+URL-encoded".
func DecodeRedirectBinding(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("saml: base64-decoding redirect binding payload: %w", err)
	}

	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("saml: inflating redirect binding payload: %w", err)
	}
	return out, nil
}

// EncodeRedirectBinding produces the query-parameter value for the
// HTTP-Redirect binding: DEFLATE-compress then base64-encode.
func EncodeRedirectBinding(xmlPayload []byte) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", fmt.Errorf("saml: creating deflate writer: %w", err)
	}
	if _, err := w.Write(xmlPayload); err != nil {
		return "", fmt.Errorf("saml: deflating redirect binding payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("saml: closing deflate writer: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodePostBinding reverses the HTTP-POST binding encoding (SAMLBind 2.0
// §3.5.4): plain base64, no compression. Spec §6: "POST binding
// base64-encoded".
func DecodePostBinding(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("saml: base64-decoding POST binding payload: %w", err)
	}
	return raw, nil
}

// EncodePostBinding produces the SAMLResponse/SAMLRequest form value for the
// HTTP-POST binding.
func EncodePostBinding(xmlPayload []byte) string {
	return base64.StdEncoding.EncodeToString(xmlPayload)
}
