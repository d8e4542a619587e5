package handlers

import (
	"encoding/base64"
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// WebAuthn implements spec §4.2's WebAuthn step, delegating the CBOR/
// signature verification work to pkg/webauthn via the WebAuthnVerifier
// capability. Config key "mode" selects "register" or "authenticate".
type WebAuthn struct {
	Verifier WebAuthnVerifier
}

const webAuthnView = "_WebAuthn"

func (h *WebAuthn) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	mode, _ := stepConfigString(ec.Step.Config, "mode")
	if mode == "" {
		mode = "authenticate"
	}

	userID, _ := ec.JourneyData["user_id"].(string)

	clientDataB64, hasClientData := userInputString(ec, "client_data_json")
	if !hasClientData {
		return journey.RequireInput(webAuthnView, map[string]any{"mode": mode}), nil
	}
	clientData, err := base64.StdEncoding.DecodeString(clientDataB64)
	if err != nil {
		return journey.Fail("invalid_request", "client_data_json is not valid base64"), nil
	}

	switch mode {
	case "register":
		attestationB64, _ := userInputString(ec, "attestation_object")
		attestation, err := base64.StdEncoding.DecodeString(attestationB64)
		if err != nil {
			return journey.Fail("invalid_request", "attestation_object is not valid base64"), nil
		}
		credentialID, err := h.Verifier.VerifyRegistration(ec.Context, ec.TenantID, userID, attestation, clientData)
		if err != nil {
			return journey.Fail("webauthn_failed", err.Error()), nil
		}
		return journey.Success(map[string]any{"credential_id": credentialID}), nil

	case "authenticate":
		authDataB64, _ := userInputString(ec, "authenticator_data")
		sigB64, _ := userInputString(ec, "signature")
		authData, err := base64.StdEncoding.DecodeString(authDataB64)
		if err != nil {
			return journey.Fail("invalid_request", "authenticator_data is not valid base64"), nil
		}
		sig, err := base64.StdEncoding.DecodeString(sigB64)
		if err != nil {
			return journey.Fail("invalid_request", "signature is not valid base64"), nil
		}
		if err := h.Verifier.VerifyAssertion(ec.Context, ec.TenantID, userID, authData, clientData, sig); err != nil {
			return journey.Fail("webauthn_failed", err.Error()), nil
		}
		return journey.Success(map[string]any{"amr": appendAMR(ec.JourneyData, "webauthn")}), nil

	default:
		return journey.Outcome{}, fmt.Errorf("webauthn: unknown mode %q", mode)
	}
}

var _ journey.StepHandler = (*WebAuthn)(nil)
