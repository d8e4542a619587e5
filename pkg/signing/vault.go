package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// VaultProvider is an HTTP-based client against an external key-custody
// service — the "external vault" side of spec §4.4's provider registry.
// It is deliberately a generic REST client against a narrow contract
// rather than a specific HSM vendor SDK, consistent with the signing
// key/certificate lifecycle's Non-goals around key-management product
// specifics (see SPEC_FULL.md domain stack table).
type VaultProvider struct {
	BaseURL string
	Client  *http.Client
}

const VaultProviderType = "vault"

func (p *VaultProvider) Type() string { return VaultProviderType }

func (p *VaultProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type vaultGenerateRequest struct {
	Type  store.SigningKeyType `json:"type"`
	Size  int                  `json:"size,omitempty"`
	Curve string               `json:"curve,omitempty"`
}

type vaultGenerateResponse struct {
	KeyURI       string `json:"key_uri"`
	PublicKeyDER []byte `json:"public_key_der"`
}

func (p *VaultProvider) GenerateKey(ctx context.Context, spec KeySpec) (GeneratedKey, error) {
	reqBody, err := json.Marshal(vaultGenerateRequest{Type: spec.Type, Size: spec.Size, Curve: spec.Curve})
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: marshaling vault generate request: %w", err)
	}

	var out vaultGenerateResponse
	if err := p.post(ctx, "/keys", reqBody, &out); err != nil {
		return GeneratedKey{}, err
	}

	// PrivateKeyDER stays empty: the vault never releases private key
	// bytes to the caller. Seal records VaultKeyURI on the store record.
	return GeneratedKey{PublicKeyDER: out.PublicKeyDER, VaultKeyURI: out.KeyURI}, nil
}

func (p *VaultProvider) Seal(_ context.Context, rec *store.SigningKeyRecord, _ []byte) error {
	if rec.KeyVaultURI == "" {
		return fmt.Errorf("signing: vault provider requires KeyVaultURI to already be set on the record")
	}
	rec.EncryptedPrivateKeyData = nil
	return nil
}

func (p *VaultProvider) Unseal(ctx context.Context, rec *store.SigningKeyRecord) ([]byte, error) {
	return nil, fmt.Errorf("signing: vault-held private keys are never released; sign through the vault's sign endpoint instead")
}

func (p *VaultProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *VaultProvider) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("signing: building vault request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("signing: calling vault: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("signing: vault returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("signing: decoding vault response: %w", err)
		}
	}
	return nil
}

var _ KeyMaterialProvider = (*VaultProvider)(nil)
