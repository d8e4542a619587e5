package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SyndewTech/Oluso-sub010/pkg/config"
	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
)

var (
	genkeyTenant    string
	genkeyAlgorithm string
	genkeyUse       string
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Mint a new signing or encryption key and print its key ID",
	Long: `genkey issues a new key through the same signing.KeyManager the
server uses, against an ephemeral in-memory store: it exists to exercise
key generation and print the resulting thumbprint/key ID for operators
rotating keys out of band, not to manage a running server's live store.`,
	RunE: runGenkey,
}

func init() {
	genkeyCmd.Flags().StringVar(&genkeyTenant, "tenant", "", "tenant ID to mint the key for (empty = platform)")
	genkeyCmd.Flags().StringVar(&genkeyAlgorithm, "algorithm", "RS256", "signing algorithm (RS256, ES256, HS256, ...)")
	genkeyCmd.Flags().StringVar(&genkeyUse, "use", "signing", "key use: signing or encryption")
}

func runGenkey(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("genkey: loading configuration: %w", err)
	}

	encKey, err := resolveEncryptionKey(cfg.EncryptionKeyBase64)
	if err != nil {
		return err
	}
	enc, err := signing.NewAESGCMEncryptionService(encKey)
	if err != nil {
		return fmt.Errorf("genkey: building encryption service: %w", err)
	}

	registry := signing.NewRegistry()
	registry.Register(&signing.LocalProvider{Encryption: enc})

	mem := memory.New()
	km := &signing.KeyManager{Registry: registry, Keys: mem, NewKeyID: newKeyID}

	spec, err := algorithmKeySpec(genkeyAlgorithm)
	if err != nil {
		return err
	}

	use := store.SigningKeyUse(genkeyUse)
	now := time.Now()
	rec, err := km.Issue(context.Background(), signing.IssueRequest{
		TenantID:  genkeyTenant,
		Use:       use,
		Algorithm: genkeyAlgorithm,
		Spec:      spec,
		NotBefore: now,
		NotAfter:  now.AddDate(0, 0, cfg.SigningKeyRotationDays),
	})
	if err != nil {
		return fmt.Errorf("genkey: issuing key: %w", err)
	}

	fmt.Printf("issued key_id=%s tenant=%q algorithm=%s use=%s not_after=%s\n",
		rec.KeyID, rec.TenantID, rec.Algorithm, rec.Use, rec.NotAfter.Format(time.RFC3339))
	return nil
}
