package signing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// EncryptionService protects private key bytes at rest: "given plaintext
// bytes, return a self-contained opaque string that the same service can
// later reverse" (spec §4.4). Key management of the encryption key itself
// is explicitly out of scope; AESGCMEncryptionService takes the key as a
// constructor argument supplied by the caller's own secrets path.
type EncryptionService interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESGCMEncryptionService implements EncryptionService with AES-256-GCM;
// the opaque output is nonce||ciphertext||tag, self-contained per call.
type AESGCMEncryptionService struct {
	gcm cipher.AEAD
}

// NewAESGCMEncryptionService builds a service from a 32-byte key.
func NewAESGCMEncryptionService(key []byte) (*AESGCMEncryptionService, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("signing: AES-256-GCM requires a 32-byte key, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("signing: constructing AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("signing: constructing GCM mode: %w", err)
	}
	return &AESGCMEncryptionService{gcm: gcm}, nil
}

func (s *AESGCMEncryptionService) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("signing: generating nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *AESGCMEncryptionService) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("signing: ciphertext shorter than nonce size")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("signing: decrypting: %w", err)
	}
	return plaintext, nil
}

var _ EncryptionService = (*AESGCMEncryptionService)(nil)
