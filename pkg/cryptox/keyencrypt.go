package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrMasterKeyNotSet is returned when private keys are encrypted or decrypted
// before a master key is configured.
var ErrMasterKeyNotSet = errors.New("cryptox: master key not configured")

var (
	masterMu  sync.RWMutex
	masterKey []byte
)

// SetMasterKey derives the AES-256 key used for signing keys at rest from
// material.
func SetMasterKey(material []byte) {
	sum := sha256.Sum256(material)

	masterMu.Lock()
	defer masterMu.Unlock()
	masterKey = sum[:]
}

// LoadMasterKeyFile reads key material from path and installs it.
func LoadMasterKeyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cryptox: read master key: %w", err)
	}
	if len(data) < 32 {
		return fmt.Errorf("cryptox: master key file must hold at least 32 bytes")
	}
	SetMasterKey(data)
	return nil
}

func gcmForMasterKey() (cipher.AEAD, error) {
	masterMu.RLock()
	key := masterKey
	masterMu.RUnlock()

	if key == nil {
		return nil, ErrMasterKeyNotSet
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptPrivateKey seals pemData with AES-256-GCM. Output is nonce followed
// by ciphertext and tag.
func EncryptPrivateKey(pemData []byte) ([]byte, error) {
	gcm, err := gcmForMasterKey()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptox: read nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, pemData, nil), nil
}

// DecryptPrivateKey opens data produced by EncryptPrivateKey.
func DecryptPrivateKey(data []byte) ([]byte, error) {
	gcm, err := gcmForMasterKey()
	if err != nil {
		return nil, err
	}

	n := gcm.NonceSize()
	if len(data) < n+gcm.Overhead() {
		return nil, fmt.Errorf("cryptox: ciphertext too short")
	}
	plain, err := gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decrypt private key: %w", err)
	}
	return plain, nil
}
