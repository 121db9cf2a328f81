package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// keyDerivationLabel is signed by the user's SSH key; the hash of the
// signature is the AES-256 key. Changing it orphans existing credentials.enc files.
const keyDerivationLabel = "askai-encryption-key-derivation-v1"

// keyCipher seals the credential file with AES-256-GCM.
type keyCipher struct {
	aead cipher.AEAD
}

// newKeyCipher loads the SSH key at keyPath (using passphrase when the key is
// encrypted) and derives the AES key from it.
func newKeyCipher(keyPath, passphrase string) (*keyCipher, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("no SSH key configured for credential encryption")
	}

	encrypted, err := IsSSHKeyEncrypted(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check SSH key: %w", err)
	}
	if encrypted && passphrase == "" {
		return nil, fmt.Errorf("SSH key is encrypted - passphrase required (set ASKAI_SSH_PASSPHRASE)")
	}

	var signer ssh.Signer
	if encrypted {
		signer, err = LoadSSHPrivateKeyWithPassphrase(keyPath, passphrase)
	} else {
		signer, err = LoadSSHPrivateKey(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}

	key, err := DeriveAESKeyFromSSH(signer)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if Debug && DebugLog != nil {
		DebugLog.Printf("[Credentials] Derived credential key from %s (encrypted=%v)", keyPath, encrypted)
	}

	return &keyCipher{aead: aead}, nil
}

// seal returns [nonce][ciphertext+tag].
func (k *keyCipher) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return k.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (k *keyCipher) open(sealed []byte) ([]byte, error) {
	nonceSize := k.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	plaintext, err := k.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// DeriveAESKeyFromSSH derives a 32-byte AES-256 key from an SSH key signature.
// Ed25519 and RSA PKCS#1 v1.5 signatures are deterministic, so the same key
// always yields the same AES key.
func DeriveAESKeyFromSSH(signer ssh.Signer) ([]byte, error) {
	signature, err := signer.Sign(rand.Reader, []byte(keyDerivationLabel))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	hash := sha256.Sum256(signature.Blob)
	return hash[:], nil
}
