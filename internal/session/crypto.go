package session

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16
	keySize  = chacha20poly1305.KeySize

	// scrypt cost parameters. N is deliberately high: the key guards
	// long-lived login cookies and derivation happens once per save/load.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var errCiphertextTooShort = errors.New("ciphertext too short")

// deriveKey stretches the configured secret into a cipher key.
func deriveKey(secret string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// encrypt seals plaintext with a key derived from secret.
// Wire format: salt[16] | nonce[12] | ciphertext. A fresh salt and nonce are
// drawn for every call, so identical payloads never produce identical blobs.
func encrypt(secret string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	blob := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, nil)
	return blob, nil
}

// decrypt opens a blob produced by encrypt.
func decrypt(secret string, blob []byte) ([]byte, error) {
	if len(blob) < saltSize+chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return nil, errCiphertextTooShort
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+chacha20poly1305.NonceSize]
	ciphertext := blob[saltSize+chacha20poly1305.NonceSize:]

	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("decryption failed: wrong secret or tampered blob")
	}
	return plaintext, nil
}
