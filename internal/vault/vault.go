// Package vault seals note content at rest.
//
// Every account has a random data key. The data key is stored wrapped by the
// server's master key; note content is sealed with the data key. Both layers
// use XChaCha20-Poly1305 with a random 24-byte nonce stored next to the
// ciphertext.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const KeySize = chacha20poly1305.KeySize

var ErrKeySize = fmt.Errorf("key must be %d bytes", KeySize)

// ErrOpen is returned when a ciphertext fails authentication.
var ErrOpen = errors.New("vault: message authentication failed")

type Vault struct {
	master []byte
}

func New(master []byte) (*Vault, error) {
	if len(master) != KeySize {
		return nil, ErrKeySize
	}
	return &Vault{master: append([]byte(nil), master...)}, nil
}

// NewDataKey generates a data key and returns it along with its wrapped form.
func (v *Vault) NewDataKey() (key, wrapped, nonce []byte, err error) {
	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	wrapped, nonce, err = Seal(v.master, key)
	if err != nil {
		return nil, nil, nil, err
	}
	return key, wrapped, nonce, nil
}

// Unwrap recovers a data key produced by NewDataKey.
func (v *Vault) Unwrap(wrapped, nonce []byte) ([]byte, error) {
	return Open(v.master, nonce, wrapped)
}

func Seal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, ErrKeySize
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrKeySize
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrOpen
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
