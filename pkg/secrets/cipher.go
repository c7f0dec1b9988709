package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeyHexLength is the required length of the hex-encoded key.
const KeyHexLength = chacha20poly1305.KeySize * 2

// Cipher seals and opens values with a process-wide key.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher validates hexKey and returns a ready cipher.
func NewCipher(hexKey string) (*Cipher, error) {
	if err := ValidateKey(hexKey); err != nil {
		return nil, err
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}

	return &Cipher{aead: aead}, nil
}

// ValidateKey reports whether hexKey is a well-formed 256-bit key.
// Uppercase hex is rejected so the same secret has exactly one spelling.
func ValidateKey(hexKey string) error {
	if len(hexKey) != KeyHexLength {
		return ErrInvalidKey
	}
	for i := range len(hexKey) {
		c := hexKey[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrInvalidKey
		}
	}
	return nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func (c *Cipher) Seal(plaintext, aad []byte) []byte {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		// crypto/rand.Read never returns an error on supported platforms.
		panic("secrets: read nonce: " + err.Error())
	}
	return c.aead.Seal(nonce, nonce, plaintext, aad)
}

// Open decrypts a value produced by Seal with the same aad.
func (c *Cipher) Open(sealed, aad []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return nil, ErrDecrypt
	}

	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}
