// Package secrets provides authenticated symmetric encryption for small secrets
// such as OAuth tokens that must be stored at rest.
//
// The cipher is XChaCha20-Poly1305 keyed by a 256-bit key supplied as a
// 64-character lowercase hex string. Every sealed value carries its own random
// 24-byte nonce, so the same plaintext never produces the same ciphertext.
//
// # Usage
//
//	c, err := secrets.NewCipher(os.Getenv("TOKEN_ENCRYPTION_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sealed := c.Seal([]byte("ya29.token"), []byte("user-1:access_token"))
//	plain, err := c.Open(sealed, []byte("user-1:access_token"))
//
// The additional data (aad) is authenticated but not encrypted. Callers use it
// to bind a ciphertext to its owner so it cannot be moved to another record.
package secrets
