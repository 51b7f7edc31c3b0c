// Package adaptive provides authenticated encryption with hardware-aware
// algorithm selection, and passphrase key derivation.
//
// Supported algorithms:
//
//   - AES-256-GCM: preferred where the CPU accelerates AES
//   - ChaCha20-Poly1305: fallback elsewhere
//
// Ciphertexts carry their random nonce as a prefix, so Decrypt needs only
// the key and the additional data used at encryption time.
//
// Usage:
//
//	salt, _ := adaptive.NewSalt()
//	key, _ := adaptive.DeriveKey(passphrase, salt, adaptive.DefaultKDFParams())
//	c, _ := adaptive.New(key)
//	sealed, _ := c.Encrypt(plaintext, aad)
package adaptive
