// Package storage persists the session's credentials.
//
// Two CredentialStore backends are provided:
//
//   - FileStore: one file in a directory, replaced atomically with
//     write-temp, fsync, rename and a directory fsync
//   - BadgerStore: one key in an embedded Badger database, written in a
//     single transaction
//
// Both serialise credentials through the same Codec. The envelope carries
// a SHA-256 checksum and, when a passphrase is configured, seals the
// credentials with an Argon2id-derived key (see pkg/crypto/adaptive).
//
// A save is atomic from the caller's view: a crash leaves either the
// previous or the new credentials, never a mix of both.
package storage
