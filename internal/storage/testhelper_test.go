package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/pkg/crypto/adaptive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cheapKDF keeps Argon2id fast in tests.
var cheapKDF = adaptive.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1}

func plainCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func sealedCodec(t *testing.T, passphrase string) *Codec {
	t.Helper()
	c, err := NewCodec(passphrase, WithKDFParams(cheapKDF))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// pairedCredentials returns registered credentials with a few keys.
func pairedCredentials() *domain.Credentials {
	creds := domain.NewCredentials()
	creds.Apply(domain.CredentialPatch{
		Identity: &domain.Identity{
			Me:             "94718461889:4@s.whatsapp.net",
			PushName:       "Fergando",
			RegistrationID: 4242,
			NoiseKey:       domain.KeyPair{Public: []byte{1, 2}, Private: []byte{3, 4}},
			IdentityKey:    domain.KeyPair{Public: []byte{5, 6}, Private: []byte{7, 8}},
			SignedPreKey: domain.SignedKeyPair{
				KeyID:     1,
				KeyPair:   domain.KeyPair{Public: []byte{9}, Private: []byte{10}},
				Signature: []byte{11, 12, 13},
			},
			AdvSecretKey: []byte("adv-secret"),
			Registered:   true,
		},
		Keys: map[string]map[string][]byte{
			domain.KeyCategoryPreKey:  {"1": []byte("pk-1"), "2": []byte("pk-2")},
			domain.KeyCategorySession: {"94711111111.0": []byte("session-blob")},
		},
	})
	return creds
}
