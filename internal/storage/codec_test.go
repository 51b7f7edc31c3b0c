package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/pkg/crypto/adaptive"
)

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec func(t *testing.T) *Codec
	}{
		{"plain", plainCodec},
		{"sealed", func(t *testing.T) *Codec { return sealedCodec(t, "correct horse battery") }},
		{"sealed chacha20", func(t *testing.T) *Codec {
			c, err := NewCodec("correct horse battery",
				WithKDFParams(cheapKDF), WithCipherType(adaptive.CipherChaCha20))
			if err != nil {
				t.Fatal(err)
			}
			return c
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.codec(t)
			want := pairedCredentials()

			data, err := c.Encode(want)
			if err != nil {
				t.Fatal(err)
			}
			got, err := c.Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Errorf("decoded credentials differ:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestCodec_SealedHidesKeyMaterial(t *testing.T) {
	c := sealedCodec(t, "correct horse battery")
	data, err := c.Encode(pairedCredentials())
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"adv-secret", "session-blob", "94718461889"} {
		if bytes.Contains(data, []byte(secret)) {
			t.Errorf("sealed envelope contains %q", secret)
		}
	}

	plain, err := plainCodec(t).Encode(pairedCredentials())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(plain, []byte("94718461889")) {
		t.Error("plain envelope should carry the account id in clear")
	}
}

func TestCodec_ReusesSaltAcrossSaves(t *testing.T) {
	c := sealedCodec(t, "correct horse battery")
	saltOf := func() []byte {
		data, err := c.Encode(pairedCredentials())
		if err != nil {
			t.Fatal(err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatal(err)
		}
		return env.Salt
	}
	if first, second := saltOf(), saltOf(); !bytes.Equal(first, second) {
		t.Error("salt changed between saves of the same codec")
	}
}

func TestCodec_PlainChecksumIgnoresLayout(t *testing.T) {
	c := plainCodec(t)
	want := pairedCredentials()
	data, err := c.Encode(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("\n    ")) {
		t.Fatalf("expected an indented envelope, got %s", data)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		t.Fatal(err)
	}
	var reindented bytes.Buffer
	if err := json.Indent(&reindented, data, "", "\t"); err != nil {
		t.Fatal(err)
	}

	for name, b := range map[string][]byte{
		"as written": data,
		"compact":    compact.Bytes(),
		"reindented": reindented.Bytes(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("decoded credentials differ:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestCodec_DecodeFailures(t *testing.T) {
	sealed, err := sealedCodec(t, "correct horse battery").Encode(pairedCredentials())
	if err != nil {
		t.Fatal(err)
	}
	plain, err := plainCodec(t).Encode(pairedCredentials())
	if err != nil {
		t.Fatal(err)
	}

	tampered := func(data []byte, mutate func(*envelope)) []byte {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatal(err)
		}
		mutate(&env)
		out, err := json.Marshal(env)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	tests := []struct {
		name  string
		codec *Codec
		data  []byte
	}{
		{"not json", plainCodec(t), []byte("{nope")},
		{"truncated", plainCodec(t), plain[:len(plain)/2]},
		{"wrong format", plainCodec(t), tampered(plain, func(e *envelope) { e.Format = "other" })},
		{"future version", plainCodec(t), tampered(plain, func(e *envelope) { e.Version = 9 })},
		{"checksum mismatch", plainCodec(t), tampered(plain, func(e *envelope) {
			e.Credentials = json.RawMessage(`{"revision":99}`)
		})},
		{"sealed without passphrase", plainCodec(t), sealed},
		{"wrong passphrase", sealedCodec(t, "a different passphrase"), sealed},
		{"flipped ciphertext", sealedCodec(t, "correct horse battery"), tampered(sealed, func(e *envelope) {
			e.Sealed[len(e.Sealed)-1] ^= 0xff
			e.Checksum = checksum(e.Sealed)
		})},
		{"missing salt", sealedCodec(t, "correct horse battery"), tampered(sealed, func(e *envelope) {
			e.Salt = nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Decode(tt.data)
			if !errors.Is(err, domain.ErrCredentialsCorrupt) {
				t.Errorf("Decode() error = %v, want ErrCredentialsCorrupt", err)
			}
		})
	}
}

func TestNewCodec_ShortPassphrase(t *testing.T) {
	if _, err := NewCodec("short"); !errors.Is(err, adaptive.ErrPassphraseTooShort) {
		t.Errorf("NewCodec() error = %v, want ErrPassphraseTooShort", err)
	}
}
