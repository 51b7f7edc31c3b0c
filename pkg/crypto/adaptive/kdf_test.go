package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

// cheap parameters keep the tests fast.
var testParams = KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1}

func TestDeriveKey(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatal(err)
	}
	pass := []byte("correct horse battery")

	k1, err := DeriveKey(pass, salt, testParams)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if len(k1) != KeySize {
		t.Errorf("key length = %d, want %d", len(k1), KeySize)
	}

	k2, _ := DeriveKey(pass, salt, testParams)
	if !bytes.Equal(k1, k2) {
		t.Error("same inputs produced different keys")
	}

	other, _ := NewSalt()
	k3, _ := DeriveKey(pass, other, testParams)
	if bytes.Equal(k1, k3) {
		t.Error("different salts produced the same key")
	}

	k4, _ := DeriveKey([]byte("another passphrase"), salt, testParams)
	if bytes.Equal(k1, k4) {
		t.Error("different passphrases produced the same key")
	}
}

func TestDeriveKey_Validation(t *testing.T) {
	salt, _ := NewSalt()

	if _, err := DeriveKey([]byte("short"), salt, testParams); !errors.Is(err, ErrPassphraseTooShort) {
		t.Errorf("short passphrase error = %v", err)
	}
	if _, err := DeriveKey([]byte("long enough"), salt[:8], testParams); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("short salt error = %v", err)
	}
}
