package auth

import (
	"strings"
	"testing"
)

func TestHashSecret_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("tk_live_abc123_secretsecretsecretsecret1234")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got: %d (%s)", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHashSecret_SaltedPerCall(t *testing.T) {
	t.Parallel()

	secret := "the_same_secret_12345"

	hash1, err := HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	hash2, err := HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}

	if hash1 == hash2 {
		t.Error("Same secret should produce different hashes due to random salt")
	}

	for _, h := range []string{hash1, hash2} {
		ok, err := VerifySecret(secret, h)
		if err != nil || !ok {
			t.Errorf("VerifySecret(%q) = %v, %v; want true, nil", h, ok, err)
		}
	}
}

func TestVerifySecret_Mismatch(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("tk_live_abc123_secretsecretsecretsecret1234")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}

	ok, err := VerifySecret("tk_live_abc123_wrongwrongwrongwrongwrong1234", hash)
	if err != nil {
		t.Fatalf("VerifySecret should not error on mismatch: %v", err)
	}
	if ok {
		t.Error("Wrong secret should not match")
	}
}

func TestVerifySecret_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"not a hash", "not-a-hash", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$salt$hash", ErrInvalidHash},
		{"missing parts", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"bad params", "$argon2id$v=19$mem=1$c2FsdA$aGFzaA", ErrInvalidHash},
		{"old version", "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJl", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := VerifySecret("secret", tt.hash)
			if err != tt.wantErr {
				t.Errorf("VerifySecret error = %v, want %v", err, tt.wantErr)
			}
			if ok {
				t.Error("VerifySecret should not match an invalid hash")
			}
		})
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	a := QuickHash("input-one")
	if a != QuickHash("input-one") {
		t.Error("QuickHash should be deterministic")
	}
	if a == QuickHash("input-two") {
		t.Error("Different input should produce different hash")
	}
	if len(a) != 32 {
		t.Errorf("QuickHash length = %d, want 32", len(a))
	}
}
