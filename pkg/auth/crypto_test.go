package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("unexpected hash format %q", hash)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct", "Passw0rd!", hash, true},
		{"case sensitive", "passw0rd!", hash, false},
		{"empty", "", hash, false},
		{"malformed hash", "Passw0rd!", "$argon2id$garbage", false},
		{"wrong algorithm", "Passw0rd!", strings.Replace(hash, "argon2id", "argon2i", 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}

	again, _ := HashPassword("Passw0rd!")
	if again == hash {
		t.Error("hashes of the same password should differ by salt")
	}
}

func TestGenerateAndHashToken(t *testing.T) {
	a, err := GenerateToken(32)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateToken(32)
	if a == b {
		t.Error("tokens should be unique")
	}
	if len(a) != 43 {
		t.Errorf("len(token) = %d, want 43", len(a))
	}
	if HashToken(a) != HashToken(a) || HashToken(a) == HashToken(b) {
		t.Error("HashToken must be deterministic and distinct")
	}
	if len(HashToken(a)) != 64 {
		t.Errorf("len(HashToken) = %d, want 64", len(HashToken(a)))
	}
}

func TestSecretBox(t *testing.T) {
	if _, err := NewSecretBox([]byte("short")); err == nil {
		t.Error("expected error for short key")
	}

	box, err := NewSecretBox(DeriveKey("development"))
	if err != nil {
		t.Fatalf("NewSecretBox() error = %v", err)
	}

	sealed, err := box.Seal("sk-live-1234567890")
	if err != nil {
		t.Fatal(err)
	}
	sealed2, _ := box.Seal("sk-live-1234567890")
	if sealed == sealed2 {
		t.Error("nonces should make ciphertexts differ")
	}

	plain, err := box.Open(sealed)
	if err != nil || plain != "sk-live-1234567890" {
		t.Errorf("Open() = %q, %v", plain, err)
	}

	other, _ := NewSecretBox(DeriveKey("other"))
	if _, err := other.Open(sealed); err == nil {
		t.Error("expected error opening with a different key")
	}
	for _, bad := range []string{"!!!", "", "YWJj"} {
		if _, err := box.Open(bad); err == nil {
			t.Errorf("Open(%q) expected error", bad)
		}
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sk-live-1234567890", "********7890"},
		{"abcd", "****"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecoveryCodes(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := generateRecoveryCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 14 || code[4] != '-' || code[9] != '-' {
			t.Fatalf("unexpected code format %q", code)
		}
		for _, c := range strings.ReplaceAll(code, "-", "") {
			if !strings.ContainsRune(recoveryCodeChars, c) {
				t.Fatalf("code %q has char %q outside charset", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 50 {
		t.Error("recovery codes should be unique")
	}

	if hashRecoveryCode("abcd-efgh-jkmn") != hashRecoveryCode("ABCDEFGH JKMN") {
		t.Error("recovery code hashing should normalize case, dashes and spaces")
	}
}
