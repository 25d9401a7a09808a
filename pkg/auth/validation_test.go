package auth

import (
	"strings"
	"testing"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name            string
		email           string
		blockDisposable bool
		wantErr         bool
	}{
		{"valid email", "owner@acme.lk", false, false},
		{"valid with subdomain", "test@mail.example.com", false, false},
		{"valid with plus", "test+tag@example.com", false, false},
		{"mixed case and spaces", "  Owner@Acme.LK ", false, false},
		{"empty", "", false, true},
		{"no @", "invalid.com", false, true},
		{"no domain", "test@", false, true},
		{"no local part", "@example.com", false, true},
		{"no tld", "test@localhost", false, true},
		{"display name", "Owner <owner@acme.lk>", false, true},
		{"too long", strings.Repeat("a", 250) + "@example.com", false, true},
		{"disposable allowed", "x@mailinator.com", false, false},
		{"disposable blocked", "x@mailinator.com", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email, tt.blockDisposable)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
			if err != nil && !domain.IsValidation(err) {
				t.Errorf("ValidateEmail(%q) returned %T, want *domain.ValidationError", tt.email, err)
			}
		})
	}

	if IsEmail("nope") {
		t.Error("IsEmail(nope) = true")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Test@Example.COM "); got != "test@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestPasswordPolicy_ValidatePassword(t *testing.T) {
	policy := NewPasswordPolicy(config.PasswordPolicyConfig{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	})

	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"valid", "Passw0rd", ""},
		{"too short", "Pa0", "at least 8 characters"},
		{"no uppercase", "password1", "uppercase"},
		{"no lowercase", "PASSWORD1", "lowercase"},
		{"no number", "Password", "number"},
		{"too long", "Aa1" + strings.Repeat("x", 200), "at most 128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidatePassword(tt.password)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("ValidatePassword() unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ValidatePassword() error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}

	special := &PasswordPolicy{RequireSpecial: true}
	if err := special.ValidatePassword("abc"); err == nil {
		t.Error("expected special character requirement to fail")
	}
	if err := special.ValidatePassword("abc!"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestPasswordPolicy_GetRequirements(t *testing.T) {
	empty := &PasswordPolicy{}
	if empty.HasRequirements() {
		t.Error("empty policy should have no requirements")
	}
	if got := empty.GetRequirements(); got != "No password requirements" {
		t.Errorf("GetRequirements() = %q", got)
	}

	p := &PasswordPolicy{MinLength: 8, RequireNumber: true}
	want := "Password must contain at least 8 characters, one number"
	if got := p.GetRequirements(); got != want {
		t.Errorf("GetRequirements() = %q, want %q", got, want)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"input escapes html", SanitizeInput, "<script>alert('xss')</script>", "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;"},
		{"input escapes ampersand", SanitizeInput, "Test & Co.", "Test &amp; Co."},
		{"name trims", SanitizeName, "  Nimal Perera  ", "Nimal Perera"},
		{"name strips control chars", SanitizeName, "Nim\x00al", "Nimal"},
		{"name keeps unicode", SanitizeName, "නිමල්", "නිමල්"},
		{"clean text keeps markup", CleanText, " Buy <b>now</b> & save\x07 ", "Buy <b>now</b> & save"},
		{"clean text keeps newlines", CleanText, "line1\nline2", "line1\nline2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		min     int
		max     int
		wantErr bool
	}{
		{"within bounds", "hello", 1, 10, false},
		{"too short", "hi", 3, 10, true},
		{"too long", "hello world", 1, 5, true},
		{"runes not bytes", "ශ්‍රී", 1, 5, false},
		{"no bounds", "", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength("name", tt.value, tt.min, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStringLength() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
