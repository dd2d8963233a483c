package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		env        string
		wantPrefix string
	}{
		{"live", EnvLive, "cc_live_"},
		{"test", EnvTest, "cc_test_"},
		{"unknown defaults to live", "prod", "cc_live_"},
		{"empty defaults to live", "", "cc_live_"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key, err := GenerateAPIKey(tt.env)
			if err != nil {
				t.Fatalf("GenerateAPIKey failed: %v", err)
			}
			if !strings.HasPrefix(key.Plaintext, tt.wantPrefix) {
				t.Errorf("Plaintext = %q, want prefix %q", key.Plaintext, tt.wantPrefix)
			}
			if len(key.Prefix) != KeyPrefixLen {
				t.Errorf("Prefix length = %d, want %d", len(key.Prefix), KeyPrefixLen)
			}

			parsed, err := ParseAPIKey(key.Plaintext)
			if err != nil {
				t.Fatalf("generated key does not parse: %v", err)
			}
			if parsed.Prefix != key.Prefix || len(parsed.Secret) != KeySecretLen {
				t.Errorf("parsed = %+v, generated prefix %q", parsed, key.Prefix)
			}

			match, err := VerifyKey(key.Plaintext, key.Hash)
			if err != nil || !match {
				t.Errorf("generated hash does not verify: %v, %v", match, err)
			}
		})
	}
}

func TestParseAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		key        string
		wantEnv    string
		wantPrefix string
		wantErr    bool
	}{
		{"valid live", "cc_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", EnvLive, "abc123", false},
		{"valid test", "cc_test_def456_0123456789abcdef0123456789abcdef", EnvTest, "def456", false},
		{"other product prefix", "pk_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "", "", true},
		{"unknown env", "cc_prod_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "", "", true},
		{"short prefix", "cc_live_abc_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "", "", true},
		{"short secret", "cc_live_abc123_4f8d2e1b", "", "", true},
		{"trailing garbage", "cc_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1bx", "", "", true},
		{"uppercase hex", "cc_live_ABC123_4F8D2E1B9C7A5F3D2E1B9C7A5F3D2E1B", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKeyFormat) {
					t.Errorf("expected ErrInvalidKeyFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAPIKey failed: %v", err)
			}
			if parsed.Env != tt.wantEnv || parsed.Prefix != tt.wantPrefix {
				t.Errorf("parsed = %+v", parsed)
			}
		})
	}
}

func TestParseScopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"empty defaults to read", "", "read", false},
		{"trims and dedupes", " read, write ,read", "read,write", false},
		{"admin", "admin", "admin", false},
		{"unknown", "read,superuser", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseScopes(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScopes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidScope) {
					t.Errorf("expected ErrInvalidScope, got %v", err)
				}
				return
			}
			if strings.Join(got, ",") != tt.want {
				t.Errorf("ParseScopes() = %v, want %s", got, tt.want)
			}
		})
	}
}
