package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	l.Info("config loaded",
		"encryption_key", "ababababab",
		"authorization", "Bearer abc",
		"owner_id", "user-1",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}

	if entry["encryption_key"] != redactedValue {
		t.Errorf("encryption_key = %v, want redacted", entry["encryption_key"])
	}
	if entry["authorization"] != redactedValue {
		t.Errorf("authorization = %v, want redacted", entry["authorization"])
	}
	if entry["owner_id"] != "user-1" {
		t.Errorf("owner_id = %v, want passed through", entry["owner_id"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key       string
		sensitive bool
	}{
		{"password", true},
		{"db_password", true},
		{"encryption_key", true},
		{"Authorization", true},
		{"client_secret", true},
		{"session_id", false},
		{"owner_id", false},
		{"dataset_id", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.sensitive {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.sensitive)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ab", "****"},
		{"abcd", "****"},
		{"abcdefgh", "ab****gh"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if strings.Contains(MaskSecret("supersecretvalue"), "persecretval") {
		t.Error("MaskSecret leaked the middle of the secret")
	}
}
