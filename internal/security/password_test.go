package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("admin-pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "admin-pass" {
		t.Fatal("hash equals plaintext")
	}
	if !h.Verify(hash, "admin-pass") {
		t.Error("Verify = false for correct password")
	}
	if h.Verify(hash, "wrong") {
		t.Error("Verify = true for wrong password")
	}
	if h.Verify("not-a-hash", "admin-pass") {
		t.Error("Verify = true for malformed hash")
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{1, bcrypt.MinCost},
		{99, bcrypt.MaxCost},
		{12, 12},
	}
	for _, tt := range tests {
		if got := NewPasswordHasher(tt.in).cost; got != tt.want {
			t.Errorf("NewPasswordHasher(%d).cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}
