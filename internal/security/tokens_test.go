package security

import (
	"errors"
	"testing"
	"time"
)

func TestOperatorTokenIssuer_IssueAndValidate(t *testing.T) {
	p := NewOperatorTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "devbackend", time.Hour)
	token, exp, err := p.Issue("admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	sub, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sub != "admin" {
		t.Errorf("subject = %q, want %q", sub, "admin")
	}
}

func TestOperatorTokenIssuer_RejectsOtherKey(t *testing.T) {
	a := NewOperatorTokenIssuer([]byte("key-a-key-a-key-a-key-a-key-a-00"), "devbackend", time.Hour)
	b := NewOperatorTokenIssuer([]byte("key-b-key-b-key-b-key-b-key-b-00"), "devbackend", time.Hour)
	token, _, err := a.Issue("admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate err = %v, want ErrInvalidToken", err)
	}
}

func TestOperatorTokenIssuer_RejectsExpired(t *testing.T) {
	p := NewOperatorTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "devbackend", time.Minute)
	now := time.Now()
	p.nowF = func() time.Time { return now }
	token, _, err := p.Issue("admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p.nowF = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := p.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate err = %v, want ErrInvalidToken", err)
	}
}

func TestOperatorTokenIssuer_RejectsGarbage(t *testing.T) {
	p := NewOperatorTokenIssuer([]byte("k"), "devbackend", time.Hour)
	if _, err := p.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate err = %v, want ErrInvalidToken", err)
	}
}
