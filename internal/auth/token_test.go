package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	v, err := NewVerifier([]byte("shared-secret"))
	if err != nil {
		t.Fatal(err)
	}

	token, err := v.Issue("sess-1", "user-a", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.SessionID != "sess-1" || claims.Subject != "user-a" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerifyBearerToken(t *testing.T) {
	v, _ := NewVerifier([]byte("shared-secret"))
	token, _ := v.Issue("sess-2", "u", time.Minute)

	claims, err := v.VerifyBearerToken("Bearer " + token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.SessionID != "sess-2" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := v.VerifyBearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty header error = %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer, _ := NewVerifier([]byte("secret-a"))
	verifier, _ := NewVerifier([]byte("secret-b"))

	token, _ := issuer.Issue("s", "u", time.Minute)
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	v, _ := NewVerifier([]byte("secret"))
	token, _ := v.Issue("s", "u", -time.Minute)
	if _, err := v.Verify(token); err == nil {
		t.Error("expired token must fail")
	}
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	if _, err := NewVerifier(nil); err == nil {
		t.Error("empty secret must be rejected")
	}
}
