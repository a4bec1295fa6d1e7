package auth

import (
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := Claims{
		Sub:  "user-1",
		Name: "Dr. Adams",
		Role: "staff",
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(1 * time.Hour).Unix(),
	}
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Name != claims.Name || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256Expired(t *testing.T) {
	claims := Claims{
		Sub: "user-2",
		Exp: time.Now().Add(-1 * time.Minute).Unix(),
	}
	token, err := SignHS256(claims, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseHeader(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "u"}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	header, err := ParseHeader(token)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if header.Alg != "HS256" {
		t.Fatalf("unexpected alg %q", header.Alg)
	}
	if _, err := ParseHeader("not-a-token"); err == nil {
		t.Fatal("expected malformed token to be rejected")
	}
}
