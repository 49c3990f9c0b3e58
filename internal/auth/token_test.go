package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, err := iss.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	uid, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uid != 42 {
		t.Errorf("user id = %d, want 42", uid)
	}
}

func TestParseExpired(t *testing.T) {
	now := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	iss := NewIssuer("secret", time.Hour, WithTimeFunc(func() time.Time { return now }))
	tok, err := iss.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(61 * time.Minute)
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	tok, _ := NewIssuer("one", time.Hour).Issue(1)
	if _, err := NewIssuer("two", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewIssuer("secret", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseMissingUserID(t *testing.T) {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if _, err := NewIssuer("secret", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := NewIssuer("secret", 0).Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestNewIssuerDefaultTTL(t *testing.T) {
	if got := NewIssuer("s", 0).TTL(); got != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", got, DefaultTokenTTL)
	}
}

func TestIssueSetsSubject(t *testing.T) {
	tok, err := NewIssuer("secret", time.Hour).Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims["sub"] != "42" {
		t.Errorf("sub = %v, want \"42\"", claims["sub"])
	}
	if claims["user_id"] != float64(42) {
		t.Errorf("user_id = %v, want 42", claims["user_id"])
	}
}
