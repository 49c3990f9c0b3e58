package auth

import (
	"errors"
	"testing"

	"github.com/dukerupert/choretracker/internal/tracker"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	tr := tracker.New()
	accounts := NewMemoryAccounts(tr)

	acct, err := Register(accounts, "alice", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acct.UserID != 1 {
		t.Errorf("user id = %d, want 1", acct.UserID)
	}
	if acct.PasswordHash == "hunter22" {
		t.Error("password stored in clear")
	}

	u, _ := tr.GetUser(acct.UserID)
	if u == nil || u.Name != "alice" {
		t.Errorf("backing user = %+v, want alice", u)
	}

	got, err := Authenticate(accounts, "alice", "hunter22")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.UserID != acct.UserID {
		t.Errorf("user id = %d, want %d", got.UserID, acct.UserID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	tr := tracker.New()
	accounts := NewMemoryAccounts(tr)
	if _, err := Register(accounts, "alice", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := Register(accounts, "alice", "other"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("err = %v, want ErrNameTaken", err)
	}
	users, _ := tr.ListUsers()
	if len(users) != 1 {
		t.Errorf("user count = %d, want 1", len(users))
	}
}

func TestAuthenticateFailures(t *testing.T) {
	accounts := NewMemoryAccounts(tracker.New())
	Register(accounts, "alice", "right")

	if _, err := Authenticate(accounts, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := Authenticate(accounts, "bob", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("expected match")
	}
	if CheckPassword(hash, "S3cret") {
		t.Error("expected mismatch")
	}
}
