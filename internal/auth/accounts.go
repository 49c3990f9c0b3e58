package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/tracker"
)

var (
	ErrNameTaken          = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// AccountStore persists login credentials. CreateAccount also creates the
// backing user and fails with ErrNameTaken if the name has an account.
type AccountStore interface {
	CreateAccount(name, passwordHash string) (*model.Account, error)
	AccountByName(name string) (*model.Account, error)
}

// Register hashes password and creates an account for name.
func Register(accounts AccountStore, name, password string) (*model.Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return accounts.CreateAccount(name, hash)
}

// Authenticate returns the account whose name and password match.
func Authenticate(accounts AccountStore, name, password string) (*model.Account, error) {
	acct, err := accounts.AccountByName(name)
	if err != nil {
		return nil, err
	}
	if acct == nil || !CheckPassword(acct.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

// MemoryAccounts keeps credentials in memory and creates users in the
// wrapped tracker.Store.
type MemoryAccounts struct {
	mu     sync.Mutex
	users  tracker.Store
	byName map[string]model.Account
}

func NewMemoryAccounts(users tracker.Store) *MemoryAccounts {
	return &MemoryAccounts{users: users, byName: make(map[string]model.Account)}
}

func (m *MemoryAccounts) CreateAccount(name, passwordHash string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[name]; ok {
		return nil, ErrNameTaken
	}
	u, err := m.users.CreateUser(name)
	if err != nil {
		return nil, fmt.Errorf("create account user: %w", err)
	}
	acct := model.Account{UserID: u.ID, Name: name, PasswordHash: passwordHash}
	m.byName[name] = acct
	return &acct, nil
}

func (m *MemoryAccounts) AccountByName(name string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.byName[name]
	if !ok {
		return nil, nil
	}
	return &acct, nil
}
