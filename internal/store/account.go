package store

import (
	"fmt"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/model"
)

var _ auth.AccountStore = (*Store)(nil)

// CreateAccount inserts a user row carrying a password hash. Plain users
// created through CreateUser have an empty hash and never collide.
func (s *Store) CreateAccount(name, passwordHash string) (*model.Account, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var taken bool
	err = tx.QueryRow(
		s.q(`SELECT EXISTS(SELECT 1 FROM users WHERE name = ? AND password_hash <> '')`), name,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check account name: %w", err)
	}
	if taken {
		return nil, auth.ErrNameTaken
	}

	id, err := s.insert(tx, `INSERT INTO users (name, password_hash) VALUES (?, ?)`, name, passwordHash)
	if isUniqueViolation(err) {
		return nil, auth.ErrNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &model.Account{UserID: id, Name: name, PasswordHash: passwordHash}, nil
}

func (s *Store) AccountByName(name string) (*model.Account, error) {
	var a model.Account
	err := s.db.QueryRow(
		s.q(`SELECT id, name, password_hash FROM users WHERE name = ? AND password_hash <> ''`), name,
	).Scan(&a.UserID, &a.Name, &a.PasswordHash)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}
