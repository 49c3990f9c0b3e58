package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/choretracker/internal/model"
)

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var desc sql.NullString
	var createdBy sql.NullInt64

	if err := scanner.Scan(&c.ID, &c.Title, &desc, &createdBy); err != nil {
		return nil, err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	if createdBy.Valid {
		c.CreatedByUserID = &createdBy.Int64
	}
	return &c, nil
}

const choreCols = `id, title, description, created_by_user_id`

func (s *Store) CreateChore(title string, description *string, createdByUserID *int64) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if createdByUserID != nil {
		if err := s.require(tx, "users", "user", *createdByUserID); err != nil {
			return nil, fmt.Errorf("create chore: %w", err)
		}
	}
	id, err := s.insert(tx,
		`INSERT INTO chores (title, description, created_by_user_id) VALUES (?, ?, ?)`,
		title, description, createdByUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetChore(id)
}

func (s *Store) GetChore(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(s.q(`SELECT `+choreCols+` FROM chores WHERE id = ?`), id)
	c, err := scanChore(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *Store) ListChores() ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT ` + choreCols + ` FROM chores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	chores := []model.Chore{}
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}
