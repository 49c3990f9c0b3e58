package store

import (
	"fmt"

	"github.com/dukerupert/choretracker/internal/model"
)

func (s *Store) CreateUser(name string) (*model.User, error) {
	id, err := s.insert(s.db, `INSERT INTO users (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &model.User{ID: id, Name: name, GroupIDs: []int64{}}, nil
}

func (s *Store) GetUser(id int64) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(s.q(`SELECT id, name FROM users WHERE id = ?`), id).Scan(&u.ID, &u.Name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	rows, err := s.db.Query(s.q(`SELECT group_id FROM group_members WHERE user_id = ? ORDER BY group_id`), id)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	u.GroupIDs = []int64{}
	for rows.Next() {
		var gid int64
		if err := rows.Scan(&gid); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		u.GroupIDs = append(u.GroupIDs, gid)
	}
	return &u, rows.Err()
}

func (s *Store) ListUsers() ([]model.User, error) {
	members, err := s.membersBy(`SELECT user_id, group_id FROM group_members ORDER BY user_id, group_id`)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.GroupIDs = members[u.ID]
		if u.GroupIDs == nil {
			u.GroupIDs = []int64{}
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// membersBy groups the second column of query by the first.
func (s *Store) membersBy(query string) (map[int64][]int64, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var key, val int64
		if err := rows.Scan(&key, &val); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out[key] = append(out[key], val)
	}
	return out, rows.Err()
}
