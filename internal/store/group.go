package store

import (
	"fmt"

	"github.com/dukerupert/choretracker/internal/model"
)

func (s *Store) CreateGroup(name string) (*model.Group, error) {
	id, err := s.insert(s.db, `INSERT INTO chore_groups (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return &model.Group{ID: id, Name: name, UserIDs: []int64{}}, nil
}

func (s *Store) GetGroup(id int64) (*model.Group, error) {
	var g model.Group
	err := s.db.QueryRow(s.q(`SELECT id, name FROM chore_groups WHERE id = ?`), id).Scan(&g.ID, &g.Name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	rows, err := s.db.Query(s.q(`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id`), id)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	g.UserIDs = []int64{}
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		g.UserIDs = append(g.UserIDs, uid)
	}
	return &g, rows.Err()
}

func (s *Store) ListGroups() ([]model.Group, error) {
	members, err := s.membersBy(`SELECT group_id, user_id FROM group_members ORDER BY group_id, user_id`)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT id, name FROM chore_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := []model.Group{}
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.UserIDs = members[g.ID]
		if g.UserIDs == nil {
			g.UserIDs = []int64{}
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// --- Membership ---

func (s *Store) AddMember(userID, groupID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkPair(tx, userID, groupID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if _, err := tx.Exec(s.q(`INSERT INTO group_members (user_id, group_id) VALUES (?, ?) ON CONFLICT DO NOTHING`), userID, groupID); err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return tx.Commit()
}

func (s *Store) RemoveMember(userID, groupID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkPair(tx, userID, groupID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if _, err := tx.Exec(s.q(`DELETE FROM group_members WHERE user_id = ? AND group_id = ?`), userID, groupID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return tx.Commit()
}

func (s *Store) IsMember(userID, groupID int64) (bool, error) {
	return s.isMember(s.db, userID, groupID)
}

func (s *Store) isMember(qr querier, userID, groupID int64) (bool, error) {
	var ok bool
	err := qr.QueryRow(
		s.q(`SELECT EXISTS(SELECT 1 FROM group_members WHERE user_id = ? AND group_id = ?)`),
		userID, groupID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

func (s *Store) checkPair(qr querier, userID, groupID int64) error {
	if err := s.require(qr, "users", "user", userID); err != nil {
		return err
	}
	return s.require(qr, "chore_groups", "group", groupID)
}
