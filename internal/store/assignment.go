package store

import (
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dukerupert/choretracker/internal/model"
	"github.com/dukerupert/choretracker/internal/tracker"
)

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var due sql.NullString
	var status string
	var completed sql.NullTime

	err := scanner.Scan(
		&a.ID, &a.ChoreID, &a.GroupID, &a.AssignedToUserID, &a.AssignedByUserID,
		&a.AssignedAt, &due, &status, &completed,
	)
	if err != nil {
		return nil, err
	}

	if due.Valid {
		d, err := civil.ParseDate(due.String)
		if err != nil {
			return nil, fmt.Errorf("parse due date %q: %w", due.String, err)
		}
		a.DueDate = &d
	}
	if a.Status, err = model.ParseStatus(status); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time.UTC()
		a.CompletedAt = &t
	}
	a.AssignedAt = a.AssignedAt.UTC()
	return &a, nil
}

const assignmentCols = `id, chore_id, group_id, assigned_to_user_id, assigned_by_user_id, assigned_at, due_date, status, completed_at`

func (s *Store) CreateAssignment(in model.NewAssignment) (*model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	checks := []struct {
		table, label string
		id           int64
	}{
		{"chores", "chore", in.ChoreID},
		{"chore_groups", "group", in.GroupID},
		{"users", "user", in.AssignedToUserID},
		{"users", "user", in.AssignedByUserID},
	}
	for _, c := range checks {
		if err := s.require(tx, c.table, c.label, c.id); err != nil {
			return nil, fmt.Errorf("create assignment: %w", err)
		}
	}

	ok, err := s.isMember(tx, in.AssignedToUserID, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("create assignment: user %d, group %d: %w", in.AssignedToUserID, in.GroupID, tracker.ErrInvalidMembership)
	}

	var due *string
	if in.DueDate != nil {
		v := in.DueDate.String()
		due = &v
	}
	id, err := s.insert(tx,
		`INSERT INTO assignments (chore_id, group_id, assigned_to_user_id, assigned_by_user_id, assigned_at, due_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ChoreID, in.GroupID, in.AssignedToUserID, in.AssignedByUserID, s.clock(), due, model.StatusPending.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}

	a, err := s.getAssignment(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *Store) GetAssignment(id int64) (*model.Assignment, error) {
	return s.getAssignment(s.db, id)
}

func (s *Store) getAssignment(qr querier, id int64) (*model.Assignment, error) {
	row := qr.QueryRow(s.q(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`), id)
	a, err := scanAssignment(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *Store) MarkDone(id int64) (*model.Assignment, error) {
	return s.resolve(id, model.StatusDone)
}

func (s *Store) MarkSkipped(id int64) (*model.Assignment, error) {
	return s.resolve(id, model.StatusSkipped)
}

func (s *Store) resolve(id int64, status model.Status) (*model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	a, err := s.getAssignment(tx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("mark %s: assignment %d: %w", status, id, tracker.ErrNotFound)
	}
	if err := a.Resolve(status, s.clock()); err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		s.q(`UPDATE assignments SET status = ?, completed_at = ? WHERE id = ?`),
		a.Status.String(), *a.CompletedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *Store) ListAssignments(f model.AssignmentFilter) ([]model.Assignment, error) {
	var where []string
	var args []any
	if f.GroupID != nil {
		where = append(where, "group_id = ?")
		args = append(args, *f.GroupID)
	}
	if f.UserID != nil {
		where = append(where, "assigned_to_user_id = ?")
		args = append(args, *f.UserID)
	}

	query := `SELECT ` + assignmentCols + ` FROM assignments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}
