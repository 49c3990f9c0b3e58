package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choretracker/internal/model"
)

const backupCols = `id, filename, s3_key, size_bytes, status, error_message, started_at, completed_at, created_at`

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	var startedAt, completedAt sql.NullTime
	err := scanner.Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status, &b.ErrorMessage, &startedAt, &completedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		b.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

// CreateBackup records a new run in the pending state.
func (s *Store) CreateBackup(filename, s3Key string) (*model.Backup, error) {
	now := s.clock()
	id, err := s.insert(s.db,
		`INSERT INTO backups (filename, s3_key, status, started_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		filename, s3Key, string(model.BackupStatusPending), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return s.GetBackup(id)
}

func (s *Store) GetBackup(id int64) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRow(s.q(`SELECT `+backupCols+` FROM backups WHERE id = ?`), id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

// ListBackups returns the newest runs first.
func (s *Store) ListBackups(limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(s.q(`SELECT `+backupCols+` FROM backups ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	backups := []model.Backup{}
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *Store) UpdateBackupStatus(id int64, status model.BackupStatus, errorMsg string) error {
	_, err := s.db.Exec(
		s.q(`UPDATE backups SET status = ?, error_message = ? WHERE id = ?`),
		string(status), errorMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *Store) CompleteBackup(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		s.q(`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`),
		string(model.BackupStatusCompleted), sizeBytes, s.clock(), id,
	)
	if err != nil {
		return fmt.Errorf("complete backup: %w", err)
	}
	return nil
}

// DeleteBackupsBefore removes run records created before cutoff and
// returns their object keys.
func (s *Store) DeleteBackupsBefore(cutoff time.Time) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(s.q(`SELECT s3_key FROM backups WHERE created_at < ?`), cutoff)
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan s3 key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(s.q(`DELETE FROM backups WHERE created_at < ?`), cutoff); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, tx.Commit()
}
