// Package backup snapshots the SQLite database, encrypts the snapshot and
// stores it in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/choretracker/internal/model"

	_ "modernc.org/sqlite"
)

// ErrDisabled is returned when object storage or the passphrase is not
// configured.
var ErrDisabled = errors.New("backups not configured")

// s3Client is the subset of *s3.Client the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Records persists the history of backup runs.
type Records interface {
	CreateBackup(filename, s3Key string) (*model.Backup, error)
	UpdateBackupStatus(id int64, status model.BackupStatus, errorMsg string) error
	CompleteBackup(id, sizeBytes int64) error
	DeleteBackupsBefore(cutoff time.Time) ([]string, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3            S3Config
	Passphrase    string
	Prefix        string
	Interval      time.Duration
	RetentionDays int
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager runs scheduled and on-demand backups.
type Manager struct {
	mu       sync.RWMutex
	runMu    sync.Mutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time

	db      *sql.DB
	records Records
	client  s3Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager. It starts disabled unless S3 credentials
// and a passphrase are configured.
func NewManager(cfg Config, db *sql.DB, records Records, logger *slog.Logger, callback StatusCallback) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "backups/"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:      cfg,
		db:       db,
		records:  records,
		logger:   logger,
		callback: callback,
		now:      func() time.Time { return time.Now().UTC() },
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether backups can run.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// RunNow snapshots, encrypts and uploads the database, returning the
// completed run record. Concurrent calls are serialised.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	prefix := m.cfg.Prefix
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrDisabled
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	filename := fmt.Sprintf("backup-%s.db.enc", m.now().Format("2006-01-02T150405Z"))
	key := prefix + filename

	record, err := m.records.CreateBackup(filename, key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(step string, err error) (*model.Backup, error) {
		err = fmt.Errorf("%s: %w", step, err)
		if uerr := m.records.UpdateBackupStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("record backup failure", "backup_id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}

	if err := m.records.UpdateBackupStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		return fail("mark uploading", err)
	}

	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return fail("snapshot", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return fail("salt", err)
	}
	enc, err := Encrypt(snapshot, passphrase, salt)
	if err != nil {
		return fail("encrypt", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(enc),
		ContentLength: aws.Int64(int64(len(enc))),
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	size := int64(len(enc))
	if err := m.records.CompleteBackup(record.ID, size); err != nil {
		return fail("mark completed", err)
	}

	now := m.now()
	m.setStatus(Status{State: StateIdle, LastBackup: &now, LastKey: key})
	m.logger.Info("backup uploaded", "key", key, "size_bytes", size)

	record.Status = model.BackupStatusCompleted
	record.SizeBytes = size
	record.CompletedAt = &now
	return record, nil
}

// snapshot returns a consistent copy of the database file using
// VACUUM INTO, which works for both file and in-memory databases.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "choretracker-backup-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO "+quoted); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	return os.ReadFile(path)
}

// Restore downloads key, decrypts it, checks its integrity and writes it
// to dstPath. An existing file at dstPath is replaced atomically.
func (m *Manager) Restore(ctx context.Context, key, dstPath string) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return ErrDisabled
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	enc, err := io.ReadAll(result.Body)
	result.Body.Close()
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plain, err := Decrypt(enc, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmp := dstPath + ".restore"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(tmp); err != nil {
		return err
	}

	if err := os.Rename(tmp, dstPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(dstPath + "-wal")
	os.Remove(dstPath + "-shm")

	m.logger.Info("backup restored", "key", key, "path", dstPath)
	return nil
}

func checkIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes run records and stored objects older than the retention
// period. Objects under the prefix with no record are pruned by age too.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	prefix := m.cfg.Prefix
	retention := m.cfg.RetentionDays
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	cutoff := m.now().AddDate(0, 0, -retention)
	keys, err := m.records.DeleteBackupsBefore(cutoff)
	if err != nil {
		return fmt.Errorf("delete old backup records: %w", err)
	}

	stale := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		stale[k] = struct{}{}
	}

	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil && obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				stale[*obj.Key] = struct{}{}
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	for key := range stale {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete backup object", "key", key, "error", err)
		}
	}
	if len(stale) > 0 {
		m.logger.Info("old backups removed", "count", len(stale))
	}
	return nil
}
