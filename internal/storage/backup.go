package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BackupManager creates and restores snapshots of the local store. Backups
// are taken through the live connection with VACUUM INTO, which is atomic
// and needs no exclusive lock, so the collection stays usable while a
// backup runs.
type BackupManager struct {
	client *Client
}

// NewBackupManager creates a backup manager for the given client.
func NewBackupManager(client *Client) *BackupManager {
	return &BackupManager{client: client}
}

// backupDir returns dir, or the "backups" sibling of the database file when
// dir is empty.
func (bm *BackupManager) backupDir(dir string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(filepath.Dir(bm.client.Path()), "backups")
}

// Backup snapshots the database into dir (default: "backups" next to the
// database file) and returns the snapshot path. The snapshot is verified
// before it is reported as a success.
func (bm *BackupManager) Backup(ctx context.Context, dir string) (string, error) {
	if !bm.client.IsConnected() {
		return "", ErrNotConnected
	}

	dir = bm.backupDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	// VACUUM INTO rejects parameters; the path is quoted instead.
	if _, err := bm.client.Execute(ctx, fmt.Sprintf("VACUUM INTO %q", path)); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}

	if err := bm.Verify(path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}

	return path, nil
}

// Verify checks that path is an openable, queryable SQLite database.
func (bm *BackupManager) Verify(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query backup: %w", err)
	}
	return nil
}

// Restore replaces the current database with the snapshot at path. The
// client must be disconnected first; the displaced database is kept next to
// its original location with an ".old" timestamp suffix.
func (bm *BackupManager) Restore(path string) error {
	if bm.client.IsConnected() {
		return fmt.Errorf("cannot restore while connected; close the client first")
	}

	if err := bm.Verify(path); err != nil {
		return fmt.Errorf("refusing to restore unverified backup: %w", err)
	}

	dbPath := bm.client.Path()
	tempPath := dbPath + ".restore.tmp"
	if err := copyFile(path, tempPath); err != nil {
		return fmt.Errorf("failed to stage restore: %w", err)
	}

	if _, err := os.Stat(dbPath); err == nil {
		displaced := fmt.Sprintf("%s.old.%s", dbPath, time.Now().Format("20060102_150405"))
		if err := os.Rename(dbPath, displaced); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to set aside current database: %w", err)
		}
	}

	if err := os.Rename(tempPath, dbPath); err != nil {
		return fmt.Errorf("failed to move restored database into place: %w", err)
	}

	return nil
}

// ExportEncrypted snapshots the database and encrypts the snapshot with the
// given password, removing the plaintext snapshot afterward. Returns the
// encrypted file path.
func (bm *BackupManager) ExportEncrypted(ctx context.Context, dir, password string) (string, error) {
	snapshot, err := bm.Backup(ctx, dir)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(snapshot) }()

	encryptedPath := snapshot + ".enc"
	if err := EncryptFile(snapshot, encryptedPath, DefaultEncryptionConfig(password)); err != nil {
		return "", fmt.Errorf("failed to encrypt backup: %w", err)
	}

	return encryptedPath, nil
}

// ImportEncrypted decrypts an encrypted export and restores it. The client
// must be disconnected first.
func (bm *BackupManager) ImportEncrypted(path, password string) error {
	decryptedPath := path + ".dec.tmp"
	if err := DecryptFile(path, decryptedPath, DefaultEncryptionConfig(password)); err != nil {
		return fmt.Errorf("failed to decrypt backup: %w", err)
	}
	defer func() { _ = os.Remove(decryptedPath) }()

	return bm.Restore(decryptedPath)
}

// BackupInfo describes one snapshot file.
type BackupInfo struct {
	Path     string
	Name     string
	Size     int64
	ModTime  time.Time
	Checksum string
}

// ListBackups returns the snapshots in dir (default: the standard backup
// directory), plain and encrypted alike.
func (bm *BackupManager) ListBackups(dir string) ([]BackupInfo, error) {
	dir = bm.backupDir(dir)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".db" && ext != ".enc" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		checksum, err := fileChecksum(path)
		if err != nil {
			checksum = "unknown"
		}

		backups = append(backups, BackupInfo{
			Path:     path,
			Name:     entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Checksum: checksum,
		})
	}

	return backups, nil
}

// copyFile copies src to dst, removing dst on failure.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// fileChecksum calculates the SHA-256 checksum of a file.
func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
