package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Setting returns the stored value for key, or def when unset
func (s *Store) Setting(key, def string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", storageErr("get setting", err)
	}
	return value, nil
}

// SetSetting stores value under key, replacing any previous value
func (s *Store) SetSetting(key, value string) error {
	_, err := s.exec(s.db, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.unixNow())
	return storageErr("set setting", err)
}

// Backup writes a consistent copy of the database to path. An existing file
// at path is an error.
func (s *Store) Backup(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backup %s: file already exists", path)
	}
	if _, err := s.db.Exec("VACUUM INTO ?", path); err != nil {
		return storageErr("backup", err)
	}
	s.log.Info("database backed up", zap.String("path", path))
	return nil
}
