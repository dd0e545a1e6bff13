package store

import (
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbaille/carnet/internal/domain"
)

// Audit actions
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionAssign   = "assign"
	ActionUnassign = "unassign"
	ActionMerge    = "merge"
	ActionImport   = "import"
	ActionExport   = "export"
	ActionLogin    = "login"
	ActionDone     = "done"
)

// audit records a successful mutation inside the caller's transaction
func (s *Store) audit(q querier, actor domain.Actor, action, table string, targetID int64, details string) error {
	var userID, target any
	if !actor.IsSystem() {
		userID = actor.UserID
	}
	if targetID != 0 {
		target = targetID
	}

	_, err := s.exec(q, `
		INSERT INTO audit_log (id, user_id, action, target_table, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), userID, action, table, target, details, s.unixNow())
	if err != nil {
		return storageErr("insert audit entry", err)
	}

	s.log.Debug("mutation",
		zap.String("action", action),
		zap.String("table", table),
		zap.Int64("target_id", targetID),
		zap.String("actor", actor.Username),
		zap.String("details", details),
	)
	return nil
}

// Record writes a standalone audit entry, for actions that do not touch the
// contact tables (exports, logins).
func (s *Store) Record(actor domain.Actor, action, table string, targetID int64, details string) error {
	return s.withTx("record audit entry", func(tx *sql.Tx) error {
		return s.audit(tx, actor, action, table, targetID, details)
	})
}

// AuditLog returns the most recent audit entries
func (s *Store) AuditLog(limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, user_id, action, target_table, target_id, details, created_at
		FROM audit_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("list audit log", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var userID, targetID sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.TargetTable, &targetID, &e.Details, &createdAt); err != nil {
			return nil, storageErr("scan audit entry", err)
		}
		if userID.Valid {
			e.UserID = &userID.Int64
		}
		if targetID.Valid {
			e.TargetID = &targetID.Int64
		}
		e.CreatedAt = fromUnix(createdAt)
		entries = append(entries, e)
	}
	return entries, storageErr("iterate audit log", rows.Err())
}
