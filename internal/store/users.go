package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/carnet/internal/domain"
)

// UserInput carries the fields of a new account. PasswordHash is already hashed.
type UserInput struct {
	Username     string
	PasswordHash string
	Role         string
	Surname      string
	GivenName    string
	Email        string
}

const userColumns = "id, username, role, surname, given_name, email, active, created_at, last_login_at"

func scanUser(sc scanner, hash *string) (domain.User, error) {
	var u domain.User
	var createdAt int64
	var lastLogin sql.NullInt64
	dest := []any{&u.ID, &u.Username, &u.Role, &u.Surname, &u.GivenName, &u.Email, &u.Active, &createdAt, &lastLogin}
	if hash != nil {
		dest = append(dest, hash)
	}
	err := sc.Scan(dest...)
	u.CreatedAt = fromUnix(createdAt)
	if lastLogin.Valid {
		t := fromUnix(lastLogin.Int64)
		u.LastLoginAt = &t
	}
	return u, err
}

// CreateUser inserts an account. A taken username returns ErrDuplicateName.
func (s *Store) CreateUser(actor domain.Actor, in UserInput) (int64, error) {
	if strings.TrimSpace(in.Username) == "" {
		return 0, invalid("username is required")
	}
	if in.Role != domain.RoleOwner && in.Role != domain.RoleConsultant {
		return 0, invalid("unknown role %q", in.Role)
	}

	var id int64
	err := s.withTx("create user", func(tx *sql.Tx) error {
		res, err := s.exec(tx, `
			INSERT INTO users (username, password_hash, role, surname, given_name, email, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		`, in.Username, in.PasswordHash, in.Role, in.Surname, in.GivenName, in.Email, s.unixNow())
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", in.Username, ErrDuplicateName)
		}
		if err != nil {
			return storageErr("insert user", err)
		}
		if id, err = lastID(res, "insert user"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "users", id, in.Username)
	})
	return id, err
}

// UserCredentials returns the account and its password hash
func (s *Store) UserCredentials(username string) (*domain.User, string, error) {
	var hash string
	u, err := scanUser(s.db.QueryRow(
		"SELECT "+userColumns+", password_hash FROM users WHERE username = ?", username,
	), &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, "", storageErr("get user", err)
	}
	return &u, hash, nil
}

// GetUser retrieves an account by id
func (s *Store) GetUser(id int64) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id), nil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return &u, nil
}

// CountUsers returns the number of accounts
func (s *Store) CountUsers() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, storageErr("count users", err)
	}
	return n, nil
}

// SetPasswordHash replaces the password hash of an account
func (s *Store) SetPasswordHash(actor domain.Actor, id int64, hash string) error {
	return s.withTx("set password", func(tx *sql.Tx) error {
		res, err := s.exec(tx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
		if err != nil {
			return storageErr("set password", err)
		}
		if err := requireAffected(res, "set password", "user", id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionUpdate, "users", id, "password")
	})
}

// RecordLogin stamps last_login_at and audits the login
func (s *Store) RecordLogin(id int64, username string) error {
	return s.withTx("record login", func(tx *sql.Tx) error {
		if _, err := s.exec(tx, "UPDATE users SET last_login_at = ? WHERE id = ?", s.unixNow(), id); err != nil {
			return storageErr("record login", err)
		}
		actor := domain.Actor{UserID: id, Username: username}
		return s.audit(tx, actor, ActionLogin, "users", id, "")
	})
}

// ListUsers returns every account by username
func (s *Store) ListUsers() ([]domain.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY username")
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows, nil)
		if err != nil {
			return nil, storageErr("scan user", err)
		}
		users = append(users, u)
	}
	return users, storageErr("iterate users", rows.Err())
}
