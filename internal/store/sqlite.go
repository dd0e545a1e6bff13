package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Supported database/sql driver names
const (
	DriverCGo    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// Store handles database operations
type Store struct {
	db    *sql.DB
	log   *zap.Logger
	now   func() time.Time
	hooks hooks
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// hooks lets tests intercept writes. A nil exec uses q.Exec.
type hooks struct {
	exec func(q querier, query string, args ...any) (sql.Result, error)
}

type options struct {
	driver string
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Store
type Option func(*options)

// WithDriver selects the SQLite driver (DriverCGo or DriverPureGo)
func WithDriver(name string) Option {
	return func(o *options) {
		if name != "" {
			o.driver = name
		}
	}
}

// WithLogger sets the logger used for mutation traces
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a new Store with the given database path
func New(dbPath string, opts ...Option) (*Store, error) {
	o := options{driver: DriverCGo, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open(o.driver, dsn(o.driver, dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, log: o.logger, now: o.now}, nil
}

// dsn carries the pragmas in the connection string so that every pooled
// connection gets them, not only the one that ran a PRAGMA statement.
func dsn(driver, path string) string {
	if driver == DriverPureGo {
		return "file:" + path +
			"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" +
			"&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	}
	return "file:" + path +
		"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate"
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for collaborators such as the auth layer
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) exec(q querier, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(q, query, args...)
	}
	return q.Exec(query, args...)
}

// withTx runs fn in a transaction. Any error from fn rolls everything back.
func (s *Store) withTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storageErr(op+": begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op+": commit", err)
	}
	return nil
}

func (s *Store) unixNow() int64 {
	return s.now().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func lastID(res sql.Result, op string) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr(op+": last insert id", err)
	}
	return id, nil
}

// requireAffected maps a zero-row write to ErrNotFound
func requireAffected(res sql.Result, op, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op+": rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

func exists(q querier, table string, id int64) (bool, error) {
	var ok bool
	// table is always a package constant, never caller input
	err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = ?)", id).Scan(&ok)
	return ok, err
}

func (s *Store) requireExists(q querier, op, table, what string, id int64) error {
	ok, err := exists(q, table, id)
	if err != nil {
		return storageErr(op, err)
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
