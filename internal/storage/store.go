package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Mutation kinds recorded in the journal.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Mutation outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Mutation is one operator-issued create, update or delete against the
// category backend, recorded whether or not the backend accepted it.
type Mutation struct {
	ID           string
	Operator     string
	Op           string
	CategoryID   string
	CategoryName string
	ParentID     *string
	Outcome      string
	Message      string
	CreatedAt    time.Time
}

// Journal defines the interface for mutation persistence.
type Journal interface {
	RecordMutation(m *Mutation) error
	RecentMutations(limit int) ([]Mutation, error)
	Close() error
}

// Replaced in tests.
var (
	openDB = sql.Open
	chmod  = os.Chmod
)

// SQLiteStore implements Journal using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based journal. The dbPath is the path
// to the SQLite database file; ":memory:" is accepted for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions (only works once the file exists)
	if dbPath != ":memory:" {
		if err := chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
			db.Close()
			return nil, fmt.Errorf("failed to set database permissions: %w", err)
		}
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS mutations (
		id TEXT PRIMARY KEY,
		operator TEXT NOT NULL,
		op TEXT NOT NULL,
		category_id TEXT,
		category_name TEXT,
		parent_id TEXT,
		outcome TEXT NOT NULL,
		message TEXT,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create mutations table: %w", err)
	}

	indexQuery := `CREATE INDEX IF NOT EXISTS idx_mutations_created_at ON mutations(created_at)`
	if _, err := s.db.Exec(indexQuery); err != nil {
		return fmt.Errorf("failed to create mutations index: %w", err)
	}

	return nil
}

// RecordMutation stores a mutation. ID and CreatedAt are filled in when
// empty.
func (s *SQLiteStore) RecordMutation(m *Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO mutations (id, operator, op, category_id, category_name, parent_id, outcome, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Operator, m.Op, m.CategoryID, m.CategoryName, m.ParentID, m.Outcome, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}

	return nil
}

// RecentMutations returns up to limit mutations, newest first.
func (s *SQLiteStore) RecentMutations(limit int) ([]Mutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, operator, op, category_id, category_name, parent_id, outcome, message, created_at
		FROM mutations
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer rows.Close()

	var mutations []Mutation
	for rows.Next() {
		var m Mutation
		var categoryID, categoryName, parentID, message sql.NullString
		if err := rows.Scan(&m.ID, &m.Operator, &m.Op, &categoryID, &categoryName, &parentID, &m.Outcome, &message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		m.CategoryID = categoryID.String
		m.CategoryName = categoryName.String
		m.Message = message.String
		if parentID.Valid {
			p := parentID.String
			m.ParentID = &p
		}
		mutations = append(mutations, m)
	}

	return mutations, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
