// Package store is the development backend: a sqlite-backed implementation
// of the remote store contract, served over HTTP by Server. It lets the
// client run end to end without an external service.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	embedsql "github.com/ldi/tend/embed/sql"
	"github.com/ldi/tend/pkg/models"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sql.DB
}

// Open opens a sqlite database at the given path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	return &Store{DB: db}, nil
}

// Init applies the embedded schema.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, embedsql.Schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// ListTodos returns every task in creation order.
func (s *Store) ListTodos(ctx context.Context) ([]models.Task, error) {
	query := `
		SELECT id, title, description, completed, created_at
		FROM todos
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}

// GetTodo retrieves one task, or nil if the ID is unknown.
func (s *Store) GetTodo(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT id, title, description, completed, created_at
		FROM todos
		WHERE id = ?
	`
	t, err := scanTodo(s.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTodo inserts a new task, assigning its ID and creation timestamp.
func (s *Store) CreateTodo(ctx context.Context, t *models.Task) error {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		INSERT INTO todos (id, title, description, completed, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, boolToInt(t.Completed), t.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// ReplaceTodo overwrites the mutable fields of an existing task and returns
// the stored result, or nil if the ID is unknown. created_at is immutable.
func (s *Store) ReplaceTodo(ctx context.Context, id string, fields models.TaskFields) (*models.Task, error) {
	query := `
		UPDATE todos
		SET title = ?, description = ?, completed = ?
		WHERE id = ?
	`
	res, err := s.ExecContext(ctx, query,
		fields.Title, fields.Description, boolToInt(fields.Completed), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to replace todo: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	return s.GetTodo(ctx, id)
}

// DeleteTodo removes a task. Unknown IDs report found=false, not an error.
func (s *Store) DeleteTodo(ctx context.Context, id string) (bool, error) {
	res, err := s.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (models.Task, error) {
	var (
		t         models.Task
		completed int
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &completed, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Task{}, err
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to scan todo: %w", err)
	}
	t.Completed = completed == 1
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
