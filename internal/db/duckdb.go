package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_project_id START 1;`,

		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY,
			root TEXT NOT NULL UNIQUE,
			entry_count INTEGER NOT NULL DEFAULT 0,
			loaded_at TIMESTAMP,
			last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// --- Project operations ---

// Project is a documentation root whose catalog was loaded at least once.
type Project struct {
	ID         int
	Root       string
	EntryCount int
	LoadedAt   *time.Time
	LastUsedAt time.Time
}

const projectColumns = `id, root, entry_count, loaded_at, last_used_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.Root, &p.EntryCount, &p.LoadedAt, &p.LastUsedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProject records a successful load of root with entryCount entries.
func (db *DB) UpsertProject(root string, entryCount int) (*Project, error) {
	existing, err := db.GetProject(root)
	if err != nil {
		return nil, fmt.Errorf("checking project: %w", err)
	}

	if existing != nil {
		_, err = db.conn.Exec(
			`UPDATE projects SET entry_count = ?, loaded_at = CURRENT_TIMESTAMP, last_used_at = CURRENT_TIMESTAMP WHERE id = ?`,
			entryCount, existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating project: %w", err)
		}
	} else {
		_, err = db.conn.Exec(
			`INSERT INTO projects (id, root, entry_count, loaded_at) VALUES (nextval('seq_project_id'), ?, ?, CURRENT_TIMESTAMP)`,
			root, entryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting project: %w", err)
		}
	}

	p, err := db.GetProject(root)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return p, nil
}

// TouchProject marks root as used now.
func (db *DB) TouchProject(root string) error {
	_, err := db.conn.Exec(`UPDATE projects SET last_used_at = CURRENT_TIMESTAMP WHERE root = ?`, root)
	return err
}

// GetProject returns the project with the given root, or nil.
func (db *DB) GetProject(root string) (*Project, error) {
	p, err := scanProject(db.conn.QueryRow(
		`SELECT `+projectColumns+` FROM projects WHERE root = ?`, root,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LatestProject returns the most recently used project that loaded with at
// least one entry, or nil.
func (db *DB) LatestProject() (*Project, error) {
	p, err := scanProject(db.conn.QueryRow(
		`SELECT ` + projectColumns + ` FROM projects
		 WHERE loaded_at IS NOT NULL AND entry_count > 0
		 ORDER BY last_used_at DESC, id DESC LIMIT 1`,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects, most recently used first.
func (db *DB) ListProjects() ([]Project, error) {
	rows, err := db.conn.Query(`SELECT ` + projectColumns + ` FROM projects ORDER BY last_used_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// DeleteProject forgets root and reports whether it was registered.
func (db *DB) DeleteProject(root string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM projects WHERE root = ?`, root)
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}
	return n > 0, nil
}
