package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arcletproject/entari-console/internal/instance"
)

const (
	defaultBusyTimeout = 5 * time.Second
	openTimeout        = 5 * time.Second
)

// Options describes parameters for opening the console database.
type Options struct {
	DBPath string // Optional override for console.db path (primarily for tests)
}

// DBStore is the SQLite-backed persister for the session projection and
// small console settings (e.g. the resolver's advisory base-URL cache).
type DBStore struct {
	db     *sql.DB
	dbPath string
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL DEFAULT '',
		user_name TEXT,
		user_email TEXT,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS instances (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		ignore_self_message INTEGER NOT NULL DEFAULT 1,
		log_level TEXT NOT NULL DEFAULT 'INFO',
		prefix TEXT NOT NULL DEFAULT '/',
		created_at TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'stopped',
		plugins TEXT,
		config TEXT,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// DefaultDBPath returns the console database location, honouring the
// ENTARI_CONSOLE_HOME override.
func DefaultDBPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("ENTARI_CONSOLE_HOME")); override != "" {
		return filepath.Join(override, "console.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".entari-console", "console.db"), nil
}

// OpenDB initialises the console database, creating directories and
// schema as needed.
func OpenDB(opts Options) (*DBStore, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("session: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DBStore{db: db, dbPath: dbPath}, nil
}

// Close releases the underlying database handle.
func (s *DBStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *DBStore) Path() string {
	return s.dbPath
}

// SaveSession replaces the stored session projection wholesale.
func (s *DBStore) SaveSession(snap Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var userName, userEmail any
		if snap.User != nil {
			userName = snap.User.Name
			userEmail = snap.User.Email
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO session (id, token, user_name, user_email, updated_at)
            VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
            ON CONFLICT(id) DO UPDATE SET
                token = excluded.token,
                user_name = excluded.user_name,
                user_email = excluded.user_email,
                updated_at = CURRENT_TIMESTAMP
        `, snap.Token, userName, userEmail); err != nil {
			return fmt.Errorf("session: save session row: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM instances`); err != nil {
			return fmt.Errorf("session: clear instances: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
            INSERT INTO instances (id, user_id, name, type, host, port, path,
                ignore_self_message, log_level, prefix, created_at, filename,
                state, plugins, config, position)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `)
		if err != nil {
			return fmt.Errorf("session: prepare insert instance: %w", err)
		}
		defer stmt.Close()

		for pos, ins := range snap.Instances {
			plugins, err := encodeJSON(ins.Plugins, len(ins.Plugins) == 0)
			if err != nil {
				return fmt.Errorf("session: encode plugins for instance %d: %w", ins.ID, err)
			}
			config, err := encodeJSON(ins.Config, len(ins.Config) == 0)
			if err != nil {
				return fmt.Errorf("session: encode config for instance %d: %w", ins.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				ins.ID, ins.UserID, ins.Name, ins.Type, ins.Host, ins.Port, ins.Path,
				boolToInt(ins.IgnoreSelfMessage), ins.LogLevel, ins.Prefix, ins.CreatedAt,
				ins.Filename, ins.State, plugins, config, pos,
			); err != nil {
				return fmt.Errorf("session: insert instance %d: %w", ins.ID, err)
			}
		}
		return nil
	})
}

// LoadSession restores the stored projection. The second return value is
// false when no session has ever been saved.
func (s *DBStore) LoadSession() (Snapshot, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	var snap Snapshot
	var userName, userEmail sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_name, user_email FROM session WHERE id = 1`,
	).Scan(&snap.Token, &userName, &userEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("session: load session row: %w", err)
	}
	if userName.Valid {
		snap.User = &UserProfile{Name: userName.String, Email: userEmail.String}
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, name, type, host, port, path, ignore_self_message,
               log_level, prefix, created_at, filename, state, plugins, config
        FROM instances ORDER BY position
    `)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("session: load instances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ins instance.Instance
		var ignoreSelf int
		var plugins, config sql.NullString
		if err := rows.Scan(&ins.ID, &ins.UserID, &ins.Name, &ins.Type, &ins.Host,
			&ins.Port, &ins.Path, &ignoreSelf, &ins.LogLevel, &ins.Prefix,
			&ins.CreatedAt, &ins.Filename, &ins.State, &plugins, &config); err != nil {
			return Snapshot{}, false, fmt.Errorf("session: scan instance row: %w", err)
		}
		ins.IgnoreSelfMessage = ignoreSelf != 0
		ins.Plugins, err = decodeJSON[[]string](plugins)
		if err != nil {
			return Snapshot{}, false, fmt.Errorf("session: decode plugins for instance %d: %w", ins.ID, err)
		}
		if ins.Plugins == nil {
			ins.Plugins = []string{}
		}
		ins.Config, err = decodeJSON[map[string]any](config)
		if err != nil {
			return Snapshot{}, false, fmt.Errorf("session: decode config for instance %d: %w", ins.ID, err)
		}
		snap.Instances = append(snap.Instances, ins)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, fmt.Errorf("session: iterate instance rows: %w", err)
	}

	return snap, true, nil
}

// SetSetting upserts one console setting.
func (s *DBStore) SetSetting(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = CURRENT_TIMESTAMP
    `, key, value)
	if err != nil {
		return fmt.Errorf("session: save setting %q: %w", key, err)
	}
	return nil
}

// GetSetting returns one console setting, reporting whether it exists.
func (s *DBStore) GetSetting(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: load setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *DBStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit transaction: %w", err)
	}
	return nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("session: apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin schema transaction: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("session: apply schema statement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit schema: %w", err)
	}
	return nil
}

// encodeJSON serializes value as a SQL argument; NULL when empty is true.
func encodeJSON(value any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// decodeJSON deserializes a nullable JSON SQL value into T. For
// NULL/blank values it returns the zero value of T and nil error.
func decodeJSON[T any](raw sql.NullString) (T, error) {
	var out T
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return out, err
	}
	return out, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
