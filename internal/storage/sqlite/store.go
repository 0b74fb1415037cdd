package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sqlite3 "github.com/mattn/go-sqlite3"

	"taskboard/internal/models"
)

var (
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
)

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	// Foreign keys stay off: comments may reference task ids that do not exist.
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=OFF", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("sqlite store ready", slog.String("path", dbPath))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            description TEXT,
            status TEXT DEFAULT 'To Do',
            assignee TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS comments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_id INTEGER NOT NULL,
            comment TEXT NOT NULL,
            author TEXT NOT NULL,
            FOREIGN KEY (task_id) REFERENCES tasks (id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// withConn acquires a dedicated connection for one operation and always
// returns it to the pool.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// CreateUser inserts a user whose password is already hashed.
// A taken username yields ErrDuplicate and leaves the table untouched.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	var user models.User
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `INSERT INTO users(username, password) VALUES(?, ?)`, username, passwordHash)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert user: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		user = models.User{ID: id, Username: username, Password: passwordHash}
		return nil
	})
	return user, err
}

// FindUserByUsername fetches a single user by name.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `SELECT id, username, password FROM users WHERE username = ?`, username).
			Scan(&u.ID, &u.Username, &u.Password)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	return u, err
}

// CreateTask inserts a task. A nil description is stored as NULL.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `INSERT INTO tasks(title, description, status, assignee) VALUES(?, ?, ?, ?)`,
			t.Title, nullString(t.Description), nullString(t.Status), t.Assignee)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		t.ID = id
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListTasks returns every task in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id, title, description, status, assignee FROM tasks ORDER BY id`)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				t           models.Task
				description sql.NullString
				status      sql.NullString
				assignee    sql.NullString
			)
			if err := rows.Scan(&t.ID, &t.Title, &description, &status, &assignee); err != nil {
				return fmt.Errorf("scan task: %w", err)
			}
			if description.Valid {
				t.Description = &description.String
			}
			if status.Valid {
				t.Status = &status.String
			}
			t.Assignee = assignee.String
			tasks = append(tasks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateComment inserts a comment. The referenced task is not checked.
func (s *Store) CreateComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `INSERT INTO comments(task_id, comment, author) VALUES(?, ?, ?)`, c.TaskID, c.Comment, c.Author)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("comment id: %w", err)
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

// ListCommentsByTask returns the comments of one task in insertion order.
func (s *Store) ListCommentsByTask(ctx context.Context, taskID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id, task_id, comment, author FROM comments WHERE task_id = ? ORDER BY id`, taskID)
		if err != nil {
			return fmt.Errorf("list comments: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c models.Comment
			if err := rows.Scan(&c.ID, &c.TaskID, &c.Comment, &c.Author); err != nil {
				return fmt.Errorf("scan comment: %w", err)
			}
			comments = append(comments, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
