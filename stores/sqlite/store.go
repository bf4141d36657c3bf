package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"codearena-realtime/core"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	blobTableStmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		content BLOB,
		content_type TEXT,
		updated_at DATETIME
	);`
	if _, err = db.Exec(blobTableStmt); err != nil {
		log.Fatalf("failed to create blobs table: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, content, content_type, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content, content_type = excluded.content_type, updated_at = excluded.updated_at`,
		key, content, contentType, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) Download(ctx context.Context, key string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx, "SELECT content FROM blobs WHERE key = ?", key).Scan(&content)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return content, nil
}

func (s *sqliteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM blobs WHERE key LIKE ? ESCAPE '\\'", likePattern(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, strings.TrimPrefix(key, prefix))
	}
	return keys, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) DeleteFolder(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM blobs WHERE key LIKE ? ESCAPE '\\'", likePattern(prefix))
	if err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", prefix, err)
	}
	return nil
}

// likePattern escapes LIKE metacharacters in prefix so keys containing
// % or _ match literally.
func likePattern(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}
