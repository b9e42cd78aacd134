package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			video_url TEXT NOT NULL,
			thumbnail_url TEXT,
			is_public BOOLEAN NOT NULL DEFAULT 1,
			views_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create videos table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS video_views (
			id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL,
			viewer_id TEXT,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create video_views table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, v *Video) (*Video, error) {
	created := *v
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, is_public, views_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		created.ID, created.OwnerID, created.Title, created.Description,
		created.VideoURL, created.ThumbnailURL, created.IsPublic, created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert video: %w", err)
	}

	return &created, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, video_url, thumbnail_url, is_public, views_count, created_at
		 FROM videos WHERE id = ?`, id)

	var v Video
	if err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL,
		&v.ThumbnailURL, &v.IsPublic, &v.ViewsCount, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read video: %w", err)
	}

	return &v, nil
}

func (s *SQLiteStore) ListPublic(ctx context.Context) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, description, video_url, thumbnail_url, is_public, views_count, created_at
		 FROM videos WHERE is_public = 1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]Video, error) {
	query := `SELECT id, owner_id, title, description, video_url, thumbnail_url, is_public, views_count, created_at
		 FROM videos WHERE owner_id = ?`
	if !includePrivate {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (s *SQLiteStore) SetVisibility(ctx context.Context, id string, public bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE videos SET is_public = ? WHERE id = ?`, public, id)
	if err != nil {
		return fmt.Errorf("failed to update visibility: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStore) InsertViewEvent(ctx context.Context, ev ViewEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO video_views (id, video_id, viewer_id, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), ev.VideoID, ev.ViewerID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert view event: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE videos SET views_count = views_count + 1 WHERE id = ?`, ev.VideoID)
	if err != nil {
		return fmt.Errorf("failed to increment views count: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVideos(rows *sql.Rows) ([]Video, error) {
	var result []Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL,
			&v.ThumbnailURL, &v.IsPublic, &v.ViewsCount, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}
