// Package sqlite は gallery.Backend の SQLite 実装です。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/gallery"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS artworks (
	id TEXT PRIMARY KEY,
	image_preview_base64 TEXT NOT NULL,
	prompt_text_en TEXT NOT NULL DEFAULT '',
	prompt_text_vn TEXT NOT NULL DEFAULT '',
	style TEXT NOT NULL DEFAULT '',
	lesson_name TEXT NOT NULL DEFAULT '',
	topic_name TEXT NOT NULL DEFAULT '',
	grade INTEGER NOT NULL DEFAULT 0,
	user_id TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	visibility TEXT NOT NULL,
	saved_from TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_artworks_user_created ON artworks (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_artworks_visibility_created ON artworks (visibility, created_at DESC)`,
}

const columns = `id, image_preview_base64, prompt_text_en, prompt_text_vn, style, lesson_name,
	topic_name, grade, user_id, author_name, visibility, saved_from, created_at`

type store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore は dsn のデータベースを開き、テーブルを用意します。
func NewStore(ctx context.Context, dsn string) (gallery.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite を開けませんでした: %w", err)
	}
	// 単一ファイルへの書き込みを直列化する
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("artworks テーブルの作成に失敗しました: %w", err)
		}
	}
	return &store{db: db, now: time.Now}, nil
}

func (s *store) Insert(ctx context.Context, art *domain.Artwork) error {
	id := ulid.Make().String()
	created := s.now().UTC().Truncate(time.Millisecond)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO artworks ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, art.ImagePreviewBase64, art.PromptTextEN, art.PromptTextVN, art.Style, art.LessonName,
		art.TopicName, art.Grade, art.UserID, art.AuthorName, string(art.Visibility), art.SavedFrom,
		created.UnixMilli(),
	)
	if err != nil {
		return err
	}
	art.ID = id
	art.CreatedAt = created
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtwork(row scanner) (*domain.Artwork, error) {
	var (
		a          domain.Artwork
		visibility string
		createdMs  int64
	)
	err := row.Scan(&a.ID, &a.ImagePreviewBase64, &a.PromptTextEN, &a.PromptTextVN, &a.Style, &a.LessonName,
		&a.TopicName, &a.Grade, &a.UserID, &a.AuthorName, &visibility, &a.SavedFrom, &createdMs)
	if err != nil {
		return nil, err
	}
	a.Visibility = domain.Visibility(visibility)
	a.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &a, nil
}

func (s *store) Get(ctx context.Context, id string) (*domain.Artwork, error) {
	a, err := scanArtwork(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM artworks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gallery.ErrNotFound
	}
	return a, err
}

func (s *store) Query(ctx context.Context, where gallery.Where, limit int) ([]domain.Artwork, error) {
	var (
		conds []string
		args  []any
	)
	if where.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, where.UserID)
	}
	if where.Visibility != "" {
		conds = append(conds, "visibility = ?")
		args = append(args, string(where.Visibility))
	}
	q := "SELECT " + columns + " FROM artworks"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Artwork{}
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *store) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return gallery.ErrNotFound
	}
	return nil
}

func (s *store) UpdateVisibility(ctx context.Context, id string, v domain.Visibility) error {
	return s.exec(ctx, "UPDATE artworks SET visibility = ? WHERE id = ?", string(v), id)
}

func (s *store) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, "DELETE FROM artworks WHERE id = ?", id)
}

func (s *store) Close() error {
	return s.db.Close()
}
