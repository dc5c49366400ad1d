package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads catalog metadata from Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetVideo(ctx context.Context, videoID int64) (Video, error) {
	const q = `SELECT video_id, subject_id, title, COALESCE(thumbnail_url, ''), duration_seconds
	           FROM videos WHERE video_id = $1`
	var v Video
	err := s.pool.QueryRow(ctx, q, videoID).
		Scan(&v.ID, &v.SubjectID, &v.Title, &v.ThumbnailURL, &v.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Video{}, ErrNotFound
		}
		return Video{}, fmt.Errorf("catalog: get video %d: %w", videoID, err)
	}
	return v, nil
}

func (s *PostgresStore) GetSubject(ctx context.Context, subjectID int64) (Subject, error) {
	const q = `SELECT subject_id, name FROM subjects WHERE subject_id = $1`
	var sub Subject
	err := s.pool.QueryRow(ctx, q, subjectID).Scan(&sub.ID, &sub.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, fmt.Errorf("catalog: get subject %d: %w", subjectID, err)
	}
	return sub, nil
}

func (s *PostgresStore) VideoInPlaylist(ctx context.Context, videoID, playlistID int64) (bool, error) {
	const q = `SELECT EXISTS (
	             SELECT 1 FROM playlist_videos
	             WHERE playlist_id = $1 AND video_id = $2)`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, playlistID, videoID).Scan(&ok); err != nil {
		return false, fmt.Errorf("catalog: playlist membership: %w", err)
	}
	return ok, nil
}
