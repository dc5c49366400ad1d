package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production Postgres-backed implementation.
//
// Expected schema:
//
//	watch_progress(user_id, video_id, watch_time_seconds,
//	               total_duration_seconds, progress_percentage, is_completed,
//	               last_position_seconds, bookmark_notes, first_watched_at,
//	               last_watched_at, completed_at,
//	               PRIMARY KEY (user_id, video_id),
//	               FOREIGN KEY (user_id) REFERENCES users,
//	               FOREIGN KEY (video_id) REFERENCES videos)
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const fkViolation = "23503"

// progressColumns is the scan order shared by every statement returning a row.
const progressColumns = `user_id, video_id, watch_time_seconds, total_duration_seconds,
	progress_percentage, is_completed, last_position_seconds, bookmark_notes,
	first_watched_at, last_watched_at, completed_at`

func (s *PostgresStore) Upsert(ctx context.Context, userID string, videoID int64, u ProgressUpdate) (WatchProgress, error) {
	// Derived fields and the sticky completion guard live inside the one
	// statement so concurrent reports for the same key cannot interleave.
	// On first insert the duration falls back to the catalog value; on update
	// a missing duration keeps the stored one.
	q := `
WITH input AS (
  SELECT COALESCE($4::int, (SELECT duration_seconds FROM videos WHERE video_id = $2), 0) AS duration
)
INSERT INTO watch_progress AS wp
  (user_id, video_id, watch_time_seconds, total_duration_seconds,
   progress_percentage, is_completed, last_position_seconds, bookmark_notes,
   first_watched_at, last_watched_at, completed_at)
SELECT $1, $2, $3, input.duration,
       (CASE WHEN input.duration > 0 THEN $3 * 100.0 / input.duration ELSE 0 END),
       (CASE WHEN input.duration > 0 THEN $3 * 100.0 / input.duration ELSE 0 END) >= $7,
       COALESCE($5, 0), COALESCE($6, ''), now(), now(),
       (CASE WHEN input.duration > 0 AND $3 * 100.0 / input.duration >= $7 THEN now() END)
FROM input
ON CONFLICT (user_id, video_id) DO UPDATE SET
  watch_time_seconds     = EXCLUDED.watch_time_seconds,
  total_duration_seconds = COALESCE($4, wp.total_duration_seconds),
  progress_percentage    = (CASE WHEN COALESCE($4, wp.total_duration_seconds) > 0
                                 THEN $3 * 100.0 / COALESCE($4, wp.total_duration_seconds)
                                 ELSE 0 END),
  is_completed           = wp.is_completed
                           OR (COALESCE($4, wp.total_duration_seconds) > 0
                               AND $3 * 100.0 / COALESCE($4, wp.total_duration_seconds) >= $7),
  last_position_seconds  = COALESCE($5, wp.last_position_seconds),
  bookmark_notes         = COALESCE($6, wp.bookmark_notes),
  last_watched_at        = now(),
  completed_at           = COALESCE(wp.completed_at,
                             (CASE WHEN COALESCE($4, wp.total_duration_seconds) > 0
                                    AND $3 * 100.0 / COALESCE($4, wp.total_duration_seconds) >= $7
                                   THEN now() END))
RETURNING ` + progressColumns

	row := s.db.QueryRow(ctx, q,
		userID, videoID, u.WatchTimeSeconds,
		u.TotalDurationSeconds, u.LastPositionSeconds, u.BookmarkNotes,
		CompletionThresholdPercent,
	)
	return scanProgress(row, "upsert")
}

func (s *PostgresStore) SetCompletion(ctx context.Context, userID string, videoID int64, completed bool) (WatchProgress, error) {
	// Full credit sets watch time to the effective duration and forces 100%;
	// a reset zeroes watch time and percentage. The completion flag and
	// completed_at stay sticky in both directions.
	q := `
WITH input AS (
  SELECT COALESCE((SELECT duration_seconds FROM videos WHERE video_id = $2), 0) AS duration
)
INSERT INTO watch_progress AS wp
  (user_id, video_id, watch_time_seconds, total_duration_seconds,
   progress_percentage, is_completed, last_position_seconds, bookmark_notes,
   first_watched_at, last_watched_at, completed_at)
SELECT $1, $2,
       (CASE WHEN $3 THEN input.duration ELSE 0 END),
       input.duration,
       (CASE WHEN $3 THEN 100.0 ELSE 0 END),
       $3, 0, '', now(), now(),
       (CASE WHEN $3 THEN now() END)
FROM input
ON CONFLICT (user_id, video_id) DO UPDATE SET
  watch_time_seconds     = (CASE WHEN $3
                                 THEN COALESCE(NULLIF(wp.total_duration_seconds, 0),
                                               EXCLUDED.total_duration_seconds)
                                 ELSE 0 END),
  total_duration_seconds = COALESCE(NULLIF(wp.total_duration_seconds, 0),
                                    EXCLUDED.total_duration_seconds),
  progress_percentage    = (CASE WHEN $3 THEN 100.0 ELSE 0 END),
  is_completed           = wp.is_completed OR $3,
  last_watched_at        = now(),
  completed_at           = COALESCE(wp.completed_at, (CASE WHEN $3 THEN now() END))
RETURNING ` + progressColumns

	row := s.db.QueryRow(ctx, q, userID, videoID, completed)
	return scanProgress(row, "set completion")
}

func (s *PostgresStore) Get(ctx context.Context, userID string, videoID int64) (WatchProgress, bool, error) {
	q := `SELECT ` + progressColumns + `
	      FROM watch_progress WHERE user_id = $1 AND video_id = $2`
	rec, err := scanProgress(s.db.QueryRow(ctx, q, userID, videoID), "get")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WatchProgress{}, false, nil
		}
		return WatchProgress{}, false, err
	}
	return rec, true, nil
}

func (s *PostgresStore) OverallStats(ctx context.Context, userID string) (OverallStats, error) {
	const q = `SELECT COUNT(*),
	                  COUNT(*) FILTER (WHERE is_completed),
	                  COALESCE(SUM(watch_time_seconds), 0),
	                  COALESCE(AVG(progress_percentage), 0)
	           FROM watch_progress WHERE user_id = $1`
	var out OverallStats
	err := s.db.QueryRow(ctx, q, userID).Scan(
		&out.TotalVideosWatched, &out.VideosCompleted,
		&out.TotalWatchTimeSeconds, &out.AverageProgress,
	)
	if err != nil {
		return OverallStats{}, fmt.Errorf("progress: overall stats: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SubjectStats(ctx context.Context, userID string) ([]SubjectStats, error) {
	const q = `SELECT sub.subject_id, sub.name,
	                  COUNT(*),
	                  COUNT(*) FILTER (WHERE wp.is_completed),
	                  COALESCE(AVG(wp.progress_percentage), 0)
	           FROM watch_progress wp
	           JOIN videos v ON v.video_id = wp.video_id
	           JOIN subjects sub ON sub.subject_id = v.subject_id
	           WHERE wp.user_id = $1
	           GROUP BY sub.subject_id, sub.name
	           ORDER BY sub.name`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("progress: subject stats: %w", err)
	}
	defer rows.Close()

	out := []SubjectStats{}
	for rows.Next() {
		var st SubjectStats
		if err := rows.Scan(&st.SubjectID, &st.SubjectName, &st.VideosWatched,
			&st.VideosCompleted, &st.AverageProgress); err != nil {
			return nil, fmt.Errorf("progress: subject stats scan: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityItem, error) {
	const q = `SELECT wp.video_id, v.title, COALESCE(v.thumbnail_url, ''), sub.name,
	                  wp.watch_time_seconds, wp.progress_percentage, wp.is_completed,
	                  wp.last_position_seconds, wp.last_watched_at
	           FROM watch_progress wp
	           JOIN videos v ON v.video_id = wp.video_id
	           JOIN subjects sub ON sub.subject_id = v.subject_id
	           WHERE wp.user_id = $1
	           ORDER BY wp.last_watched_at DESC, wp.video_id DESC
	           LIMIT $2`
	rows, err := s.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("progress: recent activity: %w", err)
	}
	defer rows.Close()

	out := []ActivityItem{}
	for rows.Next() {
		var it ActivityItem
		if err := rows.Scan(&it.VideoID, &it.Title, &it.ThumbnailURL, &it.SubjectName,
			&it.WatchTimeSeconds, &it.ProgressPercentage, &it.IsCompleted,
			&it.LastPositionSeconds, &it.LastWatchedAt); err != nil {
			return nil, fmt.Errorf("progress: recent activity scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RefreshUserCounters(ctx context.Context, userID string) (UserCounters, error) {
	// Full recompute in one statement; duplicate refreshes converge on the
	// same values.
	const q = `UPDATE users u SET
	             total_watch_time_seconds = agg.total,
	             videos_completed         = agg.done
	           FROM (SELECT COALESCE(SUM(watch_time_seconds), 0) AS total,
	                        COUNT(*) FILTER (WHERE is_completed) AS done
	                 FROM watch_progress WHERE user_id = $1) agg
	           WHERE u.user_id = $1
	           RETURNING u.total_watch_time_seconds, u.videos_completed`
	var c UserCounters
	err := s.db.QueryRow(ctx, q, userID).Scan(&c.TotalWatchTimeSeconds, &c.VideosCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserCounters{}, fmt.Errorf("progress: refresh counters: %w", ErrInvalidReference)
		}
		return UserCounters{}, fmt.Errorf("progress: refresh counters: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner, op string) (WatchProgress, error) {
	var rec WatchProgress
	err := row.Scan(
		&rec.UserID, &rec.VideoID, &rec.WatchTimeSeconds, &rec.TotalDurationSeconds,
		&rec.ProgressPercentage, &rec.IsCompleted, &rec.LastPositionSeconds,
		&rec.BookmarkNotes, &rec.FirstWatchedAt, &rec.LastWatchedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WatchProgress{}, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return WatchProgress{}, fmt.Errorf("progress: %s: %w", op, ErrInvalidReference)
		}
		return WatchProgress{}, fmt.Errorf("progress: %s: %w", op, err)
	}
	return rec, nil
}
