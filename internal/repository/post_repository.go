package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	ListByWindow(ctx context.Context, userID int64, from, to time.Time) ([]*models.ScheduledPost, error)
	UpdateSchedule(ctx context.Context, postID, userID int64, scheduledTime time.Time, status string, version int64) (bool, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	UpdateApproval(ctx context.Context, approval string, postID, userID int64) error
	CountByStatus(ctx context.Context, userID int64) (map[string]int64, error)
	Remove(ctx context.Context, id, userID int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, caption, title, scheduled_time, status, approval, version, created_at, updated_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := row.Scan(&post.ID, &post.UserID, &post.Caption, &post.Title, &post.ScheduledTime,
		&post.Status, &post.Approval, &post.Version, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO posts (user_id, caption, title, scheduled_time, status, approval)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Caption, post.Title, post.ScheduledTime, post.Status, post.Approval).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Caption, post.Title, post.ScheduledTime, post.Status, post.Approval).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND user_id = $2`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_time`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) ListByWindow(ctx context.Context, userID int64, from, to time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE user_id = $1 AND status = $2 AND scheduled_time BETWEEN $3 AND $4
		ORDER BY scheduled_time`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusScheduled, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// UpdateSchedule persists a new schedule only when the caller still holds the
// version it read. Returns false when the version moved underneath the caller.
func (r *postRepository) UpdateSchedule(ctx context.Context, postID, userID int64, scheduledTime time.Time, status string, version int64) (bool, error) {
	query := `
		UPDATE posts
		SET scheduled_time = $1,
			status = $2,
			version = version + 1,
			updated_at = $3
		WHERE id = $4 AND user_id = $5 AND version = $6
	`
	result, err := r.db.ExecContext(ctx, query, scheduledTime, status, time.Now(), postID, userID, version)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateApproval(ctx context.Context, approval string, postID, userID int64) error {
	query := `
		UPDATE posts
		SET approval = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4
	`
	_, err := r.db.ExecContext(ctx, query, approval, time.Now(), postID, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CountByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	query := `SELECT status, COUNT(*) FROM posts WHERE user_id = $1 GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM posts WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
