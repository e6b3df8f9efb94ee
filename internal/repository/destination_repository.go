package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/models"
)

type DestinationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostDestination, error)
	MarkSuccess(ctx context.Context, id int64, platformPostID string) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	ResetFailed(ctx context.Context, postID int64) (int64, error)
	CountByPlatform(ctx context.Context, userID int64, status string) (map[string]int64, error)
	CountByStatus(ctx context.Context, userID int64) (map[string]int64, error)
}

type destinationRepository struct {
	db *sql.DB
}

func NewDestinationRepository(db *sql.DB) DestinationRepository {
	return &destinationRepository{db: db}
}

func (r *destinationRepository) Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) (int64, error) {
	query := `
		INSERT INTO post_destinations (post_id, account_id, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	status := d.Status
	if status == "" {
		status = models.DestinationStatusPending
	}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, d.PostID, d.AccountID, status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, d.PostID, d.AccountID, status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *destinationRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostDestination, error) {
	query := `
		SELECT id, post_id, account_id, status, platform_post_id, error_message, created_at, updated_at
		FROM post_destinations
		WHERE post_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var destinations []*models.PostDestination
	for rows.Next() {
		var d models.PostDestination
		err := rows.Scan(&d.ID, &d.PostID, &d.AccountID, &d.Status, &d.PlatformPostID,
			&d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		destinations = append(destinations, &d)
	}
	return destinations, rows.Err()
}

func (r *destinationRepository) MarkSuccess(ctx context.Context, id int64, platformPostID string) error {
	query := `
		UPDATE post_destinations
		SET status = $1,
			platform_post_id = $2,
			error_message = '',
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.DestinationStatusSuccess, platformPostID, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *destinationRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE post_destinations
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.DestinationStatusFailed, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ResetFailed flips failed destinations back to pending and clears their error
// messages. Destinations that already succeeded are left untouched.
func (r *destinationRepository) ResetFailed(ctx context.Context, postID int64) (int64, error) {
	query := `
		UPDATE post_destinations
		SET status = $1,
			error_message = '',
			updated_at = $2
		WHERE post_id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.DestinationStatusPending, time.Now(), postID, models.DestinationStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return affected, nil
}

func (r *destinationRepository) CountByPlatform(ctx context.Context, userID int64, status string) (map[string]int64, error) {
	query := `
		SELECT sa.platform, COUNT(*)
		FROM post_destinations pd
		JOIN social_accounts sa ON sa.id = pd.account_id
		JOIN posts p ON p.id = pd.post_id
		WHERE p.user_id = $1 AND pd.status = $2
		GROUP BY sa.platform
	`
	rows, err := r.db.QueryContext(ctx, query, userID, status)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var platform string
		var count int64
		if err := rows.Scan(&platform, &count); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[platform] = count
	}
	return counts, rows.Err()
}

func (r *destinationRepository) CountByStatus(ctx context.Context, userID int64) (map[string]int64, error) {
	query := `
		SELECT pd.status, COUNT(*)
		FROM post_destinations pd
		JOIN posts p ON p.id = pd.post_id
		WHERE p.user_id = $1
		GROUP BY pd.status
	`
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
