package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postdeckhq/postdeck/internal/models"
)

type TeamRepository interface {
	Create(ctx context.Context, member *models.TeamMember) (int64, error)
	ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.TeamMember, error)
	GetRole(ctx context.Context, ownerID, userID int64) (string, bool, error)
	Remove(ctx context.Context, ownerID, userID int64) error
}

type teamRepository struct {
	db *sql.DB
}

func NewTeamRepository(db *sql.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(ctx context.Context, member *models.TeamMember) (int64, error) {
	query := `
		INSERT INTO team_members (owner_id, user_id, email, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, member.OwnerID, member.UserID, member.Email, member.Role, member.Status).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *teamRepository) ListByOwnerID(ctx context.Context, ownerID int64) ([]*models.TeamMember, error) {
	query := `
		SELECT id, owner_id, user_id, email, role, status, created_at, updated_at
		FROM team_members
		WHERE owner_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var members []*models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		err := rows.Scan(&m.ID, &m.OwnerID, &m.UserID, &m.Email, &m.Role, &m.Status, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *teamRepository) GetRole(ctx context.Context, ownerID, userID int64) (string, bool, error) {
	if ownerID == userID {
		return models.TeamRoleOwner, true, nil
	}

	query := `SELECT role FROM team_members WHERE owner_id = $1 AND user_id = $2 AND status = $3`

	var role string
	err := r.db.QueryRowContext(ctx, query, ownerID, userID, models.TeamStatusActive).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		slog.Info(err.Error())
		return "", false, err
	}

	return role, true, nil
}

func (r *teamRepository) Remove(ctx context.Context, ownerID, userID int64) error {
	query := `DELETE FROM team_members WHERE owner_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, ownerID, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
