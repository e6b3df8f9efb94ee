package service

import (
	"context"

	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
)

type TeamService interface {
	List(ctx context.Context, ownerID int64) ([]*models.TeamMember, error)
	Invite(ctx context.Context, ownerID, callerID int64, email, role string) error
	Remove(ctx context.Context, ownerID, callerID, memberUserID int64) error
}

type teamService struct {
	tr repository.TeamRepository
	ur repository.UserRepository
}

func NewTeamService(tr repository.TeamRepository, ur repository.UserRepository) TeamService {
	return &teamService{tr: tr, ur: ur}
}

func (s *teamService) List(ctx context.Context, ownerID int64) ([]*models.TeamMember, error) {
	members, err := s.tr.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal("error listing team", err)
	}
	return members, nil
}

func (s *teamService) Invite(ctx context.Context, ownerID, callerID int64, email, role string) error {
	if email == "" {
		return apperrors.Invalid("invalid_request", "email cannot be empty")
	}
	if role != models.TeamRoleAdmin && role != models.TeamRoleMember {
		return apperrors.Invalid("invalid_role", "role must be admin or member")
	}

	if err := s.requireAdmin(ctx, ownerID, callerID); err != nil {
		return err
	}

	member := &models.TeamMember{
		OwnerID: ownerID,
		Email:   email,
		Role:    role,
		Status:  models.TeamStatusInvited,
	}

	// Link the invite to an existing user right away when one matches.
	user, isExist, err := s.ur.GetByEmail(ctx, email)
	if err == nil && isExist {
		member.UserID = user.ID
		member.Status = models.TeamStatusActive
	}

	if _, err := s.tr.Create(ctx, member); err != nil {
		return apperrors.Internal("error saving invite", err)
	}
	return nil
}

func (s *teamService) Remove(ctx context.Context, ownerID, callerID, memberUserID int64) error {
	if err := s.requireAdmin(ctx, ownerID, callerID); err != nil {
		return err
	}

	if err := s.tr.Remove(ctx, ownerID, memberUserID); err != nil {
		return apperrors.Internal("error removing member", err)
	}
	return nil
}

func (s *teamService) requireAdmin(ctx context.Context, ownerID, callerID int64) error {
	role, ok, err := s.tr.GetRole(ctx, ownerID, callerID)
	if err != nil {
		return apperrors.Internal("error checking role", err)
	}
	if !ok {
		return apperrors.Permission("not a team member")
	}
	if role != models.TeamRoleOwner && role != models.TeamRoleAdmin {
		return apperrors.Permission("admin role required")
	}
	return nil
}
