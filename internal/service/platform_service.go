package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/repository"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// PlatformService manages platforms and operator preferences.
type PlatformService struct {
	platforms     repository.PlatformRepository
	userPlatforms repository.UserPlatformRepository
}

// NewPlatformService constructs the service.
func NewPlatformService(platforms repository.PlatformRepository, userPlatforms repository.UserPlatformRepository) *PlatformService {
	return &PlatformService{platforms: platforms, userPlatforms: userPlatforms}
}

// CreatePlatform registers a new platform.
func (s *PlatformService) CreatePlatform(ctx context.Context, name, repositoryURL string) (*domain.Platform, error) {
	name = strings.TrimSpace(name)
	repositoryURL = strings.TrimSpace(repositoryURL)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if _, err := url.ParseRequestURI(repositoryURL); err != nil {
		return nil, apperrors.NewValidationError("invalid repository url", map[string]any{"repository_url": repositoryURL})
	}

	platform := &domain.Platform{Name: name, RepositoryURL: repositoryURL}
	if err := s.platforms.Create(ctx, platform); err != nil {
		return nil, apperrors.MapError(err)
	}
	return platform, nil
}

// ListPlatforms returns platforms for browsing.
func (s *PlatformService) ListPlatforms(ctx context.Context, limit, offset int) ([]domain.Platform, error) {
	platforms, err := s.platforms.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return platforms, nil
}

// GetPlatform fetches one platform.
func (s *PlatformService) GetPlatform(ctx context.Context, id string) (*domain.Platform, error) {
	platform, err := s.platforms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("platform", map[string]any{"platform_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return platform, nil
}

// RegisterPreference records that an operator prefers tickets of a platform.
func (s *PlatformService) RegisterPreference(ctx context.Context, operator *domain.User, platformID string) error {
	if !operator.Role.IsStaff() {
		return apperrors.NewForbidden("operator role required")
	}
	if _, err := s.GetPlatform(ctx, platformID); err != nil {
		return err
	}
	if err := s.userPlatforms.Add(ctx, operator.ID, platformID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RemovePreference removes an operator's platform preference.
func (s *PlatformService) RemovePreference(ctx context.Context, operator *domain.User, platformID string) error {
	if err := s.userPlatforms.Remove(ctx, operator.ID, platformID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("preference", map[string]any{"platform_id": platformID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListOperators returns the platform's preferring operators in the stable
// order auto-assignment sees them.
func (s *PlatformService) ListOperators(ctx context.Context, platformID string) ([]string, error) {
	if _, err := s.GetPlatform(ctx, platformID); err != nil {
		return nil, err
	}
	operators, err := s.userPlatforms.ListOperatorsForPlatform(ctx, platformID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return operators, nil
}
