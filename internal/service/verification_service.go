package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/cache"
	"github.com/rightsplace/rightsplace/internal/domain"
	"github.com/rightsplace/rightsplace/internal/events"
	"github.com/rightsplace/rightsplace/internal/repository"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// VerificationService tracks which lawyers and NGOs may hold cases.
type VerificationService struct {
	profiles repository.ProfileRepository
	cache    cache.PartnerCache
	logger   *zap.Logger
	events   publisher
}

// VerificationDependencies bundles collaborators for the verification service.
type VerificationDependencies struct {
	ProfileRepo repository.ProfileRepository
	Cache       cache.PartnerCache
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	logger := nopLogger(deps.Logger)
	partnerCache := deps.Cache
	if partnerCache == nil {
		partnerCache = cache.NewPartnerCache(nil, 0)
	}
	return &VerificationService{
		profiles: deps.ProfileRepo,
		cache:    partnerCache,
		logger:   logger,
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// VerifyPartner sets the verification flag. Verifying twice is not an error.
func (s *VerificationService) VerifyPartner(ctx context.Context, actor *domain.Actor, profileID string) (*domain.UserProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, notFoundOr(err, "profile", map[string]any{"profile_id": profileID})
	}
	if !profile.Role.IsPartner() {
		return nil, apperrors.NewFieldError("role", "Only NGOs and Lawyers can be verified.")
	}

	alreadyVerified := profile.IsVerified
	if !alreadyVerified {
		if err := s.profiles.SetVerified(ctx, profile.ID, true); err != nil {
			return nil, notFoundOr(err, "profile", map[string]any{"profile_id": profileID})
		}
		profile.IsVerified = true
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate partner cache", zap.Error(err))
		}
	}

	s.events.publish(ctx, events.Event{
		Type:  events.EventPartnerVerified,
		Actor: events.ActorFrom(actor),
		Payload: events.PartnerVerifiedPayload{
			ProfileID:       profile.ID,
			Role:            profile.Role,
			AlreadyVerified: alreadyVerified,
		},
	})
	return profile, nil
}

// ListVerifiedPartners returns verified lawyers and NGOs, newest first.
func (s *VerificationService) ListVerifiedPartners(ctx context.Context) ([]domain.UserProfile, error) {
	if partners, ok, err := s.cache.GetVerified(ctx); err != nil {
		s.logger.Warn("partner cache read failed", zap.Error(err))
	} else if ok {
		return partners, nil
	}

	verified := true
	partners, err := s.profiles.List(ctx, repository.ProfileFilter{
		Roles:    []domain.ProfileRole{domain.RoleLawyer, domain.RoleNGO},
		Verified: &verified,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.cache.SetVerified(ctx, partners); err != nil {
		s.logger.Warn("partner cache write failed", zap.Error(err))
	}
	return partners, nil
}
