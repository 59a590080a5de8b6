//go:generate go run go.uber.org/mock/mockgen -source=profile_service.go -destination=../mocks/mock_profile_service.go -package=mocks
package services

import (
	"chatchat/contract"
	"chatchat/domain/chat"
	"chatchat/repositories"
	"context"
	"log/slog"
	"time"
)

// IProfileService keeps the presence bookkeeping of authenticated users.
type IProfileService interface {
	Connected(ctx context.Context, identity chat.Identity) (chat.Profile, error)
	Disconnected(ctx context.Context, userID string) error
	Logout(ctx context.Context, userID string) error
}

type ProfileService struct {
	repository repositories.IProfileRepository
	registry   contract.IRegistry
	log        *slog.Logger
	now        func() time.Time
}

func NewProfileService(repository repositories.IProfileRepository, registry contract.IRegistry, log *slog.Logger) *ProfileService {
	return &ProfileService{repository: repository, registry: registry, log: log, now: time.Now}
}

// Connected marks the user online, creating the profile the first time it is seen.
func (s *ProfileService) Connected(ctx context.Context, identity chat.Identity) (chat.Profile, error) {
	profile, err := s.repository.Upsert(ctx, identity, s.timestamp())
	if err != nil {
		return chat.Profile{}, err
	}
	s.log.Debug("Profile online", "uid", identity.UserID)
	return profile, nil
}

// Disconnected marks the user offline once their last live session is gone.
func (s *ProfileService) Disconnected(ctx context.Context, userID string) error {
	if remaining := s.registry.SessionsOf(userID); remaining > 0 {
		s.log.Debug("Profile still connected", "uid", userID, "sessions", remaining)
		return nil
	}
	return s.Logout(ctx, userID)
}

func (s *ProfileService) Logout(ctx context.Context, userID string) error {
	if err := s.repository.SetOffline(ctx, userID, s.timestamp()); err != nil {
		return err
	}
	s.log.Debug("Profile offline", "uid", userID)
	return nil
}

func (s *ProfileService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
