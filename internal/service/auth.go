package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/repository"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"go.uber.org/zap"
)

// ErrAtCapacity is returned when no more owners can be registered.
var ErrAtCapacity = repository.ErrAtCapacity

// OwnerRepository defines the persistence operations
// required by the owner registry.
type OwnerRepository interface {
	// OwnerExists returns true if owner is registered.
	OwnerExists(ctx context.Context, owner tenant.ID) (bool, error)
	// RegisterOwner adds owner unless present, refusing new owners once
	// limit is reached. It reports whether owner was added and the
	// registry size afterwards.
	RegisterOwner(ctx context.Context, owner tenant.ID, limit int) (bool, int, error)
}

// OwnerService keeps the set of owners served by this instance bounded.
type OwnerService struct {
	repo      OwnerRepository
	maxOwners int
	log       *zap.Logger
}

// NewOwnerService creates an OwnerService. maxOwners <= 0 disables the limit.
func NewOwnerService(repo OwnerRepository, maxOwners int, log *zap.Logger) *OwnerService {
	return &OwnerService{repo: repo, maxOwners: maxOwners, log: log}
}

// OwnerExists checks whether owner is registered.
func (s *OwnerService) OwnerExists(ctx context.Context, owner tenant.ID) (bool, error) {
	return s.repo.OwnerExists(ctx, owner)
}

// RegisterOwner registers owner. Registering a known owner is a no-op.
// A new owner beyond the limit gets ErrAtCapacity.
func (s *OwnerService) RegisterOwner(ctx context.Context, owner tenant.ID) error {
	added, count, err := s.repo.RegisterOwner(ctx, owner, s.maxOwners)
	if errors.Is(err, ErrAtCapacity) {
		s.log.Warn("owner registry full, registration refused",
			zap.Stringer("owner", owner), zap.Int("max", s.maxOwners))
		return err
	}
	if err != nil {
		return fmt.Errorf("register owner: %w", err)
	}
	if !added {
		return nil
	}
	s.log.Info("owner registered", zap.Stringer("owner", owner), zap.Int("owners", count))
	if s.maxOwners > 0 && count >= s.maxOwners-1 {
		s.log.Warn("owner registry nearly full",
			zap.Int("owners", count), zap.Int("max", s.maxOwners))
	}
	return nil
}
