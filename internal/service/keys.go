package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/keys"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"go.uber.org/zap"
)

// ErrScopeMismatch is returned when a caller asks for another owner's key.
var ErrScopeMismatch = errors.New("service: owner scope does not match caller")

// DerivationError is returned when the key deriver fails. State is left
// unchanged.
type DerivationError struct {
	Description string
}

func (e *DerivationError) Error() string {
	return "key derivation failed: " + e.Description
}

// KeyRepository stores one encrypted key blob per owner.
type KeyRepository interface {
	// GetKey returns nil if owner has no key.
	GetKey(ctx context.Context, owner tenant.ID) ([]byte, error)
	// PutKey stores blob unless a blob exists and returns the stored one.
	PutKey(ctx context.Context, owner tenant.ID, blob []byte) ([]byte, error)
}

// Deriver produces an encrypted key blob for a derivation context.
type Deriver interface {
	DeriveKey(ctx context.Context, derivationContext, input, transportKey []byte) ([]byte, error)
}

// Registrar admits owners to the instance.
type Registrar interface {
	RegisterOwner(ctx context.Context, owner tenant.ID) error
}

// DeriveRequest asks for the key of a scope, sealed to TransportKey.
type DeriveRequest struct {
	Input        []byte
	Scope        keys.Scope
	TransportKey []byte
}

// KeyService hands out one derived key blob per owner. The blob is
// derived on first request and served from storage afterwards.
type KeyService struct {
	repo    KeyRepository
	deriver Deriver
	owners  Registrar
	maint   Maintainer
	log     *zap.Logger
}

// NewKeyService creates a KeyService.
func NewKeyService(repo KeyRepository, deriver Deriver, owners Registrar, maint Maintainer, log *zap.Logger) *KeyService {
	return &KeyService{repo: repo, deriver: deriver, owners: owners, maint: maint, log: log}
}

// GetKey returns the stored key blob of owner, or nil.
func (s *KeyService) GetKey(ctx context.Context, owner tenant.ID) ([]byte, error) {
	return s.repo.GetKey(ctx, owner)
}

// DeriveKey returns the key blob for req on behalf of caller. For an
// owner scope the key belongs to that owner, which must be the caller;
// otherwise it belongs to the caller.
//
// The deriver runs outside any store transaction. If two requests race,
// the first blob stored wins and both callers receive it.
func (s *KeyService) DeriveKey(ctx context.Context, caller tenant.ID, req DeriveRequest) ([]byte, error) {
	owner := caller
	if req.Scope.Kind == keys.ScopeOwner {
		if !bytes.Equal(req.Scope.ID, caller) {
			return nil, ErrScopeMismatch
		}
		owner = tenant.ID(req.Scope.ID)
	}

	blob, err := s.repo.GetKey(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	if blob != nil {
		return blob, nil
	}

	s.maint.Maintain(ctx)

	if err := keys.Validate(req.Input, req.TransportKey); err != nil {
		return nil, err
	}
	if err := s.owners.RegisterOwner(ctx, owner); err != nil {
		return nil, err
	}

	blob, err = s.deriver.DeriveKey(ctx, req.Scope.Context(), req.Input, req.TransportKey)
	if err != nil {
		s.log.Error("key derivation failed", zap.Stringer("owner", owner), zap.Error(err))
		return nil, &DerivationError{Description: err.Error()}
	}

	stored, err := s.repo.PutKey(ctx, owner, blob)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	s.log.Info("key derived", zap.Stringer("owner", owner))
	return stored, nil
}
