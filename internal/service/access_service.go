package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// Actor is the authenticated identity behind a request. It is passed
// explicitly into every engine call; no service reads ambient session state.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// PharmacyScope is the set of pharmacies an actor may touch. It is resolved
// once per request and handed to services as an explicit filter.
type PharmacyScope struct {
	All bool
	IDs []uuid.UUID
}

// Contains reports whether the scope reaches the given pharmacy.
func (s PharmacyScope) Contains(pharmacyID uuid.UUID) bool {
	if s.All {
		return true
	}
	for _, id := range s.IDs {
		if id == pharmacyID {
			return true
		}
	}
	return false
}

// InventoryFilter converts the scope into a repository listing filter.
func (s PharmacyScope) InventoryFilter() repository.InventoryFilter {
	return repository.InventoryFilter{All: s.All, PharmacyIDs: s.IDs}
}

// SaleFilter converts the scope into a sale listing filter.
func (s PharmacyScope) SaleFilter() repository.SaleFilter {
	return repository.SaleFilter{All: s.All, PharmacyIDs: s.IDs}
}

// AccessService maps an actor to its reachable pharmacy set: ADMIN sees
// every pharmacy, MANAGER the managed set, STAFF only the assigned pharmacy.
type AccessService interface {
	ResolvePharmacyScope(ctx context.Context, actor Actor) (PharmacyScope, error)
}

type accessService struct {
	userRepo     repository.UserRepository
	pharmacyRepo repository.PharmacyRepository
}

func NewAccessService(userRepo repository.UserRepository, pharmacyRepo repository.PharmacyRepository) AccessService {
	return &accessService{userRepo: userRepo, pharmacyRepo: pharmacyRepo}
}

func (s *accessService) ResolvePharmacyScope(ctx context.Context, actor Actor) (PharmacyScope, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return PharmacyScope{All: true}, nil
	case model.RoleManager:
		ids, err := s.pharmacyRepo.ListIDsManagedBy(ctx, actor.ID)
		if err != nil {
			return PharmacyScope{}, fmt.Errorf("failed to resolve managed pharmacies: %w", err)
		}
		return PharmacyScope{IDs: ids}, nil
	case model.RoleStaff:
		user, err := s.userRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return PharmacyScope{}, fmt.Errorf("failed to resolve staff assignment: %w", err)
		}
		if user.AssignedPharmacyID == nil {
			return PharmacyScope{}, nil
		}
		return PharmacyScope{IDs: []uuid.UUID{*user.AssignedPharmacyID}}, nil
	}
	return PharmacyScope{}, nil
}
