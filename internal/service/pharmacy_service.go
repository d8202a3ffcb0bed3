package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreatePharmacyRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
	Phone    string `json:"phone"`
}

type UpdatePharmacyRequest struct {
	Name       string   `json:"name"`
	Location   string   `json:"location"`
	Phone      string   `json:"phone"`
	ManagerIDs []string `json:"manager_ids"`
}

type PharmacyService interface {
	CreatePharmacy(ctx context.Context, actor Actor, req CreatePharmacyRequest) (*model.Pharmacy, error)
	GetPharmacy(ctx context.Context, scope PharmacyScope, id string) (*model.Pharmacy, error)
	ListPharmacies(ctx context.Context, scope PharmacyScope, page, limit int) ([]model.Pharmacy, int64, error)
	UpdatePharmacy(ctx context.Context, actor Actor, id string, req UpdatePharmacyRequest) (*model.Pharmacy, error)
	DeletePharmacy(ctx context.Context, actor Actor, id string) error
}

type pharmacyService struct {
	pharmacyRepo repository.PharmacyRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewPharmacyService(
	pharmacyRepo repository.PharmacyRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PharmacyService {
	return &pharmacyService{
		pharmacyRepo: pharmacyRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *pharmacyService) CreatePharmacy(ctx context.Context, actor Actor, req CreatePharmacyRequest) (*model.Pharmacy, error) {
	actorID := actor.ID
	pharmacy := &model.Pharmacy{
		Name:      req.Name,
		Location:  req.Location,
		Phone:     req.Phone,
		CreatedBy: &actorID,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pharmacyRepo.Create(txCtx, pharmacy); err != nil {
			return fmt.Errorf("failed to create pharmacy: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreatePharmacy,
			EntityID:   pharmacy.ID.String(),
			EntityName: pharmacy.Name,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return pharmacy, nil
}

func (s *pharmacyService) GetPharmacy(ctx context.Context, scope PharmacyScope, id string) (*model.Pharmacy, error) {
	pharmacyID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid pharmacy id")
	}
	if !scope.Contains(pharmacyID) {
		return nil, apperror.NotFound("id", "pharmacy not found")
	}

	pharmacy, err := s.pharmacyRepo.FindByID(ctx, pharmacyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("id", "pharmacy not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return pharmacy, nil
}

func (s *pharmacyService) ListPharmacies(ctx context.Context, scope PharmacyScope, page, limit int) ([]model.Pharmacy, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	pharmacies, total, err := s.pharmacyRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	if scope.All {
		return pharmacies, total, nil
	}

	// Narrow the page to the caller's reachable set.
	visible := make([]model.Pharmacy, 0, len(pharmacies))
	for _, p := range pharmacies {
		if scope.Contains(p.ID) {
			visible = append(visible, p)
		}
	}
	return visible, int64(len(visible)), nil
}

func (s *pharmacyService) UpdatePharmacy(ctx context.Context, actor Actor, id string, req UpdatePharmacyRequest) (*model.Pharmacy, error) {
	pharmacyID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid pharmacy id")
	}

	pharmacy, err := s.pharmacyRepo.FindByID(ctx, pharmacyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("id", "pharmacy not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if req.Name != "" {
		pharmacy.Name = req.Name
	}
	if req.Location != "" {
		pharmacy.Location = req.Location
	}
	if req.Phone != "" {
		pharmacy.Phone = req.Phone
	}

	var managers []model.User
	if req.ManagerIDs != nil {
		for i, raw := range req.ManagerIDs {
			managerID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				return nil, apperror.Validation(fmt.Sprintf("manager_ids[%d]", i), "invalid user id")
			}
			user, userErr := s.userRepo.GetByID(ctx, managerID)
			if userErr != nil {
				return nil, apperror.NotFound(fmt.Sprintf("manager_ids[%d]", i), "user not found")
			}
			if user.Role != model.RoleManager {
				return nil, apperror.Validation(fmt.Sprintf("manager_ids[%d]", i), "user %s is not a manager", user.Username)
			}
			managers = append(managers, *user)
		}
	}

	actorID := actor.ID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pharmacyRepo.Update(txCtx, pharmacy); err != nil {
			return fmt.Errorf("failed to update pharmacy: %w", err)
		}
		if req.ManagerIDs != nil {
			if err := s.pharmacyRepo.ReplaceManagers(txCtx, pharmacy, managers); err != nil {
				return fmt.Errorf("failed to update pharmacy managers: %w", err)
			}
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionUpdatePharmacy,
			EntityID:   pharmacy.ID.String(),
			EntityName: pharmacy.Name,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return pharmacy, nil
}

func (s *pharmacyService) DeletePharmacy(ctx context.Context, actor Actor, id string) error {
	pharmacyID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("id", "invalid pharmacy id")
	}

	pharmacy, err := s.pharmacyRepo.FindByID(ctx, pharmacyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("id", "pharmacy not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	actorID := actor.ID
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pharmacyRepo.Delete(txCtx, pharmacyID); err != nil {
			return fmt.Errorf("failed to delete pharmacy: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionDeletePharmacy,
			EntityID:   pharmacy.ID.String(),
			EntityName: pharmacy.Name,
			Details:    `{"deleted": true}`,
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}
