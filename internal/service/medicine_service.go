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

type CreateMedicineRequest struct {
	Name         string `json:"name" binding:"required"`
	GenericName  string `json:"generic_name"`
	Manufacturer string `json:"manufacturer" binding:"required"`
	Description  string `json:"description"`
	DosageForm   string `json:"dosage_form" binding:"required"`
	Strength     string `json:"strength" binding:"required"`
}

type MedicineService interface {
	CreateMedicine(ctx context.Context, actor Actor, req CreateMedicineRequest) (*model.Medicine, error)
	GetMedicine(ctx context.Context, id string) (*model.Medicine, error)
	ListMedicines(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error)
}

type medicineService struct {
	medicineRepo repository.MedicineRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewMedicineService(
	medicineRepo repository.MedicineRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) MedicineService {
	return &medicineService{medicineRepo: medicineRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *medicineService) CreateMedicine(ctx context.Context, actor Actor, req CreateMedicineRequest) (*model.Medicine, error) {
	exists, err := s.medicineRepo.ExistsByIdentity(ctx, req.Name, req.Manufacturer, req.Strength)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if exists {
		return nil, apperror.Conflict("name", "medicine with this name, manufacturer, and strength already exists")
	}

	medicine := &model.Medicine{
		Name:         req.Name,
		GenericName:  req.GenericName,
		Manufacturer: req.Manufacturer,
		Description:  req.Description,
		DosageForm:   req.DosageForm,
		Strength:     req.Strength,
	}

	actorID := actor.ID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.medicineRepo.Create(txCtx, medicine); err != nil {
			return fmt.Errorf("failed to create medicine: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateMedicine,
			EntityID:   medicine.ID.String(),
			EntityName: medicine.Name,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return medicine, nil
}

func (s *medicineService) GetMedicine(ctx context.Context, id string) (*model.Medicine, error) {
	medicineID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid medicine id")
	}

	medicine, err := s.medicineRepo.FindByID(ctx, medicineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("id", "medicine not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return medicine, nil
}

func (s *medicineService) ListMedicines(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.medicineRepo.List(ctx, page, limit, search)
}
