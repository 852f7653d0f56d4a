package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

// AgreementRepository defines the interface for renegotiation data access
type AgreementRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Agreement, error)
	FindActiveByLoan(ctx context.Context, loanID uint) (*models.Agreement, error)
	Create(ctx context.Context, agreement *models.Agreement) error
	Update(ctx context.Context, agreement *models.Agreement) error
	UpdateInstallment(ctx context.Context, installment *models.AgreementInstallment) error
}

type agreementRepository struct {
	db *gorm.DB
}

// NewAgreementRepository creates a new agreement repository
func NewAgreementRepository(db *gorm.DB) AgreementRepository {
	return &agreementRepository{db: db}
}

func (r *agreementRepository) FindByID(ctx context.Context, id uint) (*models.Agreement, error) {
	var agreement models.Agreement
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		First(&agreement, id).Error
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *agreementRepository) FindActiveByLoan(ctx context.Context, loanID uint) (*models.Agreement, error) {
	var agreement models.Agreement
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanID, models.AgreementStatusActive).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		First(&agreement).Error
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

// Create persists the agreement together with its installments in one
// transaction; a renegotiated schedule must never be half-written.
func (r *agreementRepository) Create(ctx context.Context, agreement *models.Agreement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(agreement).Error
	})
}

func (r *agreementRepository) Update(ctx context.Context, agreement *models.Agreement) error {
	return r.db.WithContext(ctx).Save(agreement).Error
}

func (r *agreementRepository) UpdateInstallment(ctx context.Context, installment *models.AgreementInstallment) error {
	return r.db.WithContext(ctx).Save(installment).Error
}
