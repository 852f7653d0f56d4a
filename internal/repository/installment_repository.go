package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Installment, error)
	FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error)
	Create(ctx context.Context, installment *models.Installment) error
	Update(ctx context.Context, installment *models.Installment) error
	FindOverdue(ctx context.Context, asOf time.Time) ([]models.Installment, error)
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		Preload("Loan").
		First(&installment, id).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("due_date ASC, number ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) Create(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Create(installment).Error
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Save(installment).Error
}

// FindOverdue returns unsettled installments past their due date, with the
// owning loan preloaded for rate lookup.
func (r *installmentRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("due_date < ? AND status IN ?", asOf,
			[]string{models.InstallmentStatusPending, models.InstallmentStatusPartial, models.InstallmentStatusLate}).
		Preload("Loan").
		Order("due_date ASC").
		Find(&installments).Error
	return installments, err
}
