package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cobrafacil/cobranca-api/internal/models"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error)
	FindByReference(ctx context.Context, reference string) (*models.Loan, error)
	Create(ctx context.Context, loan *models.Loan) error
	Update(ctx context.Context, loan *models.Loan) error
	List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error)
	FindOpen(ctx context.Context) ([]models.Loan, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// FindByIDWithDetails loads the loan with its installments, ledger and
// agreements in due-date/entry-date order.
func (r *loanRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_date ASC, number ASC")
		}).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("entry_date ASC, created_at ASC")
		}).
		Preload("Agreements", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Agreements.Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByReference(ctx context.Context, reference string) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("reference_code = ?", reference).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *loanRepository) List(ctx context.Context, query *ListQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Loan{})

	if status := query.Filters["status"]; status != "" {
		db = db.Where("status = ?", status)
	}
	if cycle := query.Filters["billing_cycle"]; cycle != "" {
		db = db.Where("billing_cycle = ?", cycle)
	}
	if search := query.Filters["search_term"]; search != "" {
		term := "%" + strings.ToLower(search) + "%"
		db = db.Where("LOWER(borrower_name) LIKE ? OR LOWER(reference_code) LIKE ?", term, term)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	if query.SortBy != "" {
		switch query.SortBy {
		case "borrower_name", "principal", "start_date", "status", "created_at":
			sortBy = query.SortBy
		}
	}
	sortDir := "DESC"
	if strings.EqualFold(query.SortDir, "asc") {
		sortDir = "ASC"
	}

	offset := (query.Page - 1) * query.PerPage
	err := db.Order(sortBy + " " + sortDir).
		Offset(offset).
		Limit(query.PerPage).
		Find(&loans).Error

	return loans, total, err
}

// FindOpen returns every loan with outstanding debt, installments preloaded.
// Used by the scheduled late-fee refresh.
func (r *loanRepository) FindOpen(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.LoanStatusActive, models.LoanStatusOverdue}).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_date ASC, number ASC")
		}).
		Preload("Agreements").
		Find(&loans).Error
	return loans, err
}
