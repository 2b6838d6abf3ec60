// Package payment records money paid to distributors. Unlike orders,
// payments are mutable: a recorded payment can be corrected or voided.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service provides payment operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns a payment service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput carries the fields for a new payment.
type CreateInput struct {
	DistributorID        string
	AmountPaid           decimal.Decimal
	PaymentDate          time.Time
	PaymentMethod        string
	TransactionReference *string
}

// UpdateInput carries the mutable payment fields. Nil means unchanged.
type UpdateInput struct {
	AmountPaid           *decimal.Decimal
	PaymentDate          *time.Time
	PaymentMethod        *string
	TransactionReference *string
}

// ListFilter narrows a payment listing.
type ListFilter struct {
	DistributorID string
	PaymentMethod string
	StartDate     *time.Time
	EndDate       *time.Time
}

// MethodTotal is the aggregate for one payment method.
type MethodTotal struct {
	PaymentMethod string          `json:"paymentMethod"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentCount  int64           `json:"paymentCount"`
}

// DistributorTotal is the aggregate for one distributor.
type DistributorTotal struct {
	DistributorID   string          `json:"distributorId"`
	DistributorName string          `json:"distributorName"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaymentCount    int64           `json:"paymentCount"`
}

// Summary aggregates payments across an optional date range.
type Summary struct {
	TotalAmount   decimal.Decimal    `json:"totalAmount"`
	PaymentCount  int64              `json:"paymentCount"`
	ByMethod      []MethodTotal      `json:"byMethod"`
	ByDistributor []DistributorTotal `json:"byDistributor"`
}

// Create records a payment against an active, owned distributor.
func (service *Service) Create(ctx context.Context, tenantID string, input CreateInput) (gormstore.Payment, error) {
	if !input.AmountPaid.IsPositive() {
		return gormstore.Payment{}, domain.Invalid("amountPaid", "amount must be positive")
	}
	if !gormstore.KnownPaymentMethod(input.PaymentMethod) {
		return gormstore.Payment{}, domain.Invalid("paymentMethod", "unknown payment method")
	}
	distributorRow, err := findDistributor(service.db.WithContext(ctx), tenantID, input.DistributorID)
	if err != nil {
		return gormstore.Payment{}, err
	}
	if !distributorRow.IsActive {
		return gormstore.Payment{}, fmt.Errorf("distributor %s: %w", input.DistributorID, domain.ErrInactive)
	}

	row := gormstore.Payment{
		TenantID:             tenantID,
		DistributorID:        input.DistributorID,
		AmountPaid:           input.AmountPaid,
		PaymentDate:          datatypes.Date(input.PaymentDate),
		PaymentMethod:        input.PaymentMethod,
		TransactionReference: normalizeReference(input.TransactionReference),
	}
	if err := service.db.WithContext(ctx).Create(&row).Error; err != nil {
		return gormstore.Payment{}, err
	}
	row.Distributor = distributorRow
	return row, nil
}

// List returns the tenant's payments filtered and paginated, newest first.
func (service *Service) List(ctx context.Context, tenantID string, filter ListFilter, pageNumber int, limit int) ([]gormstore.Payment, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.filtered(ctx, tenantID, filter)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.Payment
	err := query.Preload("Distributor").
		Order("payment_date DESC, created_at DESC").
		Limit(limit).Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// Get returns one owned payment.
func (service *Service) Get(ctx context.Context, tenantID string, paymentID string) (gormstore.Payment, error) {
	var row gormstore.Payment
	err := service.db.WithContext(ctx).
		Preload("Distributor").
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.Payment{}, fmt.Errorf("payment %s: %w", paymentID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.Payment{}, err
	}
	return row, nil
}

// Update corrects a recorded payment.
func (service *Service) Update(ctx context.Context, tenantID string, paymentID string, input UpdateInput) (gormstore.Payment, error) {
	if _, err := service.Get(ctx, tenantID, paymentID); err != nil {
		return gormstore.Payment{}, err
	}
	updates := map[string]any{}
	if input.AmountPaid != nil {
		if !input.AmountPaid.IsPositive() {
			return gormstore.Payment{}, domain.Invalid("amountPaid", "amount must be positive")
		}
		updates["amount_paid"] = *input.AmountPaid
	}
	if input.PaymentDate != nil {
		updates["payment_date"] = datatypes.Date(*input.PaymentDate)
	}
	if input.PaymentMethod != nil {
		if !gormstore.KnownPaymentMethod(*input.PaymentMethod) {
			return gormstore.Payment{}, domain.Invalid("paymentMethod", "unknown payment method")
		}
		updates["payment_method"] = *input.PaymentMethod
	}
	if input.TransactionReference != nil {
		updates["transaction_reference"] = normalizeReference(input.TransactionReference)
	}
	if len(updates) > 0 {
		err := service.db.WithContext(ctx).Model(&gormstore.Payment{}).
			Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
			Updates(updates).Error
		if err != nil {
			return gormstore.Payment{}, err
		}
	}
	return service.Get(ctx, tenantID, paymentID)
}

// Delete voids a recorded payment.
func (service *Service) Delete(ctx context.Context, tenantID string, paymentID string) error {
	result := service.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Delete(&gormstore.Payment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payment %s: %w", paymentID, domain.ErrNotFound)
	}
	return nil
}

// Summarize aggregates the filtered payments by method and distributor.
func (service *Service) Summarize(ctx context.Context, tenantID string, filter ListFilter) (Summary, error) {
	summary := Summary{TotalAmount: decimal.Zero}

	var overall struct {
		Total decimal.Decimal
		Count int64
	}
	err := service.filtered(ctx, tenantID, filter).
		Select("COALESCE(SUM(amount_paid), 0) AS total, COUNT(*) AS count").
		Scan(&overall).Error
	if err != nil {
		return Summary{}, err
	}
	summary.TotalAmount = overall.Total
	summary.PaymentCount = overall.Count

	var byMethod []MethodTotal
	err = service.filtered(ctx, tenantID, filter).
		Select("payment_method, COALESCE(SUM(amount_paid), 0) AS total_amount, COUNT(*) AS payment_count").
		Group("payment_method").
		Order("total_amount DESC").
		Scan(&byMethod).Error
	if err != nil {
		return Summary{}, err
	}
	summary.ByMethod = byMethod

	var byDistributor []DistributorTotal
	err = service.filtered(ctx, tenantID, filter).
		Joins("JOIN distributors ON distributors.distributor_id = payments.distributor_id").
		Select("payments.distributor_id AS distributor_id, distributors.name AS distributor_name, COALESCE(SUM(payments.amount_paid), 0) AS total_amount, COUNT(*) AS payment_count").
		Group("payments.distributor_id, distributors.name").
		Order("total_amount DESC").
		Scan(&byDistributor).Error
	if err != nil {
		return Summary{}, err
	}
	summary.ByDistributor = byDistributor
	return summary, nil
}

func (service *Service) filtered(ctx context.Context, tenantID string, filter ListFilter) *gorm.DB {
	query := service.db.WithContext(ctx).Model(&gormstore.Payment{}).Where("payments.tenant_id = ?", tenantID)
	if filter.DistributorID != "" {
		query = query.Where("payments.distributor_id = ?", filter.DistributorID)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payments.payment_method = ?", filter.PaymentMethod)
	}
	if filter.StartDate != nil {
		query = query.Where("payments.payment_date >= ?", datatypes.Date(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("payments.payment_date <= ?", datatypes.Date(*filter.EndDate))
	}
	return query
}

func findDistributor(db *gorm.DB, tenantID string, distributorID string) (gormstore.Distributor, error) {
	var row gormstore.Distributor
	err := db.Where("tenant_id = ? AND distributor_id = ?", tenantID, distributorID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.Distributor{}, fmt.Errorf("distributor %s: %w", distributorID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.Distributor{}, err
	}
	return row, nil
}

func normalizeReference(reference *string) *string {
	if reference == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reference)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
