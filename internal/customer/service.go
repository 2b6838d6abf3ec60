// Package customer manages retail customers and their cylinder loan
// ledger. Loaned cylinders live outside the inventory counts; the
// pending balance per type is derived by summing loan and return rows.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service provides customer and loan operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns a customer service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput carries the fields for a new customer.
type CreateInput struct {
	Name        string
	PhoneNumber string
	Address     string
}

// UpdateInput carries the mutable customer fields. Nil means unchanged.
type UpdateInput struct {
	Name        *string
	PhoneNumber *string
	Address     *string
}

// PendingReturn is the outstanding loan balance for one cylinder type.
type PendingReturn struct {
	CylinderTypeID string                 `json:"cylinderTypeId"`
	CylinderType   gormstore.CylinderType `json:"cylinderType"`
	TotalLoaned    int                    `json:"totalLoaned"`
	TotalReturned  int                    `json:"totalReturned"`
	Pending        int                    `json:"pending"`
}

// Create inserts a customer. (name, phone) is unique per tenant.
func (service *Service) Create(ctx context.Context, tenantID string, input CreateInput) (gormstore.Customer, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	if input.Name == "" {
		return gormstore.Customer{}, domain.Invalid("name", "name is required")
	}
	if input.PhoneNumber == "" {
		return gormstore.Customer{}, domain.Invalid("phoneNumber", "phone number is required")
	}
	row := gormstore.Customer{
		TenantID:    tenantID,
		Name:        input.Name,
		PhoneNumber: input.PhoneNumber,
		Address:     strings.TrimSpace(input.Address),
		IsActive:    true,
	}
	if err := service.db.WithContext(ctx).Create(&row).Error; err != nil {
		if gormstore.IsUniqueViolation(err) {
			return gormstore.Customer{}, fmt.Errorf("customer %q: %w", input.Name, domain.ErrConflict)
		}
		return gormstore.Customer{}, err
	}
	return row, nil
}

// List returns the tenant's customers, newest first.
func (service *Service) List(ctx context.Context, tenantID string, pageNumber int, limit int, includeInactive bool) ([]gormstore.Customer, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.db.WithContext(ctx).Model(&gormstore.Customer{}).Where("tenant_id = ?", tenantID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.Customer
	err := query.Order("created_at DESC").Limit(limit).Offset(page.Offset()).Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// Get returns one owned customer.
func (service *Service) Get(ctx context.Context, tenantID string, customerID string) (gormstore.Customer, error) {
	var row gormstore.Customer
	err := service.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.Customer{}, fmt.Errorf("customer %s: %w", customerID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.Customer{}, err
	}
	return row, nil
}

// Update changes the mutable fields of an owned customer.
func (service *Service) Update(ctx context.Context, tenantID string, customerID string, input UpdateInput) (gormstore.Customer, error) {
	row, err := service.Get(ctx, tenantID, customerID)
	if err != nil {
		return gormstore.Customer{}, err
	}
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return gormstore.Customer{}, domain.Invalid("name", "name is required")
		}
		updates["name"] = name
	}
	if input.PhoneNumber != nil {
		phone := strings.TrimSpace(*input.PhoneNumber)
		if phone == "" {
			return gormstore.Customer{}, domain.Invalid("phoneNumber", "phone number is required")
		}
		updates["phone_number"] = phone
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if len(updates) == 0 {
		return row, nil
	}
	err = service.db.WithContext(ctx).Model(&row).Updates(updates).Error
	if err != nil {
		if gormstore.IsUniqueViolation(err) {
			return gormstore.Customer{}, fmt.Errorf("customer identity taken: %w", domain.ErrConflict)
		}
		return gormstore.Customer{}, err
	}
	return service.Get(ctx, tenantID, customerID)
}

// SetActive toggles the soft-delete flag. Repeating the current state is
// rejected.
func (service *Service) SetActive(ctx context.Context, tenantID string, customerID string, active bool) (gormstore.Customer, error) {
	row, err := service.Get(ctx, tenantID, customerID)
	if err != nil {
		return gormstore.Customer{}, err
	}
	if row.IsActive == active {
		if active {
			return gormstore.Customer{}, domain.Invalid("isActive", "customer is already active")
		}
		return gormstore.Customer{}, domain.Invalid("isActive", "customer is already inactive")
	}
	err = service.db.WithContext(ctx).Model(&row).Update("is_active", active).Error
	if err != nil {
		return gormstore.Customer{}, err
	}
	row.IsActive = active
	return row, nil
}

// Loans returns the customer's loan rows, newest first.
func (service *Service) Loans(ctx context.Context, tenantID string, customerID string) ([]gormstore.CustomerLoan, error) {
	if _, err := service.Get(ctx, tenantID, customerID); err != nil {
		return nil, err
	}
	var rows []gormstore.CustomerLoan
	err := service.db.WithContext(ctx).
		Preload("CylinderType").
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingReturns derives the outstanding balance per cylinder type.
// Types that net to zero or below are dropped.
func (service *Service) PendingReturns(ctx context.Context, tenantID string, customerID string) ([]PendingReturn, error) {
	if _, err := service.Get(ctx, tenantID, customerID); err != nil {
		return nil, err
	}
	loaned, returned, err := loanTotals(service.db.WithContext(ctx), tenantID, customerID)
	if err != nil {
		return nil, err
	}

	typeIDs := make([]string, 0, len(loaned))
	for typeID := range loaned {
		typeIDs = append(typeIDs, typeID)
	}
	var types []gormstore.CylinderType
	if len(typeIDs) > 0 {
		err = service.db.WithContext(ctx).Where("cylinder_type_id IN ?", typeIDs).Find(&types).Error
		if err != nil {
			return nil, err
		}
	}
	typesByID := make(map[string]gormstore.CylinderType, len(types))
	for _, cylinderType := range types {
		typesByID[cylinderType.CylinderTypeID] = cylinderType
	}

	var pending []PendingReturn
	for _, typeID := range typeIDs {
		balance := loaned[typeID] - returned[typeID]
		if balance <= 0 {
			continue
		}
		pending = append(pending, PendingReturn{
			CylinderTypeID: typeID,
			CylinderType:   typesByID[typeID],
			TotalLoaned:    loaned[typeID],
			TotalReturned:  returned[typeID],
			Pending:        balance,
		})
	}
	return pending, nil
}

// RecordLoanReturn records cylinders coming back from a customer. The
// quantity must not exceed the pending balance for that type; the check
// runs inside the insert transaction so concurrent returns cannot push
// the balance below zero. Inventory is untouched, matching the loan
// model where loaned cylinders are already outside the counts.
func (service *Service) RecordLoanReturn(ctx context.Context, tenantID string, customerID string, cylinderTypeID string, quantity int, returnDate time.Time) (gormstore.LoanReturn, error) {
	if quantity <= 0 {
		return gormstore.LoanReturn{}, domain.Invalid("quantity", "quantity must be positive")
	}
	if _, err := service.Get(ctx, tenantID, customerID); err != nil {
		return gormstore.LoanReturn{}, err
	}

	var row gormstore.LoanReturn
	err := service.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the customer's loan rows for this type so the pending
		// balance cannot shrink between the check and the insert.
		var lockedLoans []gormstore.CustomerLoan
		err := gormstore.ForUpdate(tx).
			Where("tenant_id = ? AND customer_id = ? AND cylinder_type_id = ?", tenantID, customerID, cylinderTypeID).
			Find(&lockedLoans).Error
		if err != nil {
			return err
		}
		totalLoaned := 0
		for _, loan := range lockedLoans {
			totalLoaned += loan.QuantityLoaned
		}
		var totalReturned int
		err = tx.Model(&gormstore.LoanReturn{}).
			Where("tenant_id = ? AND customer_id = ? AND cylinder_type_id = ?", tenantID, customerID, cylinderTypeID).
			Select("COALESCE(SUM(quantity_returned), 0)").
			Scan(&totalReturned).Error
		if err != nil {
			return err
		}
		pending := totalLoaned - totalReturned
		if quantity > pending {
			return domain.Invalid("quantity",
				fmt.Sprintf("return of %d exceeds pending balance %d", quantity, pending))
		}
		row = gormstore.LoanReturn{
			TenantID:         tenantID,
			CustomerID:       customerID,
			CylinderTypeID:   cylinderTypeID,
			QuantityReturned: quantity,
			ReturnDate:       datatypes.Date(returnDate),
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return gormstore.LoanReturn{}, err
	}
	return row, nil
}

func loanTotals(db *gorm.DB, tenantID string, customerID string) (map[string]int, map[string]int, error) {
	type typeTotal struct {
		CylinderTypeID string
		Quantity       int
	}
	var loanedRows []typeTotal
	err := db.Model(&gormstore.CustomerLoan{}).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Select("cylinder_type_id, SUM(quantity_loaned) AS quantity").
		Group("cylinder_type_id").
		Scan(&loanedRows).Error
	if err != nil {
		return nil, nil, err
	}
	var returnedRows []typeTotal
	err = db.Model(&gormstore.LoanReturn{}).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Select("cylinder_type_id, SUM(quantity_returned) AS quantity").
		Group("cylinder_type_id").
		Scan(&returnedRows).Error
	if err != nil {
		return nil, nil, err
	}
	loaned := make(map[string]int, len(loanedRows))
	for _, total := range loanedRows {
		loaned[total.CylinderTypeID] = total.Quantity
	}
	returned := make(map[string]int, len(returnedRows))
	for _, total := range returnedRows {
		returned[total.CylinderTypeID] = total.Quantity
	}
	return loaned, returned, nil
}
