// Package distributor manages upstream suppliers and derives their
// financial and cylinder balances from order, payment, and return rows.
package distributor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balance status labels.
const (
	StatusOwed    = "owed"
	StatusCredit  = "credit"
	StatusSettled = "settled"
)

// Service provides distributor operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns a distributor service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput carries the fields for a new distributor.
type CreateInput struct {
	Name          string
	ContactNumber string
	Address       string
}

// UpdateInput carries the mutable distributor fields. Nil means unchanged.
type UpdateInput struct {
	Name          *string
	ContactNumber *string
	Address       *string
}

// FinancialBalance is the derived money position against one distributor.
type FinancialBalance struct {
	DistributorID string          `json:"distributorId"`
	TotalOrders   decimal.Decimal `json:"totalOrders"`
	TotalPayments decimal.Decimal `json:"totalPayments"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
}

// CylinderBalanceRow is the per-type pending-return position.
type CylinderBalanceRow struct {
	CylinderTypeID string                `json:"cylinderTypeId"`
	CylinderType   gormstore.CylinderType `json:"cylinderType"`
	TotalReceived  int                   `json:"totalReceived"`
	TotalReturned  int                   `json:"totalReturned"`
	PendingReturn  int                   `json:"pendingReturn"`
}

// CylinderBalance aggregates the per-type rows for one distributor.
type CylinderBalance struct {
	DistributorID      string               `json:"distributorId"`
	Rows               []CylinderBalanceRow `json:"rows"`
	TotalPendingReturn int                  `json:"totalPendingReturn"`
}

// Summary bundles a distributor with both balances and activity counts.
type Summary struct {
	Distributor      gormstore.Distributor `json:"distributor"`
	FinancialBalance FinancialBalance      `json:"financialBalance"`
	CylinderBalance  CylinderBalance       `json:"cylinderBalance"`
	OrderCount       int64                 `json:"orderCount"`
	PaymentCount     int64                 `json:"paymentCount"`
}

// Create inserts a distributor. Names are unique per tenant.
func (service *Service) Create(ctx context.Context, tenantID string, input CreateInput) (gormstore.Distributor, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return gormstore.Distributor{}, domain.Invalid("name", "name is required")
	}
	if strings.TrimSpace(input.ContactNumber) == "" {
		return gormstore.Distributor{}, domain.Invalid("contactNumber", "contact number is required")
	}
	row := gormstore.Distributor{
		TenantID:      tenantID,
		Name:          input.Name,
		ContactNumber: strings.TrimSpace(input.ContactNumber),
		Address:       strings.TrimSpace(input.Address),
		IsActive:      true,
	}
	if err := service.db.WithContext(ctx).Create(&row).Error; err != nil {
		if gormstore.IsUniqueViolation(err) {
			return gormstore.Distributor{}, fmt.Errorf("distributor %q: %w", input.Name, domain.ErrConflict)
		}
		return gormstore.Distributor{}, err
	}
	return row, nil
}

// List returns the tenant's distributors, newest first.
func (service *Service) List(ctx context.Context, tenantID string, pageNumber int, limit int, includeInactive bool) ([]gormstore.Distributor, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.db.WithContext(ctx).Model(&gormstore.Distributor{}).Where("tenant_id = ?", tenantID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.Distributor
	err := query.Order("created_at DESC").Limit(limit).Offset(page.Offset()).Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// ListAll returns distributors across every tenant. Admin only; the
// transport layer enforces the role check.
func (service *Service) ListAll(ctx context.Context, pageNumber int, limit int) ([]gormstore.Distributor, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.db.WithContext(ctx).Model(&gormstore.Distributor{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.Distributor
	err := query.Order("created_at DESC").Limit(limit).Offset(page.Offset()).Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// Get returns one owned distributor.
func (service *Service) Get(ctx context.Context, tenantID string, distributorID string) (gormstore.Distributor, error) {
	var row gormstore.Distributor
	err := service.db.WithContext(ctx).
		Where("tenant_id = ? AND distributor_id = ?", tenantID, distributorID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.Distributor{}, fmt.Errorf("distributor %s: %w", distributorID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.Distributor{}, err
	}
	return row, nil
}

// Update changes the mutable fields of an owned distributor.
func (service *Service) Update(ctx context.Context, tenantID string, distributorID string, input UpdateInput) (gormstore.Distributor, error) {
	row, err := service.Get(ctx, tenantID, distributorID)
	if err != nil {
		return gormstore.Distributor{}, err
	}
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return gormstore.Distributor{}, domain.Invalid("name", "name is required")
		}
		updates["name"] = name
	}
	if input.ContactNumber != nil {
		updates["contact_number"] = strings.TrimSpace(*input.ContactNumber)
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
			return gormstore.Distributor{}, fmt.Errorf("distributor name taken: %w", domain.ErrConflict)
		}
		return gormstore.Distributor{}, err
	}
	return service.Get(ctx, tenantID, distributorID)
}

// SetActive toggles the soft-delete flag. Repeating the current state is
// rejected so accidental double submissions surface.
func (service *Service) SetActive(ctx context.Context, tenantID string, distributorID string, active bool) (gormstore.Distributor, error) {
	row, err := service.Get(ctx, tenantID, distributorID)
	if err != nil {
		return gormstore.Distributor{}, err
	}
	if row.IsActive == active {
		if active {
			return gormstore.Distributor{}, domain.Invalid("isActive", "distributor is already active")
		}
		return gormstore.Distributor{}, domain.Invalid("isActive", "distributor is already inactive")
	}
	err = service.db.WithContext(ctx).Model(&row).Update("is_active", active).Error
	if err != nil {
		return gormstore.Distributor{}, err
	}
	row.IsActive = active
	return row, nil
}

// FinancialBalance derives the money position by summing order totals and
// payment amounts at read time.
func (service *Service) FinancialBalance(ctx context.Context, tenantID string, distributorID string) (FinancialBalance, error) {
	if _, err := service.Get(ctx, tenantID, distributorID); err != nil {
		return FinancialBalance{}, err
	}
	totalOrders, err := service.sumDecimal(ctx, &gormstore.Order{}, "total_amount", tenantID, distributorID)
	if err != nil {
		return FinancialBalance{}, err
	}
	totalPayments, err := service.sumDecimal(ctx, &gormstore.Payment{}, "amount_paid", tenantID, distributorID)
	if err != nil {
		return FinancialBalance{}, err
	}
	balance := totalOrders.Sub(totalPayments)
	status := StatusSettled
	switch {
	case balance.IsPositive():
		status = StatusOwed
	case balance.IsNegative():
		status = StatusCredit
	}
	return FinancialBalance{
		DistributorID: distributorID,
		TotalOrders:   totalOrders,
		TotalPayments: totalPayments,
		Balance:       balance,
		Status:        status,
	}, nil
}

func (service *Service) sumDecimal(ctx context.Context, model any, column string, tenantID string, distributorID string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := service.db.WithContext(ctx).Model(model).
		Where("tenant_id = ? AND distributor_id = ?", tenantID, distributorID).
		Select("COALESCE(SUM(" + column + "), 0) AS total").
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// CylinderBalance derives per-type received versus returned counts. Rows
// where both sides are zero are dropped.
func (service *Service) CylinderBalance(ctx context.Context, tenantID string, distributorID string) (CylinderBalance, error) {
	if _, err := service.Get(ctx, tenantID, distributorID); err != nil {
		return CylinderBalance{}, err
	}
	type typeTotal struct {
		CylinderTypeID string
		Quantity       int
	}
	var received []typeTotal
	err := service.db.WithContext(ctx).Model(&gormstore.OrderItem{}).
		Joins("JOIN orders ON orders.order_id = order_items.order_id").
		Where("orders.tenant_id = ? AND orders.distributor_id = ?", tenantID, distributorID).
		Select("order_items.cylinder_type_id AS cylinder_type_id, SUM(order_items.quantity) AS quantity").
		Group("order_items.cylinder_type_id").
		Scan(&received).Error
	if err != nil {
		return CylinderBalance{}, err
	}
	var returned []typeTotal
	err = service.db.WithContext(ctx).Model(&gormstore.CylinderReturn{}).
		Where("tenant_id = ? AND distributor_id = ?", tenantID, distributorID).
		Select("cylinder_type_id, SUM(quantity) AS quantity").
		Group("cylinder_type_id").
		Scan(&returned).Error
	if err != nil {
		return CylinderBalance{}, err
	}

	receivedByType := make(map[string]int, len(received))
	for _, total := range received {
		receivedByType[total.CylinderTypeID] = total.Quantity
	}
	returnedByType := make(map[string]int, len(returned))
	for _, total := range returned {
		returnedByType[total.CylinderTypeID] = total.Quantity
	}
	typeIDs := make([]string, 0, len(receivedByType))
	for typeID := range receivedByType {
		typeIDs = append(typeIDs, typeID)
	}
	for typeID := range returnedByType {
		if _, seen := receivedByType[typeID]; !seen {
			typeIDs = append(typeIDs, typeID)
		}
	}

	types, err := service.cylinderTypesByID(ctx, typeIDs)
	if err != nil {
		return CylinderBalance{}, err
	}

	balance := CylinderBalance{DistributorID: distributorID}
	for _, typeID := range typeIDs {
		receivedCount := receivedByType[typeID]
		returnedCount := returnedByType[typeID]
		if receivedCount == 0 && returnedCount == 0 {
			continue
		}
		pending := receivedCount - returnedCount
		balance.Rows = append(balance.Rows, CylinderBalanceRow{
			CylinderTypeID: typeID,
			CylinderType:   types[typeID],
			TotalReceived:  receivedCount,
			TotalReturned:  returnedCount,
			PendingReturn:  pending,
		})
		balance.TotalPendingReturn += pending
	}
	return balance, nil
}

func (service *Service) cylinderTypesByID(ctx context.Context, typeIDs []string) (map[string]gormstore.CylinderType, error) {
	byID := make(map[string]gormstore.CylinderType, len(typeIDs))
	if len(typeIDs) == 0 {
		return byID, nil
	}
	var rows []gormstore.CylinderType
	err := service.db.WithContext(ctx).Where("cylinder_type_id IN ?", typeIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		byID[row.CylinderTypeID] = row
	}
	return byID, nil
}

// Summary bundles the distributor with both derived balances.
func (service *Service) Summary(ctx context.Context, tenantID string, distributorID string) (Summary, error) {
	row, err := service.Get(ctx, tenantID, distributorID)
	if err != nil {
		return Summary{}, err
	}
	financial, err := service.FinancialBalance(ctx, tenantID, distributorID)
	if err != nil {
		return Summary{}, err
	}
	cylinders, err := service.CylinderBalance(ctx, tenantID, distributorID)
	if err != nil {
		return Summary{}, err
	}
	var orderCount, paymentCount int64
	err = service.db.WithContext(ctx).Model(&gormstore.Order{}).
		Where("tenant_id = ? AND distributor_id = ?", tenantID, distributorID).
		Count(&orderCount).Error
	if err != nil {
		return Summary{}, err
	}
	err = service.db.WithContext(ctx).Model(&gormstore.Payment{}).
		Where("tenant_id = ? AND distributor_id = ?", tenantID, distributorID).
		Count(&paymentCount).Error
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Distributor:      row,
		FinancialBalance: financial,
		CylinderBalance:  cylinders,
		OrderCount:       orderCount,
		PaymentCount:     paymentCount,
	}, nil
}
