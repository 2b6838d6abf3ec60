// Package staff manages the tenant's sales employees.
package staff

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

// Top-performer listing bounds.
const (
	defaultTopPerformers = 5
	maxTopPerformers     = 50
)

// Service provides staff operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns a staff service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput carries the fields for a new staff member.
type CreateInput struct {
	Name         string
	MobileNumber string
	Address      string
}

// UpdateInput carries the mutable staff fields. Nil means unchanged.
type UpdateInput struct {
	Name         *string
	MobileNumber *string
	Address      *string
}

// Create inserts a staff member. (name, mobile) is unique per tenant.
func (service *Service) Create(ctx context.Context, tenantID string, input CreateInput) (gormstore.Staff, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.MobileNumber = strings.TrimSpace(input.MobileNumber)
	if input.Name == "" {
		return gormstore.Staff{}, domain.Invalid("name", "name is required")
	}
	if input.MobileNumber == "" {
		return gormstore.Staff{}, domain.Invalid("mobileNumber", "mobile number is required")
	}
	row := gormstore.Staff{
		TenantID:     tenantID,
		Name:         input.Name,
		MobileNumber: input.MobileNumber,
		Address:      strings.TrimSpace(input.Address),
		IsActive:     true,
	}
	if err := service.db.WithContext(ctx).Create(&row).Error; err != nil {
		if gormstore.IsUniqueViolation(err) {
			return gormstore.Staff{}, fmt.Errorf("staff %q: %w", input.Name, domain.ErrConflict)
		}
		return gormstore.Staff{}, err
	}
	return row, nil
}

// List returns the tenant's staff, newest first.
func (service *Service) List(ctx context.Context, tenantID string, pageNumber int, limit int, includeInactive bool) ([]gormstore.Staff, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.db.WithContext(ctx).Model(&gormstore.Staff{}).Where("tenant_id = ?", tenantID)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.Staff
	err := query.Order("created_at DESC").Limit(limit).Offset(page.Offset()).Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// Get returns one owned staff member.
func (service *Service) Get(ctx context.Context, tenantID string, staffID string) (gormstore.Staff, error) {
	var row gormstore.Staff
	err := service.db.WithContext(ctx).
		Where("tenant_id = ? AND staff_id = ?", tenantID, staffID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.Staff{}, fmt.Errorf("staff %s: %w", staffID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.Staff{}, err
	}
	return row, nil
}

// Update changes the mutable fields of an owned staff member.
func (service *Service) Update(ctx context.Context, tenantID string, staffID string, input UpdateInput) (gormstore.Staff, error) {
	row, err := service.Get(ctx, tenantID, staffID)
	if err != nil {
		return gormstore.Staff{}, err
	}
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return gormstore.Staff{}, domain.Invalid("name", "name is required")
		}
		updates["name"] = name
	}
	if input.MobileNumber != nil {
		mobile := strings.TrimSpace(*input.MobileNumber)
		if mobile == "" {
			return gormstore.Staff{}, domain.Invalid("mobileNumber", "mobile number is required")
		}
		updates["mobile_number"] = mobile
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
			return gormstore.Staff{}, fmt.Errorf("staff identity taken: %w", domain.ErrConflict)
		}
		return gormstore.Staff{}, err
	}
	return service.Get(ctx, tenantID, staffID)
}

// SetActive toggles the soft-delete flag. Repeating the current state is
// rejected.
func (service *Service) SetActive(ctx context.Context, tenantID string, staffID string, active bool) (gormstore.Staff, error) {
	row, err := service.Get(ctx, tenantID, staffID)
	if err != nil {
		return gormstore.Staff{}, err
	}
	if row.IsActive == active {
		if active {
			return gormstore.Staff{}, domain.Invalid("isActive", "staff is already active")
		}
		return gormstore.Staff{}, domain.Invalid("isActive", "staff is already inactive")
	}
	err = service.db.WithContext(ctx).Model(&row).Update("is_active", active).Error
	if err != nil {
		return gormstore.Staff{}, err
	}
	row.IsActive = active
	return row, nil
}

// Performance summarizes one staff member's sales output.
type Performance struct {
	TotalSalesDays       int             `json:"totalSalesDays"`
	TotalRevenue         decimal.Decimal `json:"totalRevenue"`
	TotalCylindersSold   int             `json:"totalCylindersSold"`
	AverageRevenuePerDay decimal.Decimal `json:"averageRevenuePerDay"`
	FirstSaleDate        *datatypes.Date `json:"firstSaleDate"`
	LastSaleDate         *datatypes.Date `json:"lastSaleDate"`
}

// PerformerTotal ranks one staff member by revenue.
type PerformerTotal struct {
	StaffID            string          `json:"staffId"`
	StaffName          string          `json:"staffName"`
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	TotalCylindersSold int             `json:"totalCylindersSold"`
	TotalSalesDays     int64           `json:"totalSalesDays"`
}

// Summary bundles a staff member with their lifetime performance.
type Summary struct {
	Staff       gormstore.Staff `json:"staff"`
	Performance Performance     `json:"performance"`
}

// Performance aggregates one owned staff member's sales, optionally
// limited to a date range. A staff member with no sales reports zero
// totals and nil sale dates.
func (service *Service) Performance(ctx context.Context, tenantID string, staffID string, from *time.Time, to *time.Time) (Performance, error) {
	if _, err := service.Get(ctx, tenantID, staffID); err != nil {
		return Performance{}, err
	}
	var saleDates []datatypes.Date
	err := service.salesInRange(ctx, tenantID, staffID, from, to).
		Order("daily_sales.sales_date ASC").
		Pluck("daily_sales.sales_date", &saleDates).Error
	if err != nil {
		return Performance{}, err
	}
	var totals struct {
		Revenue   decimal.Decimal
		Cylinders int
	}
	err = service.salesInRange(ctx, tenantID, staffID, from, to).
		Joins("JOIN sale_items ON sale_items.sale_id = daily_sales.sale_id").
		Select("COALESCE(SUM(sale_items.quantity_sold * sale_items.selling_price_per_cylinder), 0) AS revenue, COALESCE(SUM(sale_items.quantity_sold), 0) AS cylinders").
		Scan(&totals).Error
	if err != nil {
		return Performance{}, err
	}
	performance := Performance{
		TotalSalesDays:       len(saleDates),
		TotalRevenue:         totals.Revenue,
		TotalCylindersSold:   totals.Cylinders,
		AverageRevenuePerDay: decimal.Zero,
	}
	if len(saleDates) > 0 {
		performance.AverageRevenuePerDay = totals.Revenue.Div(decimal.NewFromInt(int64(len(saleDates))))
		performance.FirstSaleDate = &saleDates[0]
		performance.LastSaleDate = &saleDates[len(saleDates)-1]
	}
	return performance, nil
}

// TopPerformers ranks active staff by revenue, highest first. Staff
// with no sales in the range still appear with zero totals.
func (service *Service) TopPerformers(ctx context.Context, tenantID string, from *time.Time, to *time.Time, limit int) ([]PerformerTotal, error) {
	if limit <= 0 {
		limit = defaultTopPerformers
	}
	if limit > maxTopPerformers {
		limit = maxTopPerformers
	}
	salesJoin := "LEFT JOIN daily_sales ON daily_sales.staff_id = staff.staff_id AND daily_sales.tenant_id = staff.tenant_id"
	var joinArgs []any
	if from != nil {
		salesJoin += " AND daily_sales.sales_date >= ?"
		joinArgs = append(joinArgs, datatypes.Date(*from))
	}
	if to != nil {
		salesJoin += " AND daily_sales.sales_date <= ?"
		joinArgs = append(joinArgs, datatypes.Date(*to))
	}
	var performers []PerformerTotal
	err := service.db.WithContext(ctx).Model(&gormstore.Staff{}).
		Where("staff.tenant_id = ? AND staff.is_active = ?", tenantID, true).
		Joins(salesJoin, joinArgs...).
		Joins("LEFT JOIN sale_items ON sale_items.sale_id = daily_sales.sale_id").
		Select("staff.staff_id AS staff_id, staff.name AS staff_name, COALESCE(SUM(sale_items.quantity_sold * sale_items.selling_price_per_cylinder), 0) AS total_revenue, COALESCE(SUM(sale_items.quantity_sold), 0) AS total_cylinders_sold, COUNT(DISTINCT daily_sales.sale_id) AS total_sales_days").
		Group("staff.staff_id, staff.name").
		Order("total_revenue DESC").
		Limit(limit).
		Scan(&performers).Error
	if err != nil {
		return nil, err
	}
	return performers, nil
}

// Summarize bundles an owned staff member with their full-history
// performance.
func (service *Service) Summarize(ctx context.Context, tenantID string, staffID string) (Summary, error) {
	row, err := service.Get(ctx, tenantID, staffID)
	if err != nil {
		return Summary{}, err
	}
	performance, err := service.Performance(ctx, tenantID, staffID, nil, nil)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Staff: row, Performance: performance}, nil
}

func (service *Service) salesInRange(ctx context.Context, tenantID string, staffID string, from *time.Time, to *time.Time) *gorm.DB {
	query := service.db.WithContext(ctx).Model(&gormstore.DailySale{}).
		Where("daily_sales.tenant_id = ? AND daily_sales.staff_id = ?", tenantID, staffID)
	if from != nil {
		query = query.Where("daily_sales.sales_date >= ?", datatypes.Date(*from))
	}
	if to != nil {
		query = query.Where("daily_sales.sales_date <= ?", datatypes.Date(*to))
	}
	return query
}
