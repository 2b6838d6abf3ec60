// Package inventory exposes the read side of the stock ledger: listings,
// summaries, adjustment history, movements, and valuation. All writes go
// through the stock ledger service or the order and sale writers.
package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultLowStockThreshold flags a type as running low when its full
// count drops below this.
const DefaultLowStockThreshold = 10

// Movement sources.
const (
	SourceAdjustment = "adjustment"
	SourceOrder      = "order"
	SourceReturn     = "return"
)

// Service provides inventory read operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns an inventory query service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListFilter narrows an inventory listing.
type ListFilter struct {
	CylinderTypeID    string
	Company           string
	LowStockOnly      bool
	LowStockThreshold int
}

// CompanyTotal is the stock aggregate for one cylinder company.
type CompanyTotal struct {
	Company        string `json:"company"`
	FullCylinders  int    `json:"fullCylinders"`
	EmptyCylinders int    `json:"emptyCylinders"`
}

// Summary aggregates a tenant's whole inventory.
type Summary struct {
	TotalFull     int                   `json:"totalFull"`
	TotalEmpty    int                   `json:"totalEmpty"`
	ByCompany     []CompanyTotal        `json:"byCompany"`
	LowStock      []gormstore.Inventory `json:"lowStock"`
	LowStockCount int                   `json:"lowStockCount"`
}

// Movement is one inventory-affecting event in the history view.
type Movement struct {
	Date           time.Time `json:"date"`
	Source         string    `json:"source"`
	CylinderTypeID string    `json:"cylinderTypeId"`
	FullChange     int       `json:"fullChange"`
	EmptyChange    int       `json:"emptyChange"`
	Reference      string    `json:"reference"`
}

// ValuationRow is the stock value of one cylinder type.
type ValuationRow struct {
	CylinderTypeID string                 `json:"cylinderTypeId"`
	CylinderType   gormstore.CylinderType `json:"cylinderType"`
	FullCylinders  int                    `json:"fullCylinders"`
	LatestPrice    decimal.Decimal        `json:"latestPrice"`
	Value          decimal.Decimal        `json:"value"`
}

// Valuation prices the full stock at the latest known order prices.
type Valuation struct {
	Rows       []ValuationRow  `json:"rows"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// List returns the tenant's inventory rows with their catalog types.
func (service *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]gormstore.Inventory, error) {
	query := service.db.WithContext(ctx).
		Preload("CylinderType").
		Where("tenant_id = ?", tenantID)
	if filter.CylinderTypeID != "" {
		query = query.Where("cylinder_type_id = ?", filter.CylinderTypeID)
	}
	if filter.Company != "" {
		query = query.Where(
			"cylinder_type_id IN (?)",
			service.db.Model(&gormstore.CylinderType{}).
				Select("cylinder_type_id").
				Where("company = ?", filter.Company),
		)
	}
	if filter.LowStockOnly {
		threshold := filter.LowStockThreshold
		if threshold <= 0 {
			threshold = DefaultLowStockThreshold
		}
		query = query.Where("full_cylinders < ?", threshold)
	}
	var rows []gormstore.Inventory
	if err := query.Order("last_updated DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Summarize aggregates totals, per-company counts, and low-stock rows.
func (service *Service) Summarize(ctx context.Context, tenantID string) (Summary, error) {
	rows, err := service.List(ctx, tenantID, ListFilter{})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{}
	companyTotals := map[string]*CompanyTotal{}
	var companies []string
	for _, row := range rows {
		summary.TotalFull += row.FullCylinders
		summary.TotalEmpty += row.EmptyCylinders
		company := row.CylinderType.Company
		if _, seen := companyTotals[company]; !seen {
			companyTotals[company] = &CompanyTotal{Company: company}
			companies = append(companies, company)
		}
		companyTotals[company].FullCylinders += row.FullCylinders
		companyTotals[company].EmptyCylinders += row.EmptyCylinders
		if row.FullCylinders < DefaultLowStockThreshold {
			summary.LowStock = append(summary.LowStock, row)
		}
	}
	sort.Strings(companies)
	for _, company := range companies {
		summary.ByCompany = append(summary.ByCompany, *companyTotals[company])
	}
	summary.LowStockCount = len(summary.LowStock)
	return summary, nil
}

// LowStock returns the rows whose full count is below the threshold,
// lowest first.
func (service *Service) LowStock(ctx context.Context, tenantID string, threshold int) ([]gormstore.Inventory, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	var rows []gormstore.Inventory
	err := service.db.WithContext(ctx).
		Preload("CylinderType").
		Where("tenant_id = ? AND full_cylinders < ?", tenantID, threshold).
		Order("full_cylinders ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Adjustments returns the audit history, newest first.
func (service *Service) Adjustments(ctx context.Context, tenantID string, startDate *time.Time, endDate *time.Time, pageNumber int, limit int) ([]gormstore.InventoryAdjustment, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.db.WithContext(ctx).
		Model(&gormstore.InventoryAdjustment{}).
		Where("tenant_id = ?", tenantID)
	if startDate != nil {
		query = query.Where("adjustment_date >= ?", datatypes.Date(*startDate))
	}
	if endDate != nil {
		query = query.Where("adjustment_date <= ?", datatypes.Date(*endDate))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.InventoryAdjustment
	err := query.Preload("CylinderType").
		Order("adjustment_date DESC, created_at DESC").
		Limit(limit).Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// Movements merges adjustments, order receipts, and distributor returns
// into one history, newest first.
func (service *Service) Movements(ctx context.Context, tenantID string, startDate time.Time, endDate time.Time) ([]Movement, error) {
	var movements []Movement

	var adjustments []gormstore.InventoryAdjustment
	err := service.db.WithContext(ctx).
		Where("tenant_id = ? AND adjustment_date >= ? AND adjustment_date <= ?",
			tenantID, datatypes.Date(startDate), datatypes.Date(endDate)).
		Find(&adjustments).Error
	if err != nil {
		return nil, err
	}
	for _, adjustment := range adjustments {
		movements = append(movements, Movement{
			Date:           time.Time(adjustment.AdjustmentDate),
			Source:         SourceAdjustment,
			CylinderTypeID: adjustment.CylinderTypeID,
			FullChange:     adjustment.FullCylinderChange,
			EmptyChange:    adjustment.EmptyCylinderChange,
			Reference:      adjustment.Reason,
		})
	}

	type orderLine struct {
		OrderID        string
		OrderDate      datatypes.Date
		CylinderTypeID string
		Quantity       int
	}
	var orderLines []orderLine
	err = service.db.WithContext(ctx).Model(&gormstore.OrderItem{}).
		Joins("JOIN orders ON orders.order_id = order_items.order_id").
		Where("orders.tenant_id = ? AND orders.order_date >= ? AND orders.order_date <= ?",
			tenantID, datatypes.Date(startDate), datatypes.Date(endDate)).
		Select("orders.order_id AS order_id, orders.order_date AS order_date, order_items.cylinder_type_id AS cylinder_type_id, order_items.quantity AS quantity").
		Scan(&orderLines).Error
	if err != nil {
		return nil, err
	}
	for _, line := range orderLines {
		movements = append(movements, Movement{
			Date:           time.Time(line.OrderDate),
			Source:         SourceOrder,
			CylinderTypeID: line.CylinderTypeID,
			FullChange:     line.Quantity,
			Reference:      line.OrderID,
		})
	}

	var returns []gormstore.CylinderReturn
	err = service.db.WithContext(ctx).
		Where("tenant_id = ? AND return_date >= ? AND return_date <= ?",
			tenantID, datatypes.Date(startDate), datatypes.Date(endDate)).
		Find(&returns).Error
	if err != nil {
		return nil, err
	}
	for _, returnRow := range returns {
		movements = append(movements, Movement{
			Date:           time.Time(returnRow.ReturnDate),
			Source:         SourceReturn,
			CylinderTypeID: returnRow.CylinderTypeID,
			EmptyChange:    -returnRow.Quantity,
			Reference:      returnRow.DistributorID,
		})
	}

	sort.SliceStable(movements, func(left int, right int) bool {
		return movements[left].Date.After(movements[right].Date)
	})
	return movements, nil
}

// Value prices each type's full count at its most recent order price.
// Types never ordered are valued at zero.
func (service *Service) Value(ctx context.Context, tenantID string) (Valuation, error) {
	rows, err := service.List(ctx, tenantID, ListFilter{})
	if err != nil {
		return Valuation{}, err
	}
	valuation := Valuation{TotalValue: decimal.Zero}
	for _, row := range rows {
		price, err := latestOrderPrice(service.db.WithContext(ctx), tenantID, row.CylinderTypeID, nil)
		if err != nil {
			return Valuation{}, err
		}
		value := price.Mul(decimal.NewFromInt(int64(row.FullCylinders)))
		valuation.Rows = append(valuation.Rows, ValuationRow{
			CylinderTypeID: row.CylinderTypeID,
			CylinderType:   row.CylinderType,
			FullCylinders:  row.FullCylinders,
			LatestPrice:    price,
			Value:          value,
		})
		valuation.TotalValue = valuation.TotalValue.Add(value)
	}
	return valuation, nil
}

// latestOrderPrice finds the price from the most recent order on or
// before asOf for one cylinder type, or zero if none exists.
func latestOrderPrice(db *gorm.DB, tenantID string, cylinderTypeID string, asOf *time.Time) (decimal.Decimal, error) {
	query := db.Model(&gormstore.OrderItem{}).
		Joins("JOIN orders ON orders.order_id = order_items.order_id").
		Where("orders.tenant_id = ? AND order_items.cylinder_type_id = ?", tenantID, cylinderTypeID)
	if asOf != nil {
		query = query.Where("orders.order_date <= ?", datatypes.Date(*asOf))
	}
	var result struct {
		Price decimal.Decimal
	}
	queryResult := query.
		Select("order_items.price_per_cylinder AS price").
		Order("orders.order_date DESC, orders.created_at DESC").
		Limit(1).
		Scan(&result)
	if queryResult.Error != nil {
		return decimal.Zero, queryResult.Error
	}
	if queryResult.RowsAffected == 0 {
		return decimal.Zero, nil
	}
	return result.Price, nil
}

// LatestOrderPrice exposes the cost-lookup rule to the reporting engine.
func (service *Service) LatestOrderPrice(ctx context.Context, tenantID string, cylinderTypeID string, asOf time.Time) (decimal.Decimal, error) {
	return latestOrderPrice(service.db.WithContext(ctx), tenantID, cylinderTypeID, &asOf)
}
