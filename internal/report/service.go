// Package report derives read-only financial and operational views by
// re-aggregating order, sale, payment, and inventory rows per request.
// Nothing is cached; every figure is recomputed from the ledgers.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/inventory"
	"github.com/MarkoPoloResearchLab/cylinders/internal/sales"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trend bucket periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

const dashboardLowStockLimit = 5

// Service computes reports scoped to a tenant.
type Service struct {
	db        *gorm.DB
	inventory *inventory.Service
	sales     *sales.Service
}

// NewService returns a reporting service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:        db,
		inventory: inventory.NewService(db),
		sales:     sales.NewService(db),
	}
}

// OutstandingBalance is one distributor still owed money.
type OutstandingBalance struct {
	DistributorID   string          `json:"distributorId"`
	DistributorName string          `json:"distributorName"`
	Balance         decimal.Decimal `json:"balance"`
}

// Dashboard is the landing-page snapshot.
type Dashboard struct {
	TodayRevenue        decimal.Decimal       `json:"todayRevenue"`
	TodayCylinders      int                   `json:"todayCylinders"`
	TodaySaleCount      int64                 `json:"todaySaleCount"`
	LowStock            []gormstore.Inventory `json:"lowStock"`
	OutstandingBalances []OutstandingBalance  `json:"outstandingBalances"`
	ActiveStaffCount    int64                 `json:"activeStaffCount"`
	TotalFullCylinders  int                   `json:"totalFullCylinders"`
	TotalEmptyCylinders int                   `json:"totalEmptyCylinders"`
	InventoryValue      decimal.Decimal       `json:"inventoryValue"`
}

// ProfitLossRow is the per-type profit breakdown.
type ProfitLossRow struct {
	CylinderTypeID string          `json:"cylinderTypeId"`
	Revenue        decimal.Decimal `json:"revenue"`
	Cost           decimal.Decimal `json:"cost"`
	Profit         decimal.Decimal `json:"profit"`
}

// ProfitLoss is the profit statement for a date range. Cost uses the
// most recent order price on or before each sale's date; types never
// ordered carry zero cost.
type ProfitLoss struct {
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	GrossProfit    decimal.Decimal `json:"grossProfit"`
	MarginPercent  decimal.Decimal `json:"marginPercent"`
	ByCylinderType []ProfitLossRow `json:"byCylinderType"`
}

// RevenueAnalysis breaks revenue down by type and staff.
type RevenueAnalysis struct {
	TotalRevenue   decimal.Decimal       `json:"totalRevenue"`
	ByCylinderType []sales.TypeAnalytics `json:"byCylinderType"`
	ByStaff        []sales.StaffTotal    `json:"byStaff"`
}

// SalesOverview is the period summary plus every sale in it.
type SalesOverview struct {
	Summary sales.Summary          `json:"summary"`
	Sales   []sales.SaleWithTotals `json:"sales"`
}

// TrendBucket is one point of a sales trend.
type TrendBucket struct {
	Bucket    string          `json:"bucket"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cylinders int             `json:"cylinders"`
	SaleCount int             `json:"saleCount"`
}

// MonthRow is one month of the yearly comparison.
type MonthRow struct {
	Month     string          `json:"month"`
	Revenue   decimal.Decimal `json:"revenue"`
	Cylinders int             `json:"cylinders"`
	SaleCount int             `json:"saleCount"`
}

// DashboardFor assembles the snapshot for one day.
func (service *Service) DashboardFor(ctx context.Context, tenantID string, today time.Time) (Dashboard, error) {
	daySummary, err := service.sales.Summarize(ctx, tenantID, sales.ListFilter{StartDate: &today, EndDate: &today})
	if err != nil {
		return Dashboard{}, err
	}
	lowStock, err := service.inventory.LowStock(ctx, tenantID, inventory.DefaultLowStockThreshold)
	if err != nil {
		return Dashboard{}, err
	}
	if len(lowStock) > dashboardLowStockLimit {
		lowStock = lowStock[:dashboardLowStockLimit]
	}
	outstanding, err := service.outstandingBalances(ctx, tenantID)
	if err != nil {
		return Dashboard{}, err
	}
	var activeStaff int64
	err = service.db.WithContext(ctx).Model(&gormstore.Staff{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&activeStaff).Error
	if err != nil {
		return Dashboard{}, err
	}
	stock, err := service.inventory.Summarize(ctx, tenantID)
	if err != nil {
		return Dashboard{}, err
	}
	valuation, err := service.inventory.Value(ctx, tenantID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		TodayRevenue:        daySummary.TotalRevenue,
		TodayCylinders:      daySummary.TotalCylinders,
		TodaySaleCount:      daySummary.SaleCount,
		LowStock:            lowStock,
		OutstandingBalances: outstanding,
		ActiveStaffCount:    activeStaff,
		TotalFullCylinders:  stock.TotalFull,
		TotalEmptyCylinders: stock.TotalEmpty,
		InventoryValue:      valuation.TotalValue,
	}, nil
}

func (service *Service) outstandingBalances(ctx context.Context, tenantID string) ([]OutstandingBalance, error) {
	type distributorTotal struct {
		DistributorID string
		Total         decimal.Decimal
	}
	var orderTotals []distributorTotal
	err := service.db.WithContext(ctx).Model(&gormstore.Order{}).
		Where("tenant_id = ?", tenantID).
		Select("distributor_id, COALESCE(SUM(total_amount), 0) AS total").
		Group("distributor_id").
		Scan(&orderTotals).Error
	if err != nil {
		return nil, err
	}
	var paymentTotals []distributorTotal
	err = service.db.WithContext(ctx).Model(&gormstore.Payment{}).
		Where("tenant_id = ?", tenantID).
		Select("distributor_id, COALESCE(SUM(amount_paid), 0) AS total").
		Group("distributor_id").
		Scan(&paymentTotals).Error
	if err != nil {
		return nil, err
	}
	paidByDistributor := make(map[string]decimal.Decimal, len(paymentTotals))
	for _, total := range paymentTotals {
		paidByDistributor[total.DistributorID] = total.Total
	}

	var outstanding []OutstandingBalance
	var distributorIDs []string
	for _, total := range orderTotals {
		balance := total.Total.Sub(paidByDistributor[total.DistributorID])
		if !balance.IsPositive() {
			continue
		}
		outstanding = append(outstanding, OutstandingBalance{
			DistributorID: total.DistributorID,
			Balance:       balance,
		})
		distributorIDs = append(distributorIDs, total.DistributorID)
	}
	if len(distributorIDs) > 0 {
		var distributors []gormstore.Distributor
		err = service.db.WithContext(ctx).Where("distributor_id IN ?", distributorIDs).Find(&distributors).Error
		if err != nil {
			return nil, err
		}
		namesByID := make(map[string]string, len(distributors))
		for _, distributorRow := range distributors {
			namesByID[distributorRow.DistributorID] = distributorRow.Name
		}
		for index := range outstanding {
			outstanding[index].DistributorName = namesByID[outstanding[index].DistributorID]
		}
	}
	sort.Slice(outstanding, func(left int, right int) bool {
		return outstanding[left].Balance.GreaterThan(outstanding[right].Balance)
	})
	return outstanding, nil
}

// ProfitLossFor computes the profit statement for a date range.
func (service *Service) ProfitLossFor(ctx context.Context, tenantID string, startDate time.Time, endDate time.Time) (ProfitLoss, error) {
	items, err := service.saleItemsInRange(ctx, tenantID, startDate, endDate)
	if err != nil {
		return ProfitLoss{}, err
	}
	statement := ProfitLoss{
		StartDate:     startDate,
		EndDate:       endDate,
		TotalRevenue:  decimal.Zero,
		TotalCost:     decimal.Zero,
		GrossProfit:   decimal.Zero,
		MarginPercent: decimal.Zero,
	}
	rowsByType := map[string]*ProfitLossRow{}
	var typeOrder []string
	for _, item := range items {
		quantity := decimal.NewFromInt(int64(item.QuantitySold))
		revenue := item.SellingPrice.Mul(quantity)
		costPrice, err := service.inventory.LatestOrderPrice(ctx, tenantID, item.CylinderTypeID, item.SalesDate)
		if err != nil {
			return ProfitLoss{}, err
		}
		cost := costPrice.Mul(quantity)

		statement.TotalRevenue = statement.TotalRevenue.Add(revenue)
		statement.TotalCost = statement.TotalCost.Add(cost)

		row, seen := rowsByType[item.CylinderTypeID]
		if !seen {
			row = &ProfitLossRow{
				CylinderTypeID: item.CylinderTypeID,
				Revenue:        decimal.Zero,
				Cost:           decimal.Zero,
				Profit:         decimal.Zero,
			}
			rowsByType[item.CylinderTypeID] = row
			typeOrder = append(typeOrder, item.CylinderTypeID)
		}
		row.Revenue = row.Revenue.Add(revenue)
		row.Cost = row.Cost.Add(cost)
		row.Profit = row.Revenue.Sub(row.Cost)
	}
	statement.GrossProfit = statement.TotalRevenue.Sub(statement.TotalCost)
	if statement.TotalRevenue.IsPositive() {
		statement.MarginPercent = statement.GrossProfit.
			Div(statement.TotalRevenue).
			Mul(decimal.NewFromInt(100))
	}
	for _, typeID := range typeOrder {
		statement.ByCylinderType = append(statement.ByCylinderType, *rowsByType[typeID])
	}
	return statement, nil
}

// RevenueFor breaks the period's revenue down by type and staff.
func (service *Service) RevenueFor(ctx context.Context, tenantID string, startDate time.Time, endDate time.Time) (RevenueAnalysis, error) {
	filter := sales.ListFilter{StartDate: &startDate, EndDate: &endDate}
	summary, err := service.sales.Summarize(ctx, tenantID, filter)
	if err != nil {
		return RevenueAnalysis{}, err
	}
	analytics, err := service.sales.Analyze(ctx, tenantID, filter)
	if err != nil {
		return RevenueAnalysis{}, err
	}
	return RevenueAnalysis{
		TotalRevenue:   summary.TotalRevenue,
		ByCylinderType: analytics.ByCylinderType,
		ByStaff:        summary.ByStaff,
	}, nil
}

// OverviewFor returns the period summary plus every sale in it.
func (service *Service) OverviewFor(ctx context.Context, tenantID string, startDate time.Time, endDate time.Time) (SalesOverview, error) {
	filter := sales.ListFilter{StartDate: &startDate, EndDate: &endDate}
	summary, err := service.sales.Summarize(ctx, tenantID, filter)
	if err != nil {
		return SalesOverview{}, err
	}
	var saleRows []sales.SaleWithTotals
	pageNumber := 1
	for {
		pageRows, page, err := service.sales.List(ctx, tenantID, filter, pageNumber, 100)
		if err != nil {
			return SalesOverview{}, err
		}
		saleRows = append(saleRows, pageRows...)
		if pageNumber >= page.TotalPages {
			break
		}
		pageNumber++
	}
	return SalesOverview{Summary: summary, Sales: saleRows}, nil
}

// TrendsFor buckets the period's sales by day, week, month, or year.
// Weeks start on Sunday; buckets come back in ascending order.
func (service *Service) TrendsFor(ctx context.Context, tenantID string, period string, startDate time.Time, endDate time.Time) ([]TrendBucket, error) {
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
	default:
		return nil, domain.Invalid("period", "period must be one of daily, weekly, monthly, yearly")
	}
	items, err := service.saleItemsInRange(ctx, tenantID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	bucketsByKey := map[string]*TrendBucket{}
	salesByKey := map[string]map[string]struct{}{}
	for _, item := range items {
		key := bucketKey(period, item.SalesDate)
		bucket, seen := bucketsByKey[key]
		if !seen {
			bucket = &TrendBucket{Bucket: key, Revenue: decimal.Zero}
			bucketsByKey[key] = bucket
			salesByKey[key] = map[string]struct{}{}
		}
		bucket.Revenue = bucket.Revenue.Add(item.SellingPrice.Mul(decimal.NewFromInt(int64(item.QuantitySold))))
		bucket.Cylinders += item.QuantitySold
		salesByKey[key][item.SaleID] = struct{}{}
	}
	buckets := make([]TrendBucket, 0, len(bucketsByKey))
	for key, bucket := range bucketsByKey {
		bucket.SaleCount = len(salesByKey[key])
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(left int, right int) bool {
		return buckets[left].Bucket < buckets[right].Bucket
	})
	return buckets, nil
}

// MovementsFor merges every inventory-affecting event in the range,
// newest first. Sales contribute a full-count decrease per sold line and
// an empty-count increase per batch of empties received.
func (service *Service) MovementsFor(ctx context.Context, tenantID string, startDate time.Time, endDate time.Time) ([]inventory.Movement, error) {
	movements, err := service.inventory.Movements(ctx, tenantID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	items, err := service.saleItemsInRange(ctx, tenantID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		movements = append(movements, inventory.Movement{
			Date:           item.SalesDate,
			Source:         "sale",
			CylinderTypeID: item.CylinderTypeID,
			FullChange:     -item.QuantitySold,
			Reference:      item.SaleID,
		})
	}

	type emptyLine struct {
		SaleID           string
		SalesDate        datatypes.Date
		CylinderTypeID   string
		QuantityReceived int
	}
	var empties []emptyLine
	err = service.db.WithContext(ctx).Model(&gormstore.EmptyReceived{}).
		Joins("JOIN daily_sales ON daily_sales.sale_id = empties_received.sale_id").
		Where("daily_sales.tenant_id = ? AND daily_sales.sales_date >= ? AND daily_sales.sales_date <= ?",
			tenantID, datatypes.Date(startDate), datatypes.Date(endDate)).
		Select("empties_received.sale_id AS sale_id, daily_sales.sales_date AS sales_date, empties_received.cylinder_type_id AS cylinder_type_id, empties_received.quantity_received AS quantity_received").
		Scan(&empties).Error
	if err != nil {
		return nil, err
	}
	for _, line := range empties {
		movements = append(movements, inventory.Movement{
			Date:           time.Time(line.SalesDate),
			Source:         "sale",
			CylinderTypeID: line.CylinderTypeID,
			EmptyChange:    line.QuantityReceived,
			Reference:      line.SaleID,
		})
	}
	sort.SliceStable(movements, func(left int, right int) bool {
		return movements[left].Date.After(movements[right].Date)
	})
	return movements, nil
}

// MonthlyComparisonFor returns twelve rows for one calendar year.
func (service *Service) MonthlyComparisonFor(ctx context.Context, tenantID string, year int) ([]MonthRow, error) {
	startDate := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	items, err := service.saleItemsInRange(ctx, tenantID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	rows := make([]MonthRow, 12)
	salesByMonth := make([]map[string]struct{}, 12)
	for monthIndex := range rows {
		rows[monthIndex] = MonthRow{
			Month:   time.Month(monthIndex + 1).String(),
			Revenue: decimal.Zero,
		}
		salesByMonth[monthIndex] = map[string]struct{}{}
	}
	for _, item := range items {
		monthIndex := int(item.SalesDate.Month()) - 1
		rows[monthIndex].Revenue = rows[monthIndex].Revenue.
			Add(item.SellingPrice.Mul(decimal.NewFromInt(int64(item.QuantitySold))))
		rows[monthIndex].Cylinders += item.QuantitySold
		salesByMonth[monthIndex][item.SaleID] = struct{}{}
	}
	for monthIndex := range rows {
		rows[monthIndex].SaleCount = len(salesByMonth[monthIndex])
	}
	return rows, nil
}

type saleItemRow struct {
	SaleID         string
	SalesDate      time.Time
	CylinderTypeID string
	QuantitySold   int
	SellingPrice   decimal.Decimal
}

func (service *Service) saleItemsInRange(ctx context.Context, tenantID string, startDate time.Time, endDate time.Time) ([]saleItemRow, error) {
	type scannedRow struct {
		SaleID         string
		SalesDate      datatypes.Date
		CylinderTypeID string
		QuantitySold   int
		SellingPrice   decimal.Decimal
	}
	var scanned []scannedRow
	err := service.db.WithContext(ctx).Model(&gormstore.SaleItem{}).
		Joins("JOIN daily_sales ON daily_sales.sale_id = sale_items.sale_id").
		Where("daily_sales.tenant_id = ? AND daily_sales.sales_date >= ? AND daily_sales.sales_date <= ?",
			tenantID, datatypes.Date(startDate), datatypes.Date(endDate)).
		Select("sale_items.sale_id AS sale_id, daily_sales.sales_date AS sales_date, sale_items.cylinder_type_id AS cylinder_type_id, sale_items.quantity_sold AS quantity_sold, sale_items.selling_price_per_cylinder AS selling_price").
		Scan(&scanned).Error
	if err != nil {
		return nil, err
	}
	rows := make([]saleItemRow, 0, len(scanned))
	for _, row := range scanned {
		rows = append(rows, saleItemRow{
			SaleID:         row.SaleID,
			SalesDate:      time.Time(row.SalesDate),
			CylinderTypeID: row.CylinderTypeID,
			QuantitySold:   row.QuantitySold,
			SellingPrice:   row.SellingPrice,
		})
	}
	return rows, nil
}

// bucketKey formats the trend bucket a date falls into.
func bucketKey(period string, date time.Time) string {
	switch period {
	case PeriodDaily:
		return date.Format("2006-01-02")
	case PeriodWeekly:
		weekStart := date.AddDate(0, 0, -int(date.Weekday()))
		return weekStart.Format("2006-01-02")
	case PeriodMonthly:
		return date.Format("2006-01")
	default:
		return date.Format("2006")
	}
}
