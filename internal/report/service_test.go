package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(test *testing.T) *gorm.DB {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gormstore.AllModels()...); err != nil {
		test.Fatalf("auto migrate: %v", err)
	}
	return db
}

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func mustCreateType(test *testing.T, db *gorm.DB, company string, category string) string {
	test.Helper()
	row := gormstore.CylinderType{Company: company, Category: category, WeightKg: decimal.NewFromInt(14)}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create cylinder type: %v", err)
	}
	return row.CylinderTypeID
}

func mustCreateStaff(test *testing.T, db *gorm.DB, tenantID string, name string) string {
	test.Helper()
	row := gormstore.Staff{TenantID: tenantID, Name: name, MobileNumber: "888", IsActive: true}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create staff: %v", err)
	}
	return row.StaffID
}

func mustCreateSale(test *testing.T, db *gorm.DB, tenantID string, staffID string, saleDay time.Time, items []gormstore.SaleItem) string {
	test.Helper()
	row := gormstore.DailySale{
		TenantID:  tenantID,
		StaffID:   staffID,
		SalesDate: datatypes.Date(saleDay),
		Items:     items,
	}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create sale: %v", err)
	}
	return row.SaleID
}

func mustCreateOrder(test *testing.T, db *gorm.DB, tenantID string, name string, orderDay time.Time, typeID string, quantity int, price int64) {
	test.Helper()
	distributor := gormstore.Distributor{TenantID: tenantID, Name: name, ContactNumber: "1", Address: "x", IsActive: true}
	if err := db.Create(&distributor).Error; err != nil {
		test.Fatalf("create distributor: %v", err)
	}
	order := gormstore.Order{
		TenantID:      tenantID,
		DistributorID: distributor.DistributorID,
		OrderDate:     datatypes.Date(orderDay),
		TotalAmount:   decimal.NewFromInt(price * int64(quantity)),
		Items: []gormstore.OrderItem{
			{CylinderTypeID: typeID, Quantity: quantity, PricePerCylinder: decimal.NewFromInt(price)},
		},
	}
	if err := db.Create(&order).Error; err != nil {
		test.Fatalf("create order: %v", err)
	}
}

func TestProfitLossUsesLatestCostOnOrBeforeSaleDate(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita")

	mustCreateOrder(test, db, "tenant-1", "Early Depot", day(2024, time.May, 1), typeID, 10, 40)
	mustCreateOrder(test, db, "tenant-1", "Late Depot", day(2024, time.May, 20), typeID, 10, 55)

	// Sold between the two orders, so cost is the May 1 price of 40.
	mustCreateSale(test, db, "tenant-1", staffID, day(2024, time.May, 10), []gormstore.SaleItem{
		{CylinderTypeID: typeID, QuantitySold: 5, SellingPricePerCylinder: decimal.NewFromInt(60)},
	})

	statement, err := service.ProfitLossFor(context.Background(), "tenant-1", day(2024, time.May, 1), day(2024, time.May, 31))
	if err != nil {
		test.Fatalf("profit loss: %v", err)
	}
	if !statement.TotalRevenue.Equal(decimal.NewFromInt(300)) {
		test.Fatalf("expected revenue 300, got %s", statement.TotalRevenue)
	}
	if !statement.TotalCost.Equal(decimal.NewFromInt(200)) {
		test.Fatalf("expected cost 200, got %s", statement.TotalCost)
	}
	if !statement.GrossProfit.Equal(decimal.NewFromInt(100)) {
		test.Fatalf("expected profit 100, got %s", statement.GrossProfit)
	}
	if len(statement.ByCylinderType) != 1 {
		test.Fatalf("expected 1 type row, got %d", len(statement.ByCylinderType))
	}
}

func TestProfitLossTreatsUnorderedTypesAsZeroCost(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryDomestic)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita")

	mustCreateSale(test, db, "tenant-1", staffID, day(2024, time.May, 10), []gormstore.SaleItem{
		{CylinderTypeID: typeID, QuantitySold: 2, SellingPricePerCylinder: decimal.NewFromInt(70)},
	})

	statement, err := service.ProfitLossFor(context.Background(), "tenant-1", day(2024, time.May, 1), day(2024, time.May, 31))
	if err != nil {
		test.Fatalf("profit loss: %v", err)
	}
	if !statement.TotalCost.IsZero() {
		test.Fatalf("expected zero cost, got %s", statement.TotalCost)
	}
	if !statement.GrossProfit.Equal(statement.TotalRevenue) {
		test.Fatalf("expected full-revenue profit, got %s of %s", statement.GrossProfit, statement.TotalRevenue)
	}
}

func TestTrendsForBucketsByPeriod(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyBPCL, gormstore.CategoryDomestic)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita")

	// June 2 2024 is a Sunday; June 5 falls in the same week.
	for _, saleDay := range []time.Time{
		day(2024, time.June, 2),
		day(2024, time.June, 5),
		day(2024, time.June, 9),
	} {
		mustCreateSale(test, db, "tenant-1", staffID, saleDay, []gormstore.SaleItem{
			{CylinderTypeID: typeID, QuantitySold: 1, SellingPricePerCylinder: decimal.NewFromInt(100)},
		})
	}

	daily, err := service.TrendsFor(context.Background(), "tenant-1", PeriodDaily, day(2024, time.June, 1), day(2024, time.June, 30))
	if err != nil {
		test.Fatalf("daily trends: %v", err)
	}
	if len(daily) != 3 {
		test.Fatalf("expected 3 daily buckets, got %d", len(daily))
	}
	if daily[0].Bucket != "2024-06-02" {
		test.Fatalf("expected ascending buckets, got %s first", daily[0].Bucket)
	}

	weekly, err := service.TrendsFor(context.Background(), "tenant-1", PeriodWeekly, day(2024, time.June, 1), day(2024, time.June, 30))
	if err != nil {
		test.Fatalf("weekly trends: %v", err)
	}
	if len(weekly) != 2 {
		test.Fatalf("expected 2 weekly buckets, got %d", len(weekly))
	}
	if weekly[0].Bucket != "2024-06-02" || weekly[0].SaleCount != 2 {
		test.Fatalf("expected week starting Sunday June 2 with 2 sales, got %+v", weekly[0])
	}

	monthly, err := service.TrendsFor(context.Background(), "tenant-1", PeriodMonthly, day(2024, time.June, 1), day(2024, time.June, 30))
	if err != nil {
		test.Fatalf("monthly trends: %v", err)
	}
	if len(monthly) != 1 || monthly[0].Bucket != "2024-06" {
		test.Fatalf("expected single 2024-06 bucket, got %+v", monthly)
	}

	if _, err := service.TrendsFor(context.Background(), "tenant-1", "hourly", day(2024, time.June, 1), day(2024, time.June, 30)); !errors.Is(err, domain.ErrValidation) {
		test.Fatalf("expected validation error for unknown period, got %v", err)
	}
}

func TestMonthlyComparisonAlwaysReturnsTwelveRows(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryCommercial)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita")

	mustCreateSale(test, db, "tenant-1", staffID, day(2024, time.March, 15), []gormstore.SaleItem{
		{CylinderTypeID: typeID, QuantitySold: 4, SellingPricePerCylinder: decimal.NewFromInt(90)},
	})

	rows, err := service.MonthlyComparisonFor(context.Background(), "tenant-1", 2024)
	if err != nil {
		test.Fatalf("monthly comparison: %v", err)
	}
	if len(rows) != 12 {
		test.Fatalf("expected 12 rows, got %d", len(rows))
	}
	march := rows[2]
	if march.Month != "March" || march.SaleCount != 1 || march.Cylinders != 4 {
		test.Fatalf("unexpected March row: %+v", march)
	}
	if !march.Revenue.Equal(decimal.NewFromInt(360)) {
		test.Fatalf("expected March revenue 360, got %s", march.Revenue)
	}
	if rows[0].SaleCount != 0 || !rows[0].Revenue.IsZero() {
		test.Fatalf("expected empty January row, got %+v", rows[0])
	}
}

func TestDashboardForReportsTodayAndStockState(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryCommercial)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, applyErr := gormstore.ApplyInventoryDelta(tx, "tenant-1", typeID, 4, 2)
		return applyErr
	})
	if err != nil {
		test.Fatalf("seed stock: %v", err)
	}
	today := day(2024, time.June, 10)
	mustCreateSale(test, db, "tenant-1", staffID, today, []gormstore.SaleItem{
		{CylinderTypeID: typeID, QuantitySold: 3, SellingPricePerCylinder: decimal.NewFromInt(80)},
	})

	dashboard, err := service.DashboardFor(context.Background(), "tenant-1", today)
	if err != nil {
		test.Fatalf("dashboard: %v", err)
	}
	if !dashboard.TodayRevenue.Equal(decimal.NewFromInt(240)) {
		test.Fatalf("expected today revenue 240, got %s", dashboard.TodayRevenue)
	}
	if dashboard.TodayCylinders != 3 || dashboard.TodaySaleCount != 1 {
		test.Fatalf("expected 3 cylinders in 1 sale, got %d in %d", dashboard.TodayCylinders, dashboard.TodaySaleCount)
	}
	if dashboard.ActiveStaffCount != 1 {
		test.Fatalf("expected 1 active staff, got %d", dashboard.ActiveStaffCount)
	}
	if dashboard.TotalFullCylinders != 4 || dashboard.TotalEmptyCylinders != 2 {
		test.Fatalf("expected stock 4/2, got %d/%d", dashboard.TotalFullCylinders, dashboard.TotalEmptyCylinders)
	}
	if len(dashboard.LowStock) != 1 {
		test.Fatalf("expected 1 low stock row, got %d", len(dashboard.LowStock))
	}
}
