package inventory

import (
	"context"
	"testing"
	"time"

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

func mustCreateType(test *testing.T, db *gorm.DB, company string, category string, weightKg int64) string {
	test.Helper()
	row := gormstore.CylinderType{Company: company, Category: category, WeightKg: decimal.NewFromInt(weightKg)}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create cylinder type: %v", err)
	}
	return row.CylinderTypeID
}

func mustSetStock(test *testing.T, db *gorm.DB, tenantID string, typeID string, full int, empty int) {
	test.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		_, applyErr := gormstore.ApplyInventoryDelta(tx, tenantID, typeID, full, empty)
		return applyErr
	})
	if err != nil {
		test.Fatalf("set stock: %v", err)
	}
}

func mustOrderAt(test *testing.T, db *gorm.DB, tenantID string, typeID string, day time.Time, quantity int, price int64) {
	test.Helper()
	distributor := gormstore.Distributor{TenantID: tenantID, Name: "Depot " + day.Format("0102-150405.000000000"), ContactNumber: "1", Address: "x", IsActive: true}
	if err := db.Create(&distributor).Error; err != nil {
		test.Fatalf("create distributor: %v", err)
	}
	order := gormstore.Order{
		TenantID:      tenantID,
		DistributorID: distributor.DistributorID,
		OrderDate:     datatypes.Date(day),
		TotalAmount:   decimal.NewFromInt(price * int64(quantity)),
		Items: []gormstore.OrderItem{
			{CylinderTypeID: typeID, Quantity: quantity, PricePerCylinder: decimal.NewFromInt(price)},
		},
	}
	if err := db.Create(&order).Error; err != nil {
		test.Fatalf("create order: %v", err)
	}
}

func TestSummarizeRollsUpByCompany(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	hpclType := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic, 14)
	ioclType := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryDomestic, 14)
	mustSetStock(test, db, "tenant-1", hpclType, 12, 4)
	mustSetStock(test, db, "tenant-1", ioclType, 3, 1)

	summary, err := service.Summarize(context.Background(), "tenant-1")
	if err != nil {
		test.Fatalf("summarize: %v", err)
	}
	if summary.TotalFull != 15 || summary.TotalEmpty != 5 {
		test.Fatalf("expected totals 15/5, got %d/%d", summary.TotalFull, summary.TotalEmpty)
	}
	if len(summary.ByCompany) != 2 {
		test.Fatalf("expected 2 company rows, got %d", len(summary.ByCompany))
	}
	if summary.LowStockCount != 1 {
		test.Fatalf("expected 1 low stock row, got %d", summary.LowStockCount)
	}
}

func TestLowStockUsesThreshold(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	lowType := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic, 14)
	healthyType := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryCommercial, 19)
	mustSetStock(test, db, "tenant-1", lowType, 2, 0)
	mustSetStock(test, db, "tenant-1", healthyType, 50, 0)

	rows, err := service.LowStock(context.Background(), "tenant-1", DefaultLowStockThreshold)
	if err != nil {
		test.Fatalf("low stock: %v", err)
	}
	if len(rows) != 1 || rows[0].CylinderTypeID != lowType {
		test.Fatalf("expected only the low row, got %+v", rows)
	}

	rows, err = service.LowStock(context.Background(), "tenant-1", 100)
	if err != nil {
		test.Fatalf("low stock: %v", err)
	}
	if len(rows) != 2 {
		test.Fatalf("expected both rows under threshold 100, got %d", len(rows))
	}
	if rows[0].FullCylinders > rows[1].FullCylinders {
		test.Fatal("expected ascending order by full count")
	}
}

func TestLatestOrderPriceUsesMostRecentOnOrBefore(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyBPCL, gormstore.CategoryDomestic, 14)

	mustOrderAt(test, db, "tenant-1", typeID, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 10, 40)
	mustOrderAt(test, db, "tenant-1", typeID, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), 10, 55)

	price, err := service.LatestOrderPrice(context.Background(), "tenant-1", typeID, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		test.Fatalf("latest price: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(40)) {
		test.Fatalf("expected 40 as of May 10, got %s", price)
	}

	price, err = service.LatestOrderPrice(context.Background(), "tenant-1", typeID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		test.Fatalf("latest price: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(55)) {
		test.Fatalf("expected 55 as of June 1, got %s", price)
	}

	price, err = service.LatestOrderPrice(context.Background(), "tenant-1", typeID, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		test.Fatalf("latest price: %v", err)
	}
	if !price.IsZero() {
		test.Fatalf("expected zero before any order, got %s", price)
	}
}

func TestValuePricesFullStockAtLatestPrice(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	pricedType := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic, 14)
	unpricedType := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryCommercial, 19)
	mustSetStock(test, db, "tenant-1", pricedType, 6, 0)
	mustSetStock(test, db, "tenant-1", unpricedType, 9, 0)
	mustOrderAt(test, db, "tenant-1", pricedType, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 6, 50)

	valuation, err := service.Value(context.Background(), "tenant-1")
	if err != nil {
		test.Fatalf("value: %v", err)
	}
	if len(valuation.Rows) != 2 {
		test.Fatalf("expected 2 rows, got %d", len(valuation.Rows))
	}
	if !valuation.TotalValue.Equal(decimal.NewFromInt(300)) {
		test.Fatalf("expected total value 300, got %s", valuation.TotalValue)
	}
}

func TestMovementsMergesAdjustmentsOrdersAndReturns(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	typeID := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryCommercial, 19)

	adjustment := gormstore.InventoryAdjustment{
		TenantID:            "tenant-1",
		CylinderTypeID:      typeID,
		FullCylinderChange:  3,
		EmptyCylinderChange: 0,
		Reason:              "Opening stock",
		AdjustmentDate:      datatypes.Date(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)),
	}
	if err := db.Create(&adjustment).Error; err != nil {
		test.Fatalf("create adjustment: %v", err)
	}
	mustOrderAt(test, db, "tenant-1", typeID, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), 10, 80)

	movements, err := service.Movements(context.Background(), "tenant-1",
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		test.Fatalf("movements: %v", err)
	}
	if len(movements) != 2 {
		test.Fatalf("expected 2 movements, got %d", len(movements))
	}
	if movements[0].Source != SourceOrder || movements[0].FullChange != 10 {
		test.Fatalf("expected newest order movement first, got %+v", movements[0])
	}
	if movements[1].Source != SourceAdjustment || movements[1].FullChange != 3 {
		test.Fatalf("expected adjustment movement second, got %+v", movements[1])
	}
}
