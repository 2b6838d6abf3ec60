package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
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

func mustCreateStaff(test *testing.T, db *gorm.DB, tenantID string, name string, active bool) string {
	test.Helper()
	row := gormstore.Staff{TenantID: tenantID, Name: name, MobileNumber: "888", IsActive: active}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create staff: %v", err)
	}
	return row.StaffID
}

func mustCreateCustomer(test *testing.T, db *gorm.DB, tenantID string, name string) string {
	test.Helper()
	row := gormstore.Customer{TenantID: tenantID, Name: name, PhoneNumber: "777", IsActive: true}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create customer: %v", err)
	}
	return row.CustomerID
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

func stockFor(test *testing.T, db *gorm.DB, tenantID string, typeID string) (int, int) {
	test.Helper()
	var row gormstore.Inventory
	err := db.Where("tenant_id = ? AND cylinder_type_id = ?", tenantID, typeID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0
	}
	if err != nil {
		test.Fatalf("load inventory: %v", err)
	}
	return row.FullCylinders, row.EmptyCylinders
}

func salesDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCreateDeductsFullStock(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	typeID := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic, 14)
	mustSetStock(test, db, "tenant-1", typeID, 10, 0)

	created, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   staffID,
		SalesDate: salesDate(2024, time.June, 1),
		Items: []ItemInput{
			{CylinderTypeID: typeID, QuantitySold: 5, SellingPricePerCylinder: decimal.NewFromInt(60)},
		},
	})
	if err != nil {
		test.Fatalf("create sale: %v", err)
	}
	if len(created.Items) != 1 {
		test.Fatalf("expected 1 item, got %d", len(created.Items))
	}

	full, empty := stockFor(test, db, "tenant-1", typeID)
	if full != 5 || empty != 0 {
		test.Fatalf("expected stock 5/0, got %d/%d", full, empty)
	}
}

func TestCreateRejectsSaleBeyondStock(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	typeID := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic, 14)
	mustSetStock(test, db, "tenant-1", typeID, 3, 0)

	_, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   staffID,
		SalesDate: salesDate(2024, time.June, 2),
		Items: []ItemInput{
			{CylinderTypeID: typeID, QuantitySold: 4, SellingPricePerCylinder: decimal.NewFromInt(60)},
		},
	})
	var stockErr stockledger.InsufficientStockError
	if !errors.As(err, &stockErr) {
		test.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Current != 3 || stockErr.Requested != 4 {
		test.Fatalf("unexpected stock error detail: %+v", stockErr)
	}

	var saleCount int64
	if err := db.Model(&gormstore.DailySale{}).Count(&saleCount).Error; err != nil {
		test.Fatalf("count sales: %v", err)
	}
	if saleCount != 0 {
		test.Fatalf("expected rollback, got %d sales", saleCount)
	}
	full, _ := stockFor(test, db, "tenant-1", typeID)
	if full != 3 {
		test.Fatalf("expected stock 3 unchanged, got %d", full)
	}
}

func TestCreateReceivesEmptiesIndependently(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	soldType := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryDomestic, 14)
	emptyType := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryCommercial, 19)
	mustSetStock(test, db, "tenant-1", soldType, 10, 0)

	_, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   staffID,
		SalesDate: salesDate(2024, time.June, 3),
		Items: []ItemInput{
			{CylinderTypeID: soldType, QuantitySold: 2, SellingPricePerCylinder: decimal.NewFromInt(60)},
		},
		EmptiesReceived: []EmptyInput{
			{CylinderTypeID: emptyType, QuantityReceived: 3},
		},
	})
	if err != nil {
		test.Fatalf("create sale: %v", err)
	}

	full, empty := stockFor(test, db, "tenant-1", emptyType)
	if full != 0 || empty != 3 {
		test.Fatalf("expected empties 0/3, got %d/%d", full, empty)
	}
}

func TestCreateRecordsLoansWithoutInventoryEffect(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	customerID := mustCreateCustomer(test, db, "tenant-1", "Meera")
	typeID := mustCreateType(test, db, gormstore.CompanyBPCL, gormstore.CategoryDomestic, 14)
	mustSetStock(test, db, "tenant-1", typeID, 10, 4)

	created, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   staffID,
		SalesDate: salesDate(2024, time.June, 4),
		Items: []ItemInput{
			{CylinderTypeID: typeID, QuantitySold: 1, SellingPricePerCylinder: decimal.NewFromInt(60)},
		},
		CustomerLoans: []LoanInput{
			{CustomerID: customerID, CylinderTypeID: typeID, QuantityLoaned: 2},
		},
	})
	if err != nil {
		test.Fatalf("create sale: %v", err)
	}

	var loans []gormstore.CustomerLoan
	if err := db.Where("tenant_id = ?", "tenant-1").Find(&loans).Error; err != nil {
		test.Fatalf("load loans: %v", err)
	}
	if len(loans) != 1 || loans[0].QuantityLoaned != 2 {
		test.Fatalf("expected one loan of 2, got %+v", loans)
	}
	if !time.Time(loans[0].LoanDate).Equal(time.Time(created.SalesDate)) {
		test.Fatalf("expected loan date to match sales date")
	}

	full, empty := stockFor(test, db, "tenant-1", typeID)
	if full != 9 || empty != 4 {
		test.Fatalf("expected stock 9/4, got %d/%d", full, empty)
	}
}

func TestCreateRejectsInactiveStaffAndUnknownCustomer(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	inactiveStaff := mustCreateStaff(test, db, "tenant-1", "Dormant", false)
	activeStaff := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	typeID := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryCommercial, 19)
	mustSetStock(test, db, "tenant-1", typeID, 10, 0)

	_, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   inactiveStaff,
		SalesDate: salesDate(2024, time.June, 5),
		Items: []ItemInput{
			{CylinderTypeID: typeID, QuantitySold: 1, SellingPricePerCylinder: decimal.NewFromInt(60)},
		},
	})
	if !errors.Is(err, domain.ErrInactive) {
		test.Fatalf("expected ErrInactive, got %v", err)
	}

	_, err = service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   activeStaff,
		SalesDate: salesDate(2024, time.June, 5),
		Items: []ItemInput{
			{CylinderTypeID: typeID, QuantitySold: 1, SellingPricePerCylinder: decimal.NewFromInt(60)},
		},
		CustomerLoans: []LoanInput{
			{CustomerID: "no-such-customer", CylinderTypeID: typeID, QuantityLoaned: 1},
		},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListComputesRevenueTotals(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	typeID := mustCreateType(test, db, gormstore.CompanyIOCL, gormstore.CategoryDomestic, 14)
	mustSetStock(test, db, "tenant-1", typeID, 20, 0)

	_, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   staffID,
		SalesDate: salesDate(2024, time.June, 6),
		Items: []ItemInput{
			{CylinderTypeID: typeID, QuantitySold: 3, SellingPricePerCylinder: decimal.NewFromInt(50)},
			{CylinderTypeID: typeID, QuantitySold: 2, SellingPricePerCylinder: decimal.NewFromInt(70)},
		},
	})
	if err != nil {
		test.Fatalf("create sale: %v", err)
	}

	rows, page, err := service.List(context.Background(), "tenant-1", ListFilter{}, 1, 10)
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(rows) != 1 {
		test.Fatalf("expected 1 sale, got total=%d rows=%d", page.Total, len(rows))
	}
	if !rows[0].TotalRevenue.Equal(decimal.NewFromInt(290)) {
		test.Fatalf("expected revenue 290, got %s", rows[0].TotalRevenue)
	}
	if rows[0].TotalCylinders != 5 {
		test.Fatalf("expected 5 cylinders, got %d", rows[0].TotalCylinders)
	}
}

func TestSummarizeAggregatesByStaff(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	firstStaff := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	secondStaff := mustCreateStaff(test, db, "tenant-1", "Bala", true)
	typeID := mustCreateType(test, db, gormstore.CompanyBPCL, gormstore.CategoryCommercial, 19)
	mustSetStock(test, db, "tenant-1", typeID, 50, 0)

	for _, seed := range []struct {
		staffID  string
		quantity int
	}{
		{firstStaff, 4},
		{secondStaff, 6},
	} {
		_, err := service.Create(context.Background(), "tenant-1", CreateInput{
			StaffID:   seed.staffID,
			SalesDate: salesDate(2024, time.June, 7),
			Items: []ItemInput{
				{CylinderTypeID: typeID, QuantitySold: seed.quantity, SellingPricePerCylinder: decimal.NewFromInt(100)},
			},
		})
		if err != nil {
			test.Fatalf("seed sale: %v", err)
		}
	}

	summary, err := service.Summarize(context.Background(), "tenant-1", ListFilter{})
	if err != nil {
		test.Fatalf("summarize: %v", err)
	}
	if summary.SaleCount != 2 || summary.TotalCylinders != 10 {
		test.Fatalf("expected 2 sales and 10 cylinders, got %d and %d", summary.SaleCount, summary.TotalCylinders)
	}
	if !summary.TotalRevenue.Equal(decimal.NewFromInt(1000)) {
		test.Fatalf("expected revenue 1000, got %s", summary.TotalRevenue)
	}
	if len(summary.ByStaff) != 2 {
		test.Fatalf("expected 2 staff rows, got %d", len(summary.ByStaff))
	}
}

func TestAnalyzeBreaksDownByTypeAndCompany(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	staffID := mustCreateStaff(test, db, "tenant-1", "Anita", true)
	domesticType := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryDomestic, 14)
	commercialType := mustCreateType(test, db, gormstore.CompanyHPCL, gormstore.CategoryCommercial, 19)
	mustSetStock(test, db, "tenant-1", domesticType, 20, 0)
	mustSetStock(test, db, "tenant-1", commercialType, 20, 0)

	_, err := service.Create(context.Background(), "tenant-1", CreateInput{
		StaffID:   staffID,
		SalesDate: salesDate(2024, time.June, 8),
		Items: []ItemInput{
			{CylinderTypeID: domesticType, QuantitySold: 4, SellingPricePerCylinder: decimal.NewFromInt(50)},
			{CylinderTypeID: commercialType, QuantitySold: 2, SellingPricePerCylinder: decimal.NewFromInt(90)},
		},
	})
	if err != nil {
		test.Fatalf("create sale: %v", err)
	}

	analytics, err := service.Analyze(context.Background(), "tenant-1", ListFilter{})
	if err != nil {
		test.Fatalf("analyze: %v", err)
	}
	if len(analytics.ByCylinderType) != 2 {
		test.Fatalf("expected 2 type rows, got %d", len(analytics.ByCylinderType))
	}
	if len(analytics.ByCompany) != 1 {
		test.Fatalf("expected 1 company row, got %d", len(analytics.ByCompany))
	}
	company := analytics.ByCompany[0]
	if company.Company != gormstore.CompanyHPCL || company.QuantitySold != 6 {
		test.Fatalf("unexpected company rollup: %+v", company)
	}
	if !company.TotalRevenue.Equal(decimal.NewFromInt(380)) {
		test.Fatalf("expected company revenue 380, got %s", company.TotalRevenue)
	}
}
