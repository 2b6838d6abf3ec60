package distributor

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

func mustCreate(test *testing.T, service *Service, tenantID string, name string) gormstore.Distributor {
	test.Helper()
	row, err := service.Create(context.Background(), tenantID, CreateInput{
		Name:          name,
		ContactNumber: "555",
		Address:       "Depot Road",
	})
	if err != nil {
		test.Fatalf("create distributor: %v", err)
	}
	return row
}

func mustCreateOrder(test *testing.T, db *gorm.DB, tenantID string, distributorID string, amount int64) {
	test.Helper()
	row := gormstore.Order{
		TenantID:      tenantID,
		DistributorID: distributorID,
		OrderDate:     datatypes.Date(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		TotalAmount:   decimal.NewFromInt(amount),
	}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create order: %v", err)
	}
}

func mustCreatePayment(test *testing.T, db *gorm.DB, tenantID string, distributorID string, amount int64) {
	test.Helper()
	row := gormstore.Payment{
		TenantID:      tenantID,
		DistributorID: distributorID,
		AmountPaid:    decimal.NewFromInt(amount),
		PaymentDate:   datatypes.Date(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)),
		PaymentMethod: gormstore.PaymentMethodCash,
	}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create payment: %v", err)
	}
}

func TestCreateRejectsDuplicateNamePerTenant(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	mustCreate(test, service, "tenant-1", "Sharma Gas")

	_, err := service.Create(context.Background(), "tenant-1", CreateInput{
		Name:          "Sharma Gas",
		ContactNumber: "666",
	})
	if !errors.Is(err, domain.ErrConflict) {
		test.Fatalf("expected ErrConflict, got %v", err)
	}

	// Same name under another tenant is fine.
	if _, err := service.Create(context.Background(), "tenant-2", CreateInput{
		Name:          "Sharma Gas",
		ContactNumber: "666",
	}); err != nil {
		test.Fatalf("cross-tenant create: %v", err)
	}
}

func TestFinancialBalanceOwed(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	mustCreateOrder(test, db, "tenant-1", created.DistributorID, 800)
	mustCreateOrder(test, db, "tenant-1", created.DistributorID, 700)
	mustCreatePayment(test, db, "tenant-1", created.DistributorID, 1000)

	balance, err := service.FinancialBalance(context.Background(), "tenant-1", created.DistributorID)
	if err != nil {
		test.Fatalf("financial balance: %v", err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(500)) {
		test.Fatalf("expected balance 500, got %s", balance.Balance)
	}
	if balance.Status != StatusOwed {
		test.Fatalf("expected status owed, got %s", balance.Status)
	}
}

func TestFinancialBalanceIndependentOfInsertOrder(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	mustCreatePayment(test, db, "tenant-1", created.DistributorID, 300)
	mustCreateOrder(test, db, "tenant-1", created.DistributorID, 200)
	mustCreatePayment(test, db, "tenant-1", created.DistributorID, 100)

	balance, err := service.FinancialBalance(context.Background(), "tenant-1", created.DistributorID)
	if err != nil {
		test.Fatalf("financial balance: %v", err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(-200)) {
		test.Fatalf("expected balance -200, got %s", balance.Balance)
	}
	if balance.Status != StatusCredit {
		test.Fatalf("expected status credit, got %s", balance.Status)
	}
}

func TestFinancialBalanceSettledWhenNoActivity(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	balance, err := service.FinancialBalance(context.Background(), "tenant-1", created.DistributorID)
	if err != nil {
		test.Fatalf("financial balance: %v", err)
	}
	if !balance.Balance.IsZero() || balance.Status != StatusSettled {
		test.Fatalf("expected settled zero balance, got %s %s", balance.Balance, balance.Status)
	}
}

func TestCylinderBalanceDropsZeroRows(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	cylinderType := gormstore.CylinderType{Company: gormstore.CompanyHPCL, Category: gormstore.CategoryDomestic, WeightKg: decimal.NewFromInt(14)}
	if err := db.Create(&cylinderType).Error; err != nil {
		test.Fatalf("create type: %v", err)
	}
	order := gormstore.Order{
		TenantID:      "tenant-1",
		DistributorID: created.DistributorID,
		OrderDate:     datatypes.Date(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		TotalAmount:   decimal.NewFromInt(500),
		Items: []gormstore.OrderItem{
			{CylinderTypeID: cylinderType.CylinderTypeID, Quantity: 10, PricePerCylinder: decimal.NewFromInt(50)},
		},
	}
	if err := db.Create(&order).Error; err != nil {
		test.Fatalf("create order: %v", err)
	}
	returnRow := gormstore.CylinderReturn{
		TenantID:       "tenant-1",
		DistributorID:  created.DistributorID,
		CylinderTypeID: cylinderType.CylinderTypeID,
		Quantity:       4,
		ReturnDate:     datatypes.Date(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	if err := db.Create(&returnRow).Error; err != nil {
		test.Fatalf("create return: %v", err)
	}

	balance, err := service.CylinderBalance(context.Background(), "tenant-1", created.DistributorID)
	if err != nil {
		test.Fatalf("cylinder balance: %v", err)
	}
	if len(balance.Rows) != 1 {
		test.Fatalf("expected 1 row, got %d", len(balance.Rows))
	}
	row := balance.Rows[0]
	if row.TotalReceived != 10 || row.TotalReturned != 4 || row.PendingReturn != 6 {
		test.Fatalf("unexpected row: %+v", row)
	}
	if balance.TotalPendingReturn != 6 {
		test.Fatalf("expected pending 6, got %d", balance.TotalPendingReturn)
	}
}

func TestSetActiveRejectsRepeatState(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	if _, err := service.SetActive(context.Background(), "tenant-1", created.DistributorID, true); !errors.Is(err, domain.ErrValidation) {
		test.Fatalf("expected validation error for repeat activate, got %v", err)
	}
	deactivated, err := service.SetActive(context.Background(), "tenant-1", created.DistributorID, false)
	if err != nil {
		test.Fatalf("deactivate: %v", err)
	}
	if deactivated.IsActive {
		test.Fatal("expected inactive")
	}
	if _, err := service.SetActive(context.Background(), "tenant-1", created.DistributorID, false); !errors.Is(err, domain.ErrValidation) {
		test.Fatalf("expected validation error for repeat deactivate, got %v", err)
	}
}

func TestGetScopesByTenant(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	if _, err := service.Get(context.Background(), "tenant-2", created.DistributorID); !errors.Is(err, domain.ErrNotFound) {
		test.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}

func TestUpdateAppliesOnlyProvidedFields(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	service := NewService(db)
	created := mustCreate(test, service, "tenant-1", "Sharma Gas")

	newAddress := "New Market"
	updated, err := service.Update(context.Background(), "tenant-1", created.DistributorID, UpdateInput{
		Address: &newAddress,
	})
	if err != nil {
		test.Fatalf("update: %v", err)
	}
	if updated.Address != newAddress {
		test.Fatalf("expected address %q, got %q", newAddress, updated.Address)
	}
	if updated.Name != "Sharma Gas" || updated.ContactNumber != "555" {
		test.Fatalf("expected untouched fields preserved, got %+v", updated)
	}
}
