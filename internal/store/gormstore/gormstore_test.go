package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

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
	if err := db.AutoMigrate(AllModels()...); err != nil {
		test.Fatalf("auto migrate: %v", err)
	}
	return db
}

func mustCreateType(test *testing.T, db *gorm.DB, company string, category string) string {
	test.Helper()
	row := CylinderType{Company: company, Category: category, WeightKg: decimal.NewFromInt(14)}
	if err := db.Create(&row).Error; err != nil {
		test.Fatalf("create cylinder type: %v", err)
	}
	return row.CylinderTypeID
}

func TestWithTxRollsBackOnError(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	store := New(db)
	typeID := mustCreateType(test, db, CompanyHPCL, CategoryDomestic)
	boom := errors.New("boom")

	err := store.WithTx(context.Background(), func(ctx context.Context, txStore stockledger.Store) error {
		if createErr := txStore.CreateInventory(ctx, stockledger.Inventory{
			TenantID:       "tenant-1",
			CylinderTypeID: typeID,
			FullCylinders:  5,
		}); createErr != nil {
			return createErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		test.Fatalf("expected boom, got %v", err)
	}

	_, found, err := store.GetInventory(context.Background(), "tenant-1", typeID)
	if err != nil {
		test.Fatalf("get inventory: %v", err)
	}
	if found {
		test.Fatal("expected inventory write rolled back")
	}
}

func TestSetInventoryCountsUpdatesRow(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	store := New(db)
	typeID := mustCreateType(test, db, CompanyIOCL, CategoryCommercial)

	err := store.CreateInventory(context.Background(), stockledger.Inventory{
		TenantID:       "tenant-1",
		CylinderTypeID: typeID,
		FullCylinders:  3,
		EmptyCylinders: 1,
	})
	if err != nil {
		test.Fatalf("create inventory: %v", err)
	}
	if err := store.SetInventoryCounts(context.Background(), "tenant-1", typeID, 9, 4); err != nil {
		test.Fatalf("set counts: %v", err)
	}

	inventory, found, err := store.GetInventory(context.Background(), "tenant-1", typeID)
	if err != nil || !found {
		test.Fatalf("get inventory: found=%v err=%v", found, err)
	}
	if inventory.FullCylinders != 9 || inventory.EmptyCylinders != 4 {
		test.Fatalf("expected 9/4, got %d/%d", inventory.FullCylinders, inventory.EmptyCylinders)
	}
}

func TestSetInventoryCountsMissingRow(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	store := New(db)

	err := store.SetInventoryCounts(context.Background(), "tenant-1", "no-such-type", 1, 1)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		test.Fatalf("expected wrapped ErrRecordNotFound, got %v", err)
	}
}

func TestInsertAdjustmentAssignsIDAndTimestamp(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	store := New(db)
	typeID := mustCreateType(test, db, CompanyBPCL, CategoryDomestic)

	adjustment, err := store.InsertAdjustment(context.Background(), stockledger.Adjustment{
		TenantID:       "tenant-1",
		CylinderTypeID: typeID,
		FullChange:     4,
		EmptyChange:    -1,
		Reason:         "Recount",
		AdjustmentDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		test.Fatalf("insert adjustment: %v", err)
	}
	if adjustment.AdjustmentID == "" {
		test.Fatal("expected generated adjustment id")
	}
	if adjustment.CreatedAt.IsZero() {
		test.Fatal("expected created timestamp")
	}
}

func TestApplyInventoryDeltaGuardsNegativeCounts(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)
	typeID := mustCreateType(test, db, CompanyHPCL, CategoryCommercial)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, applyErr := ApplyInventoryDelta(tx, "tenant-1", typeID, 5, 2); applyErr != nil {
			return applyErr
		}
		return nil
	})
	if err != nil {
		test.Fatalf("seed delta: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, applyErr := ApplyInventoryDelta(tx, "tenant-1", typeID, -9, 0)
		return applyErr
	})
	var stockErr stockledger.InsufficientStockError
	if !errors.As(err, &stockErr) {
		test.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Counter != stockledger.CounterFull || stockErr.Current != 5 || stockErr.Requested != 9 {
		test.Fatalf("unexpected stock error detail: %+v", stockErr)
	}

	var row Inventory
	if err := db.Where("tenant_id = ? AND cylinder_type_id = ?", "tenant-1", typeID).Take(&row).Error; err != nil {
		test.Fatalf("reload inventory: %v", err)
	}
	if row.FullCylinders != 5 || row.EmptyCylinders != 2 {
		test.Fatalf("expected 5/2 unchanged, got %d/%d", row.FullCylinders, row.EmptyCylinders)
	}
}

func TestIsUniqueViolationOnDuplicateDistributor(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)

	first := Distributor{TenantID: "tenant-1", Name: "Sharma Gas", ContactNumber: "111", Address: "Main Road", IsActive: true}
	if err := db.Create(&first).Error; err != nil {
		test.Fatalf("create distributor: %v", err)
	}
	second := Distributor{TenantID: "tenant-1", Name: "Sharma Gas", ContactNumber: "222", Address: "Side Road", IsActive: true}
	err := db.Create(&second).Error
	if err == nil {
		test.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err) {
		test.Fatalf("expected IsUniqueViolation to report true for %v", err)
	}
}

func TestSeedCylinderTypesIsIdempotent(test *testing.T) {
	test.Parallel()
	db := setupTestDB(test)

	if err := SeedCylinderTypes(context.Background(), db); err != nil {
		test.Fatalf("first seed: %v", err)
	}
	if err := SeedCylinderTypes(context.Background(), db); err != nil {
		test.Fatalf("second seed: %v", err)
	}
	var count int64
	if err := db.Model(&CylinderType{}).Count(&count).Error; err != nil {
		test.Fatalf("count: %v", err)
	}
	if count != 12 {
		test.Fatalf("expected 12 catalog rows, got %d", count)
	}
}
