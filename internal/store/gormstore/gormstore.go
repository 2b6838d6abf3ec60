package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore    = "store"
	errorSubjectInventory  = "inventory"
	errorSubjectAdjustment = "adjustment"
	errorSubjectCatalog    = "catalog"
	errorCodeCreate        = "create"
	errorCodeGet           = "get"
	errorCodeInsert        = "insert"
	errorCodeLookup        = "lookup"
	errorCodeUpdate        = "update"
)

// Store implements stockledger.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for the services that query directly.
func (store *Store) DB() *gorm.DB {
	return store.db
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore stockledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// CylinderTypeExists reports whether a catalog row exists.
func (store *Store) CylinderTypeExists(ctx context.Context, cylinderTypeID string) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&CylinderType{}).
		Where("cylinder_type_id = ?", cylinderTypeID).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectCatalog, errorCodeLookup, err)
	}
	return count > 0, nil
}

// TenantHasInventory reports whether any inventory row exists for the tenant.
func (store *Store) TenantHasInventory(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Inventory{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectInventory, errorCodeLookup, err)
	}
	return count > 0, nil
}

// GetInventory reads one inventory row without locking.
func (store *Store) GetInventory(ctx context.Context, tenantID string, cylinderTypeID string) (stockledger.Inventory, bool, error) {
	return store.getInventory(ctx, tenantID, cylinderTypeID, false)
}

// GetInventoryForUpdate reads one inventory row holding a row lock so
// check-then-write sequences serialize against concurrent writers.
func (store *Store) GetInventoryForUpdate(ctx context.Context, tenantID string, cylinderTypeID string) (stockledger.Inventory, bool, error) {
	return store.getInventory(ctx, tenantID, cylinderTypeID, true)
}

func (store *Store) getInventory(ctx context.Context, tenantID string, cylinderTypeID string, forUpdate bool) (stockledger.Inventory, bool, error) {
	query := store.db.WithContext(ctx)
	if forUpdate {
		query = ForUpdate(query)
	}
	var model Inventory
	err := query.
		Where("tenant_id = ? AND cylinder_type_id = ?", tenantID, cylinderTypeID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return stockledger.Inventory{}, false, nil
	}
	if err != nil {
		return stockledger.Inventory{}, false, wrapStoreError(errorSubjectInventory, errorCodeGet, err)
	}
	return stockledger.Inventory{
		TenantID:       model.TenantID,
		CylinderTypeID: model.CylinderTypeID,
		FullCylinders:  model.FullCylinders,
		EmptyCylinders: model.EmptyCylinders,
		LastUpdated:    model.LastUpdated,
	}, true, nil
}

// CreateInventory inserts a new inventory row.
func (store *Store) CreateInventory(ctx context.Context, inventory stockledger.Inventory) error {
	model := Inventory{
		TenantID:       inventory.TenantID,
		CylinderTypeID: inventory.CylinderTypeID,
		FullCylinders:  inventory.FullCylinders,
		EmptyCylinders: inventory.EmptyCylinders,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectInventory, errorCodeCreate, err)
	}
	return nil
}

// SetInventoryCounts overwrites the counters for one row.
func (store *Store) SetInventoryCounts(ctx context.Context, tenantID string, cylinderTypeID string, fullCylinders int, emptyCylinders int) error {
	result := store.db.WithContext(ctx).
		Model(&Inventory{}).
		Where("tenant_id = ? AND cylinder_type_id = ?", tenantID, cylinderTypeID).
		Updates(map[string]any{
			"full_cylinders":  fullCylinders,
			"empty_cylinders": emptyCylinders,
			"last_updated":    time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectInventory, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectInventory, errorCodeUpdate, gorm.ErrRecordNotFound)
	}
	return nil
}

// InsertAdjustment appends one audit row and returns it with generated fields.
func (store *Store) InsertAdjustment(ctx context.Context, adjustment stockledger.Adjustment) (stockledger.Adjustment, error) {
	model := InventoryAdjustment{
		TenantID:            adjustment.TenantID,
		CylinderTypeID:      adjustment.CylinderTypeID,
		FullCylinderChange:  adjustment.FullChange,
		EmptyCylinderChange: adjustment.EmptyChange,
		Reason:              adjustment.Reason,
		AdjustmentDate:      datatypes.Date(adjustment.AdjustmentDate),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return stockledger.Adjustment{}, wrapStoreError(errorSubjectAdjustment, errorCodeInsert, err)
	}
	adjustment.AdjustmentID = model.AdjustmentID
	adjustment.CreatedAt = model.CreatedAt
	return adjustment, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return stockledger.WrapError(errorOperationStore, subject, code, err)
}

// ForUpdate adds a row lock on engines that support it. SQLite holds a
// database-level write lock for the whole transaction, so the clause is
// skipped there rather than tripping its parser.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsUniqueViolation reports whether err is a duplicate-key failure from
// either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
