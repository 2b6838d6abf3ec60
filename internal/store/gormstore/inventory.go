package gormstore

import (
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	"gorm.io/gorm"
)

// ApplyInventoryDelta mutates one inventory row inside the caller's
// transaction. The row is read under a row lock, created at zero if
// absent, and the write is rejected with InsufficientStockError if
// either counter would drop below zero. Audit rows are the caller's
// responsibility; order and sale writers deliberately do not pair
// their mutations with adjustments.
func ApplyInventoryDelta(tx *gorm.DB, tenantID string, cylinderTypeID string, fullDelta int, emptyDelta int) (Inventory, error) {
	var row Inventory
	err := ForUpdate(tx).
		Where("tenant_id = ? AND cylinder_type_id = ?", tenantID, cylinderTypeID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = Inventory{TenantID: tenantID, CylinderTypeID: cylinderTypeID}
		if createErr := tx.Create(&row).Error; createErr != nil {
			return Inventory{}, wrapStoreError(errorSubjectInventory, errorCodeCreate, createErr)
		}
	} else if err != nil {
		return Inventory{}, wrapStoreError(errorSubjectInventory, errorCodeGet, err)
	}

	newFull := row.FullCylinders + fullDelta
	newEmpty := row.EmptyCylinders + emptyDelta
	if newFull < 0 {
		return Inventory{}, stockledger.InsufficientStockError{
			CylinderTypeID: cylinderTypeID,
			Counter:        stockledger.CounterFull,
			Current:        row.FullCylinders,
			Requested:      -fullDelta,
		}
	}
	if newEmpty < 0 {
		return Inventory{}, stockledger.InsufficientStockError{
			CylinderTypeID: cylinderTypeID,
			Counter:        stockledger.CounterEmpty,
			Current:        row.EmptyCylinders,
			Requested:      -emptyDelta,
		}
	}

	result := tx.Model(&Inventory{}).
		Where("inventory_id = ?", row.InventoryID).
		Updates(map[string]any{
			"full_cylinders":  newFull,
			"empty_cylinders": newEmpty,
			"last_updated":    time.Now().UTC(),
		})
	if result.Error != nil {
		return Inventory{}, wrapStoreError(errorSubjectInventory, errorCodeUpdate, result.Error)
	}
	row.FullCylinders = newFull
	row.EmptyCylinders = newEmpty
	return row, nil
}

// MissingCylinderTypes returns which of the given ids have no catalog row.
func MissingCylinderTypes(tx *gorm.DB, cylinderTypeIDs []string) ([]string, error) {
	if len(cylinderTypeIDs) == 0 {
		return nil, nil
	}
	var found []string
	err := tx.Model(&CylinderType{}).
		Where("cylinder_type_id IN ?", cylinderTypeIDs).
		Pluck("cylinder_type_id", &found).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectCatalog, errorCodeLookup, err)
	}
	known := make(map[string]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []string
	for _, id := range cylinderTypeIDs {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
