package stockledger

import (
	"context"
	"time"
)

// Inventory is the running count of full and empty cylinders for one
// tenant and cylinder type.
type Inventory struct {
	TenantID       string    `json:"-"`
	CylinderTypeID string    `json:"cylinderTypeId"`
	FullCylinders  int       `json:"fullCylinders"`
	EmptyCylinders int       `json:"emptyCylinders"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Adjustment is one immutable audit row. Every inventory mutation that is
// not an order or a sale is paired with exactly one Adjustment.
type Adjustment struct {
	AdjustmentID   string    `json:"id"`
	TenantID       string    `json:"-"`
	CylinderTypeID string    `json:"cylinderTypeId"`
	FullChange     int       `json:"fullCylinderChange"`
	EmptyChange    int       `json:"emptyCylinderChange"`
	Reason         string    `json:"reason"`
	AdjustmentDate time.Time `json:"adjustmentDate"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Balance is the on-hand view for one tenant and cylinder type.
type Balance struct {
	FullCylinders  int `json:"fullCylinders"`
	EmptyCylinders int `json:"emptyCylinders"`
}

// OpeningStockItem is one line of the one-time initial baseline.
type OpeningStockItem struct {
	CylinderTypeID string `json:"cylinderTypeId"`
	FullCylinders  int    `json:"fullCylinders"`
	EmptyCylinders int    `json:"emptyCylinders"`
}

// Store is the persistence contract used by Service. Reads performed inside
// WithTx must lock the inventory row so check-then-write sequences serialize
// against concurrent same-row writers.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	CylinderTypeExists(ctx context.Context, cylinderTypeID string) (bool, error)
	TenantHasInventory(ctx context.Context, tenantID string) (bool, error)
	GetInventory(ctx context.Context, tenantID string, cylinderTypeID string) (Inventory, bool, error)
	GetInventoryForUpdate(ctx context.Context, tenantID string, cylinderTypeID string) (Inventory, bool, error)
	CreateInventory(ctx context.Context, inventory Inventory) error
	SetInventoryCounts(ctx context.Context, tenantID string, cylinderTypeID string, fullCylinders int, emptyCylinders int) error
	InsertAdjustment(ctx context.Context, adjustment Adjustment) (Adjustment, error)
}
