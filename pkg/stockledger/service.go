package stockledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// OpeningStockReason is the audit reason recorded for baseline rows.
const OpeningStockReason = "Opening Stock"

// Service contains the inventory ledger logic over a Store.
type Service struct {
	store Store
	nowFn func() time.Time
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	return &Service{store: store, nowFn: now}, nil
}

// Adjust applies a full/empty delta for one tenant and cylinder type and
// records the paired audit row, all within one transaction. The inventory
// row is created lazily with a zero baseline. If either counter would go
// negative the transaction aborts with an InsufficientStockError and no
// partial effect remains.
func (service *Service) Adjust(ctx context.Context, tenantID string, cylinderTypeID string, fullDelta int, emptyDelta int, reason string, adjustmentDate time.Time) (Adjustment, error) {
	if err := validateTenantID(tenantID); err != nil {
		return Adjustment{}, err
	}
	if err := validateCylinderTypeID(cylinderTypeID); err != nil {
		return Adjustment{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return Adjustment{}, fmt.Errorf("%w: empty value", ErrInvalidReason)
	}
	if adjustmentDate.IsZero() {
		adjustmentDate = service.nowFn()
	}
	var created Adjustment
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		exists, err := transactionStore.CylinderTypeExists(ctx, cylinderTypeID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUnknownCylinderType
		}
		inventory, found, err := transactionStore.GetInventoryForUpdate(ctx, tenantID, cylinderTypeID)
		if err != nil {
			return err
		}
		if !found {
			inventory = Inventory{TenantID: tenantID, CylinderTypeID: cylinderTypeID}
			if err := transactionStore.CreateInventory(ctx, inventory); err != nil {
				return err
			}
		}
		newFull := inventory.FullCylinders + fullDelta
		newEmpty := inventory.EmptyCylinders + emptyDelta
		if newFull < 0 {
			return InsufficientStockError{
				CylinderTypeID: cylinderTypeID,
				Counter:        CounterFull,
				Current:        inventory.FullCylinders,
				Requested:      -fullDelta,
			}
		}
		if newEmpty < 0 {
			return InsufficientStockError{
				CylinderTypeID: cylinderTypeID,
				Counter:        CounterEmpty,
				Current:        inventory.EmptyCylinders,
				Requested:      -emptyDelta,
			}
		}
		if err := transactionStore.SetInventoryCounts(ctx, tenantID, cylinderTypeID, newFull, newEmpty); err != nil {
			return err
		}
		created, err = transactionStore.InsertAdjustment(ctx, Adjustment{
			TenantID:       tenantID,
			CylinderTypeID: cylinderTypeID,
			FullChange:     fullDelta,
			EmptyChange:    emptyDelta,
			Reason:         reason,
			AdjustmentDate: adjustmentDate,
		})
		return err
	})
	if operationError != nil {
		return Adjustment{}, operationError
	}
	return created, nil
}

// OpeningStock records the one-time initial baseline for a tenant: one
// inventory row and one paired adjustment row per item, all-or-nothing.
// It fails with ErrAlreadyInitialized if the tenant holds any inventory
// row already, checked before any write.
func (service *Service) OpeningStock(ctx context.Context, tenantID string, items []OpeningStockItem, openingDate time.Time) ([]Inventory, error) {
	if err := validateTenantID(tenantID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: opening stock requires at least one item", ErrInvalidQuantity)
	}
	for _, item := range items {
		if err := validateCylinderTypeID(item.CylinderTypeID); err != nil {
			return nil, err
		}
		if item.FullCylinders < 0 || item.EmptyCylinders < 0 {
			return nil, fmt.Errorf("%w: opening counts must not be negative", ErrInvalidQuantity)
		}
	}
	if openingDate.IsZero() {
		openingDate = service.nowFn()
	}
	created := make([]Inventory, 0, len(items))
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		initialized, err := transactionStore.TenantHasInventory(ctx, tenantID)
		if err != nil {
			return err
		}
		if initialized {
			return ErrAlreadyInitialized
		}
		for _, item := range items {
			exists, err := transactionStore.CylinderTypeExists(ctx, item.CylinderTypeID)
			if err != nil {
				return err
			}
			if !exists {
				return ErrUnknownCylinderType
			}
			inventory := Inventory{
				TenantID:       tenantID,
				CylinderTypeID: item.CylinderTypeID,
				FullCylinders:  item.FullCylinders,
				EmptyCylinders: item.EmptyCylinders,
			}
			if err := transactionStore.CreateInventory(ctx, inventory); err != nil {
				return err
			}
			if _, err := transactionStore.InsertAdjustment(ctx, Adjustment{
				TenantID:       tenantID,
				CylinderTypeID: item.CylinderTypeID,
				FullChange:     item.FullCylinders,
				EmptyChange:    item.EmptyCylinders,
				Reason:         OpeningStockReason,
				AdjustmentDate: openingDate,
			}); err != nil {
				return err
			}
			created = append(created, inventory)
		}
		return nil
	})
	if operationError != nil {
		return nil, operationError
	}
	return created, nil
}

// Balance returns the on-hand counts, zero-valued when no row exists.
func (service *Service) Balance(ctx context.Context, tenantID string, cylinderTypeID string) (Balance, error) {
	if err := validateTenantID(tenantID); err != nil {
		return Balance{}, err
	}
	if err := validateCylinderTypeID(cylinderTypeID); err != nil {
		return Balance{}, err
	}
	inventory, found, err := service.store.GetInventory(ctx, tenantID, cylinderTypeID)
	if err != nil {
		return Balance{}, err
	}
	if !found {
		return Balance{}, nil
	}
	return Balance{
		FullCylinders:  inventory.FullCylinders,
		EmptyCylinders: inventory.EmptyCylinders,
	}, nil
}

func validateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidTenantID)
	}
	return nil
}

func validateCylinderTypeID(cylinderTypeID string) error {
	if strings.TrimSpace(cylinderTypeID) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidCylinderType)
	}
	return nil
}
