// Package ordering records purchases from distributors. An order brings
// full cylinders in and optionally hands empties back; both inventory
// effects and the frozen order total are committed in one transaction.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service provides order operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns an ordering service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ItemInput is one order line.
type ItemInput struct {
	CylinderTypeID   string
	Quantity         int
	PricePerCylinder decimal.Decimal
}

// ReturnInput is one batch of empties handed back at order time.
type ReturnInput struct {
	CylinderTypeID string
	Quantity       int
}

// CreateInput carries the fields for a new order.
type CreateInput struct {
	DistributorID  string
	OrderDate      time.Time
	DeliveryPerson string
	Items          []ItemInput
	Returns        []ReturnInput
}

// ListFilter narrows an order listing.
type ListFilter struct {
	DistributorID string
	StartDate     *time.Time
	EndDate       *time.Time
}

// Summary bundles an order with its lines, returns, and quantity totals.
type Summary struct {
	Order          gormstore.Order            `json:"order"`
	Returns        []gormstore.CylinderReturn `json:"returns"`
	TotalCylinders int                        `json:"totalCylinders"`
	TotalReturned  int                        `json:"totalReturned"`
}

// Create records an order and applies its inventory effects atomically.
// Any failure rolls back everything, including the order rows written
// before the failing return check.
func (service *Service) Create(ctx context.Context, tenantID string, input CreateInput) (gormstore.Order, error) {
	if len(input.Items) == 0 {
		return gormstore.Order{}, domain.Invalid("items", "at least one item is required")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return gormstore.Order{}, domain.Invalid("items", "item quantity must be positive")
		}
		if item.PricePerCylinder.IsNegative() {
			return gormstore.Order{}, domain.Invalid("items", "price must not be negative")
		}
	}
	for _, returnBatch := range input.Returns {
		if returnBatch.Quantity <= 0 {
			return gormstore.Order{}, domain.Invalid("returns", "return quantity must be positive")
		}
	}

	var created gormstore.Order
	err := service.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var distributorRow gormstore.Distributor
		err := tx.Where("tenant_id = ? AND distributor_id = ?", tenantID, input.DistributorID).
			Take(&distributorRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("distributor %s: %w", input.DistributorID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if !distributorRow.IsActive {
			return fmt.Errorf("distributor %s: %w", input.DistributorID, domain.ErrInactive)
		}

		typeIDs := make([]string, 0, len(input.Items)+len(input.Returns))
		for _, item := range input.Items {
			typeIDs = append(typeIDs, item.CylinderTypeID)
		}
		for _, returnBatch := range input.Returns {
			typeIDs = append(typeIDs, returnBatch.CylinderTypeID)
		}
		missing, err := gormstore.MissingCylinderTypes(tx, typeIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("cylinder type %s: %w", missing[0], domain.ErrNotFound)
		}

		totalAmount := decimal.Zero
		orderItems := make([]gormstore.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			lineTotal := item.PricePerCylinder.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totalAmount = totalAmount.Add(lineTotal)
			orderItems = append(orderItems, gormstore.OrderItem{
				CylinderTypeID:   item.CylinderTypeID,
				Quantity:         item.Quantity,
				PricePerCylinder: item.PricePerCylinder,
			})
		}
		created = gormstore.Order{
			TenantID:       tenantID,
			DistributorID:  input.DistributorID,
			OrderDate:      datatypes.Date(input.OrderDate),
			DeliveryPerson: input.DeliveryPerson,
			TotalAmount:    totalAmount,
			Items:          orderItems,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		// Empties go out before fulls come in, so a short empty count
		// rejects the whole order.
		for _, returnBatch := range input.Returns {
			if _, err := gormstore.ApplyInventoryDelta(tx, tenantID, returnBatch.CylinderTypeID, 0, -returnBatch.Quantity); err != nil {
				return err
			}
			returnRow := gormstore.CylinderReturn{
				TenantID:       tenantID,
				DistributorID:  input.DistributorID,
				CylinderTypeID: returnBatch.CylinderTypeID,
				Quantity:       returnBatch.Quantity,
				ReturnDate:     datatypes.Date(input.OrderDate),
			}
			if err := tx.Create(&returnRow).Error; err != nil {
				return err
			}
		}
		for _, item := range input.Items {
			if _, err := gormstore.ApplyInventoryDelta(tx, tenantID, item.CylinderTypeID, item.Quantity, 0); err != nil {
				return err
			}
		}
		created.Distributor = distributorRow
		return nil
	})
	if err != nil {
		return gormstore.Order{}, err
	}
	return created, nil
}

// List returns the tenant's orders filtered and paginated, newest first.
func (service *Service) List(ctx context.Context, tenantID string, filter ListFilter, pageNumber int, limit int) ([]gormstore.Order, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.db.WithContext(ctx).Model(&gormstore.Order{}).Where("tenant_id = ?", tenantID)
	if filter.DistributorID != "" {
		query = query.Where("distributor_id = ?", filter.DistributorID)
	}
	if filter.StartDate != nil {
		query = query.Where("order_date >= ?", datatypes.Date(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("order_date <= ?", datatypes.Date(*filter.EndDate))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.Order
	err := query.Preload("Distributor").
		Preload("Items").
		Preload("Items.CylinderType").
		Order("order_date DESC, created_at DESC").
		Limit(limit).Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	return rows, page, nil
}

// Get returns one owned order. An order of another tenant is
// indistinguishable from a missing one.
func (service *Service) Get(ctx context.Context, tenantID string, orderID string) (gormstore.Order, error) {
	var row gormstore.Order
	err := service.db.WithContext(ctx).
		Preload("Distributor").
		Preload("Items").
		Preload("Items.CylinderType").
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.Order{}, err
	}
	return row, nil
}

// Items returns the lines of one owned order.
func (service *Service) Items(ctx context.Context, tenantID string, orderID string) ([]gormstore.OrderItem, error) {
	row, err := service.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return row.Items, nil
}

// ReturnsFor returns the cylinder returns recorded alongside one order.
// Returns share the order's distributor and date.
func (service *Service) ReturnsFor(ctx context.Context, tenantID string, orderID string) ([]gormstore.CylinderReturn, error) {
	row, err := service.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	var returns []gormstore.CylinderReturn
	err = service.db.WithContext(ctx).
		Preload("CylinderType").
		Where("tenant_id = ? AND distributor_id = ? AND return_date = ?", tenantID, row.DistributorID, row.OrderDate).
		Find(&returns).Error
	if err != nil {
		return nil, err
	}
	return returns, nil
}

// Summarize bundles an order with its returns and quantity totals.
func (service *Service) Summarize(ctx context.Context, tenantID string, orderID string) (Summary, error) {
	row, err := service.Get(ctx, tenantID, orderID)
	if err != nil {
		return Summary{}, err
	}
	returns, err := service.ReturnsFor(ctx, tenantID, orderID)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Order: row, Returns: returns}
	for _, item := range row.Items {
		summary.TotalCylinders += item.Quantity
	}
	for _, returnRow := range returns {
		summary.TotalReturned += returnRow.Quantity
	}
	return summary, nil
}
