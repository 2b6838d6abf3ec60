package gormstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cylinder companies seeded into the catalog.
const (
	CompanyHPCL = "HPCL"
	CompanyIOCL = "IOCL"
	CompanyBPCL = "BPCL"
)

// Cylinder categories.
const (
	CategoryDomestic   = "Domestic"
	CategoryCommercial = "Commercial"
)

// Payment methods accepted on distributor payments.
const (
	PaymentMethodCash         = "Cash"
	PaymentMethodUPI          = "UPI"
	PaymentMethodCard         = "Card"
	PaymentMethodCheque       = "Cheque"
	PaymentMethodBankTransfer = "BankTransfer"
	PaymentMethodOther        = "Other"
)

// KnownPaymentMethod reports whether method is one of the accepted values.
func KnownPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodCard,
		PaymentMethodCheque, PaymentMethodBankTransfer, PaymentMethodOther:
		return true
	}
	return false
}

// CylinderType is an immutable catalog row identifying a SKU by
// company, category, and weight. Seeded once, never mutated.
type CylinderType struct {
	CylinderTypeID string          `gorm:"type:uuid;primaryKey" json:"id"`
	Company        string          `gorm:"not null;index:idx_cylinder_types_sku,unique,priority:1" json:"company"`
	Category       string          `gorm:"not null;index:idx_cylinder_types_sku,unique,priority:2" json:"category"`
	WeightKg       decimal.Decimal `gorm:"type:decimal(5,2);not null;index:idx_cylinder_types_sku,unique,priority:3" json:"weightKg"`
	CreatedAt      time.Time       `gorm:"not null" json:"-"`
}

func (CylinderType) TableName() string { return "cylinder_types" }

func (cylinderType *CylinderType) BeforeCreate(tx *gorm.DB) error {
	if cylinderType.CylinderTypeID == "" {
		cylinderType.CylinderTypeID = uuid.NewString()
	}
	return nil
}

// Display returns the human label used in stock error messages.
func (cylinderType CylinderType) Display() string {
	return fmt.Sprintf("%s %s %skg", cylinderType.Company, cylinderType.Category, cylinderType.WeightKg)
}

// Inventory holds the running full/empty counts for one tenant and
// cylinder type. Mutated only inside transactions; both counts stay >= 0.
type Inventory struct {
	InventoryID    string       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       string       `gorm:"not null;index:idx_inventories_tenant_type,unique,priority:1" json:"-"`
	CylinderTypeID string       `gorm:"type:uuid;not null;index:idx_inventories_tenant_type,unique,priority:2" json:"cylinderTypeId"`
	CylinderType   CylinderType `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	FullCylinders  int          `gorm:"not null;default:0" json:"fullCylinders"`
	EmptyCylinders int          `gorm:"not null;default:0" json:"emptyCylinders"`
	LastUpdated    time.Time    `gorm:"not null;autoUpdateTime" json:"lastUpdated"`
}

func (Inventory) TableName() string { return "inventories" }

func (inventory *Inventory) BeforeCreate(tx *gorm.DB) error {
	if inventory.InventoryID == "" {
		inventory.InventoryID = uuid.NewString()
	}
	return nil
}

// InventoryAdjustment is the append-only audit row paired with every
// inventory mutation that is not an order or a sale.
type InventoryAdjustment struct {
	AdjustmentID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID            string         `gorm:"not null;index:idx_adjustments_tenant_date,priority:1" json:"-"`
	CylinderTypeID      string         `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType        CylinderType   `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	FullCylinderChange  int            `gorm:"not null" json:"fullCylinderChange"`
	EmptyCylinderChange int            `gorm:"not null" json:"emptyCylinderChange"`
	Reason              string         `gorm:"not null" json:"reason"`
	AdjustmentDate      datatypes.Date `gorm:"not null;index:idx_adjustments_tenant_date,priority:2" json:"adjustmentDate"`
	CreatedAt           time.Time      `gorm:"not null" json:"createdAt"`
}

func (InventoryAdjustment) TableName() string { return "inventory_adjustments" }

func (adjustment *InventoryAdjustment) BeforeCreate(tx *gorm.DB) error {
	if adjustment.AdjustmentID == "" {
		adjustment.AdjustmentID = uuid.NewString()
	}
	return nil
}

// Distributor is an owner-scoped upstream supplier. Soft-deactivated,
// never hard-deleted.
type Distributor struct {
	DistributorID string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      string    `gorm:"not null;index:idx_distributors_tenant_name,unique,priority:1" json:"-"`
	Name          string    `gorm:"not null;index:idx_distributors_tenant_name,unique,priority:2" json:"name"`
	ContactNumber string    `gorm:"not null" json:"contactNumber"`
	Address       string    `gorm:"not null" json:"address"`
	IsActive      bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`
}

func (Distributor) TableName() string { return "distributors" }

func (distributor *Distributor) BeforeCreate(tx *gorm.DB) error {
	if distributor.DistributorID == "" {
		distributor.DistributorID = uuid.NewString()
	}
	return nil
}

// Staff is an owner-scoped employee who records daily sales.
type Staff struct {
	StaffID      string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     string    `gorm:"not null;index:idx_staff_tenant_identity,unique,priority:1" json:"-"`
	Name         string    `gorm:"not null;index:idx_staff_tenant_identity,unique,priority:2" json:"name"`
	MobileNumber string    `gorm:"not null;index:idx_staff_tenant_identity,unique,priority:3" json:"mobileNumber"`
	Address      string    `json:"address"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

func (Staff) TableName() string { return "staff" }

func (staff *Staff) BeforeCreate(tx *gorm.DB) error {
	if staff.StaffID == "" {
		staff.StaffID = uuid.NewString()
	}
	return nil
}

// Customer is an owner-scoped retail customer who can hold cylinder loans.
type Customer struct {
	CustomerID  string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    string    `gorm:"not null;index:idx_customers_tenant_identity,unique,priority:1" json:"-"`
	Name        string    `gorm:"not null;index:idx_customers_tenant_identity,unique,priority:2" json:"name"`
	PhoneNumber string    `gorm:"not null;index:idx_customers_tenant_identity,unique,priority:3" json:"phoneNumber"`
	Address     string    `json:"address"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }

func (customer *Customer) BeforeCreate(tx *gorm.DB) error {
	if customer.CustomerID == "" {
		customer.CustomerID = uuid.NewString()
	}
	return nil
}

// Order is a purchase from a distributor. Immutable after creation;
// TotalAmount is computed from the items and frozen.
type Order struct {
	OrderID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       string          `gorm:"not null;index:idx_orders_tenant_date,priority:1" json:"-"`
	DistributorID  string          `gorm:"type:uuid;not null;index" json:"distributorId"`
	Distributor    Distributor     `gorm:"foreignKey:DistributorID" json:"distributor"`
	OrderDate      datatypes.Date  `gorm:"not null;index:idx_orders_tenant_date,priority:2" json:"orderDate"`
	DeliveryPerson string          `gorm:"not null" json:"deliveryPerson"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalAmount"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt      time.Time       `gorm:"not null" json:"createdAt"`
}

func (Order) TableName() string { return "orders" }

func (order *Order) BeforeCreate(tx *gorm.DB) error {
	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}
	return nil
}

// OrderItem is one line of an order.
type OrderItem struct {
	OrderItemID      string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          string          `gorm:"type:uuid;not null;index" json:"orderId"`
	CylinderTypeID   string          `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType     CylinderType    `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	PricePerCylinder decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"pricePerCylinder"`
}

func (OrderItem) TableName() string { return "order_items" }

func (orderItem *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if orderItem.OrderItemID == "" {
		orderItem.OrderItemID = uuid.NewString()
	}
	return nil
}

// CylinderReturn records empty cylinders handed back to a distributor
// at order time.
type CylinderReturn struct {
	CylinderReturnID string         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         string         `gorm:"not null;index" json:"-"`
	DistributorID    string         `gorm:"type:uuid;not null;index" json:"distributorId"`
	CylinderTypeID   string         `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType     CylinderType   `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	ReturnDate       datatypes.Date `gorm:"not null" json:"returnDate"`
	CreatedAt        time.Time      `gorm:"not null" json:"createdAt"`
}

func (CylinderReturn) TableName() string { return "cylinder_returns" }

func (cylinderReturn *CylinderReturn) BeforeCreate(tx *gorm.DB) error {
	if cylinderReturn.CylinderReturnID == "" {
		cylinderReturn.CylinderReturnID = uuid.NewString()
	}
	return nil
}

// Payment is money paid to a distributor. Mutable: a recorded payment can
// be corrected or voided, unlike an Order.
type Payment struct {
	PaymentID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID             string          `gorm:"not null;index:idx_payments_tenant_date,priority:1" json:"-"`
	DistributorID        string          `gorm:"type:uuid;not null;index" json:"distributorId"`
	Distributor          Distributor     `gorm:"foreignKey:DistributorID" json:"distributor"`
	AmountPaid           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amountPaid"`
	PaymentDate          datatypes.Date  `gorm:"not null;index:idx_payments_tenant_date,priority:2" json:"paymentDate"`
	PaymentMethod        string          `gorm:"not null" json:"paymentMethod"`
	TransactionReference *string         `json:"transactionReference,omitempty"`
	CreatedAt            time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt            time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }

func (payment *Payment) BeforeCreate(tx *gorm.DB) error {
	if payment.PaymentID == "" {
		payment.PaymentID = uuid.NewString()
	}
	return nil
}

// DailySale is one staff member's recorded sales for a day.
type DailySale struct {
	SaleID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        string          `gorm:"not null;index:idx_daily_sales_tenant_date,priority:1" json:"-"`
	StaffID         string          `gorm:"type:uuid;not null;index" json:"staffId"`
	Staff           Staff           `gorm:"foreignKey:StaffID" json:"staff"`
	SalesDate       datatypes.Date  `gorm:"not null;index:idx_daily_sales_tenant_date,priority:2" json:"salesDate"`
	Items           []SaleItem      `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	EmptiesReceived []EmptyReceived `gorm:"foreignKey:SaleID" json:"emptiesReceived,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"createdAt"`
}

func (DailySale) TableName() string { return "daily_sales" }

func (sale *DailySale) BeforeCreate(tx *gorm.DB) error {
	if sale.SaleID == "" {
		sale.SaleID = uuid.NewString()
	}
	return nil
}

// SaleItem is one line of a daily sale.
type SaleItem struct {
	SaleItemID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID                  string          `gorm:"type:uuid;not null;index" json:"saleId"`
	CylinderTypeID          string          `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType            CylinderType    `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	QuantitySold            int             `gorm:"not null" json:"quantitySold"`
	SellingPricePerCylinder decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"sellingPricePerCylinder"`
}

func (SaleItem) TableName() string { return "sale_items" }

func (saleItem *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if saleItem.SaleItemID == "" {
		saleItem.SaleItemID = uuid.NewString()
	}
	return nil
}

// EmptyReceived records empty cylinders taken back from customers during
// a sale.
type EmptyReceived struct {
	EmptyReceivedID  string       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID           string       `gorm:"type:uuid;not null;index" json:"saleId"`
	CylinderTypeID   string       `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType     CylinderType `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	QuantityReceived int          `gorm:"not null" json:"quantityReceived"`
}

func (EmptyReceived) TableName() string { return "empties_received" }

func (emptyReceived *EmptyReceived) BeforeCreate(tx *gorm.DB) error {
	if emptyReceived.EmptyReceivedID == "" {
		emptyReceived.EmptyReceivedID = uuid.NewString()
	}
	return nil
}

// CustomerLoan records cylinders lent to a customer without an empty
// coming back. Loaned cylinders are outside the stock counts.
type CustomerLoan struct {
	LoanID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       string         `gorm:"not null;index" json:"-"`
	CustomerID     string         `gorm:"type:uuid;not null;index" json:"customerId"`
	Customer       Customer       `gorm:"foreignKey:CustomerID" json:"customer"`
	CylinderTypeID string         `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType   CylinderType   `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	QuantityLoaned int            `gorm:"not null" json:"quantityLoaned"`
	LoanDate       datatypes.Date `gorm:"not null" json:"loanDate"`
	CreatedAt      time.Time      `gorm:"not null" json:"createdAt"`
}

func (CustomerLoan) TableName() string { return "customer_loans" }

func (loan *CustomerLoan) BeforeCreate(tx *gorm.DB) error {
	if loan.LoanID == "" {
		loan.LoanID = uuid.NewString()
	}
	return nil
}

// LoanReturn records loaned cylinders coming back from a customer.
type LoanReturn struct {
	LoanReturnID     string         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         string         `gorm:"not null;index" json:"-"`
	CustomerID       string         `gorm:"type:uuid;not null;index" json:"customerId"`
	CylinderTypeID   string         `gorm:"type:uuid;not null" json:"cylinderTypeId"`
	CylinderType     CylinderType   `gorm:"foreignKey:CylinderTypeID" json:"cylinderType"`
	QuantityReturned int            `gorm:"not null" json:"quantityReturned"`
	ReturnDate       datatypes.Date `gorm:"not null" json:"returnDate"`
	CreatedAt        time.Time      `gorm:"not null" json:"createdAt"`
}

func (LoanReturn) TableName() string { return "loan_returns" }

func (loanReturn *LoanReturn) BeforeCreate(tx *gorm.DB) error {
	if loanReturn.LoanReturnID == "" {
		loanReturn.LoanReturnID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{
		&CylinderType{},
		&Inventory{},
		&InventoryAdjustment{},
		&Distributor{},
		&Staff{},
		&Customer{},
		&Order{},
		&OrderItem{},
		&CylinderReturn{},
		&Payment{},
		&DailySale{},
		&SaleItem{},
		&EmptyReceived{},
		&CustomerLoan{},
		&LoanReturn{},
	}
}
