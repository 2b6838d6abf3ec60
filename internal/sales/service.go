// Package sales records daily retail sales. A sale takes full cylinders
// out of inventory, optionally brings customer empties in, and may lend
// cylinders to customers; all effects commit in one transaction.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/domain"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service provides sales operations scoped to a tenant.
type Service struct {
	db *gorm.DB
}

// NewService returns a sales service backed by db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ItemInput is one sold line.
type ItemInput struct {
	CylinderTypeID          string
	QuantitySold            int
	SellingPricePerCylinder decimal.Decimal
}

// EmptyInput is one batch of empties taken back from customers.
type EmptyInput struct {
	CylinderTypeID   string
	QuantityReceived int
}

// LoanInput is one cylinder loan handed out during the sale.
type LoanInput struct {
	CustomerID     string
	CylinderTypeID string
	QuantityLoaned int
}

// CreateInput carries the fields for a new daily sale.
type CreateInput struct {
	StaffID         string
	SalesDate       time.Time
	Items           []ItemInput
	EmptiesReceived []EmptyInput
	CustomerLoans   []LoanInput
}

// ListFilter narrows a sales listing.
type ListFilter struct {
	StaffID   string
	StartDate *time.Time
	EndDate   *time.Time
}

// SaleWithTotals pairs a sale with its derived revenue figures.
type SaleWithTotals struct {
	Sale           gormstore.DailySale `json:"sale"`
	TotalRevenue   decimal.Decimal     `json:"totalRevenue"`
	TotalCylinders int                 `json:"totalCylinders"`
}

// Details bundles a sale with the customer loans recorded alongside it.
type Details struct {
	Sale           gormstore.DailySale      `json:"sale"`
	TotalRevenue   decimal.Decimal          `json:"totalRevenue"`
	TotalCylinders int                      `json:"totalCylinders"`
	CustomerLoans  []gormstore.CustomerLoan `json:"customerLoans"`
}

// StaffTotal is the aggregate for one staff member.
type StaffTotal struct {
	StaffID        string          `json:"staffId"`
	StaffName      string          `json:"staffName"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalCylinders int             `json:"totalCylinders"`
	SaleCount      int64           `json:"saleCount"`
}

// Summary aggregates sales across an optional date range.
type Summary struct {
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalCylinders int             `json:"totalCylinders"`
	SaleCount      int64           `json:"saleCount"`
	ByStaff        []StaffTotal    `json:"byStaff"`
}

// TypeAnalytics is the aggregate for one cylinder type.
type TypeAnalytics struct {
	CylinderTypeID string          `json:"cylinderTypeId"`
	Label          string          `json:"label"`
	QuantitySold   int             `json:"quantitySold"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	AveragePrice   decimal.Decimal `json:"averagePrice"`
}

// CompanyAnalytics is the aggregate for one cylinder company.
type CompanyAnalytics struct {
	Company      string          `json:"company"`
	QuantitySold int             `json:"quantitySold"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
}

// Analytics breaks revenue down by cylinder type and company.
type Analytics struct {
	ByCylinderType []TypeAnalytics    `json:"byCylinderType"`
	ByCompany      []CompanyAnalytics `json:"byCompany"`
}

// Create records a daily sale and applies its inventory effects
// atomically. A stock shortfall on any line aborts the whole sale.
func (service *Service) Create(ctx context.Context, tenantID string, input CreateInput) (gormstore.DailySale, error) {
	if len(input.Items) == 0 {
		return gormstore.DailySale{}, domain.Invalid("items", "at least one item is required")
	}
	for _, item := range input.Items {
		if item.QuantitySold <= 0 {
			return gormstore.DailySale{}, domain.Invalid("items", "quantity sold must be positive")
		}
		if item.SellingPricePerCylinder.IsNegative() {
			return gormstore.DailySale{}, domain.Invalid("items", "selling price must not be negative")
		}
	}
	for _, empty := range input.EmptiesReceived {
		if empty.QuantityReceived <= 0 {
			return gormstore.DailySale{}, domain.Invalid("emptiesReceived", "quantity received must be positive")
		}
	}
	for _, loan := range input.CustomerLoans {
		if loan.QuantityLoaned <= 0 {
			return gormstore.DailySale{}, domain.Invalid("customerLoans", "quantity loaned must be positive")
		}
	}

	var created gormstore.DailySale
	err := service.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var staffRow gormstore.Staff
		err := tx.Where("tenant_id = ? AND staff_id = ?", tenantID, input.StaffID).Take(&staffRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("staff %s: %w", input.StaffID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if !staffRow.IsActive {
			return fmt.Errorf("staff %s: %w", input.StaffID, domain.ErrInactive)
		}

		typeIDs := make([]string, 0, len(input.Items)+len(input.EmptiesReceived)+len(input.CustomerLoans))
		for _, item := range input.Items {
			typeIDs = append(typeIDs, item.CylinderTypeID)
		}
		for _, empty := range input.EmptiesReceived {
			typeIDs = append(typeIDs, empty.CylinderTypeID)
		}
		for _, loan := range input.CustomerLoans {
			typeIDs = append(typeIDs, loan.CylinderTypeID)
		}
		missing, err := gormstore.MissingCylinderTypes(tx, typeIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("cylinder type %s: %w", missing[0], domain.ErrNotFound)
		}

		if len(input.CustomerLoans) > 0 {
			customerIDs := make([]string, 0, len(input.CustomerLoans))
			for _, loan := range input.CustomerLoans {
				customerIDs = append(customerIDs, loan.CustomerID)
			}
			var knownCount int64
			err = tx.Model(&gormstore.Customer{}).
				Where("tenant_id = ? AND customer_id IN ?", tenantID, customerIDs).
				Distinct("customer_id").
				Count(&knownCount).Error
			if err != nil {
				return err
			}
			if int(knownCount) != len(uniqueStrings(customerIDs)) {
				return fmt.Errorf("customer referenced by loan: %w", domain.ErrNotFound)
			}
		}

		labels, err := labelCylinderTypes(tx, typeIDs)
		if err != nil {
			return err
		}

		saleItems := make([]gormstore.SaleItem, 0, len(input.Items))
		for _, item := range input.Items {
			saleItems = append(saleItems, gormstore.SaleItem{
				CylinderTypeID:          item.CylinderTypeID,
				QuantitySold:            item.QuantitySold,
				SellingPricePerCylinder: item.SellingPricePerCylinder,
			})
		}
		empties := make([]gormstore.EmptyReceived, 0, len(input.EmptiesReceived))
		for _, empty := range input.EmptiesReceived {
			empties = append(empties, gormstore.EmptyReceived{
				CylinderTypeID:   empty.CylinderTypeID,
				QuantityReceived: empty.QuantityReceived,
			})
		}
		created = gormstore.DailySale{
			TenantID:        tenantID,
			StaffID:         input.StaffID,
			SalesDate:       datatypes.Date(input.SalesDate),
			Items:           saleItems,
			EmptiesReceived: empties,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		for _, item := range input.Items {
			if _, err := gormstore.ApplyInventoryDelta(tx, tenantID, item.CylinderTypeID, -item.QuantitySold, 0); err != nil {
				var stockErr stockledger.InsufficientStockError
				if errors.As(err, &stockErr) {
					return fmt.Errorf("%s: %w", labels[item.CylinderTypeID], stockErr)
				}
				return err
			}
		}
		for _, empty := range input.EmptiesReceived {
			if _, err := gormstore.ApplyInventoryDelta(tx, tenantID, empty.CylinderTypeID, 0, empty.QuantityReceived); err != nil {
				return err
			}
		}
		// Loans do not touch inventory; the loaned cylinder is already
		// counted as sold.
		for _, loan := range input.CustomerLoans {
			loanRow := gormstore.CustomerLoan{
				TenantID:       tenantID,
				CustomerID:     loan.CustomerID,
				CylinderTypeID: loan.CylinderTypeID,
				QuantityLoaned: loan.QuantityLoaned,
				LoanDate:       datatypes.Date(input.SalesDate),
			}
			if err := tx.Create(&loanRow).Error; err != nil {
				return err
			}
		}
		created.Staff = staffRow
		return nil
	})
	if err != nil {
		return gormstore.DailySale{}, err
	}
	return created, nil
}

// List returns the tenant's sales with revenue totals, newest first.
func (service *Service) List(ctx context.Context, tenantID string, filter ListFilter, pageNumber int, limit int) ([]SaleWithTotals, domain.Page, error) {
	pageNumber, limit = domain.PageRequest(pageNumber, limit)
	query := service.filtered(ctx, tenantID, filter)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Page{}, err
	}
	page := domain.NewPage(pageNumber, limit, total)
	var rows []gormstore.DailySale
	err := query.Preload("Staff").
		Preload("Items").
		Preload("Items.CylinderType").
		Preload("EmptiesReceived").
		Order("sales_date DESC, created_at DESC").
		Limit(limit).Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, domain.Page{}, err
	}
	withTotals := make([]SaleWithTotals, 0, len(rows))
	for _, row := range rows {
		withTotals = append(withTotals, totalsFor(row))
	}
	return withTotals, page, nil
}

// Get returns one owned sale with its totals.
func (service *Service) Get(ctx context.Context, tenantID string, saleID string) (SaleWithTotals, error) {
	row, err := service.find(ctx, tenantID, saleID)
	if err != nil {
		return SaleWithTotals{}, err
	}
	return totalsFor(row), nil
}

// ByStaff returns one staff member's sales, newest first.
func (service *Service) ByStaff(ctx context.Context, tenantID string, staffID string, pageNumber int, limit int) ([]SaleWithTotals, domain.Page, error) {
	return service.List(ctx, tenantID, ListFilter{StaffID: staffID}, pageNumber, limit)
}

// ByDate returns the sales of one day plus the day's summary.
func (service *Service) ByDate(ctx context.Context, tenantID string, day time.Time) ([]SaleWithTotals, Summary, error) {
	filter := ListFilter{StartDate: &day, EndDate: &day}
	var rows []gormstore.DailySale
	err := service.filtered(ctx, tenantID, filter).
		Preload("Staff").
		Preload("Items").
		Preload("Items.CylinderType").
		Preload("EmptiesReceived").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, Summary{}, err
	}
	withTotals := make([]SaleWithTotals, 0, len(rows))
	summary := Summary{TotalRevenue: decimal.Zero, SaleCount: int64(len(rows))}
	for _, row := range rows {
		totals := totalsFor(row)
		withTotals = append(withTotals, totals)
		summary.TotalRevenue = summary.TotalRevenue.Add(totals.TotalRevenue)
		summary.TotalCylinders += totals.TotalCylinders
	}
	return withTotals, summary, nil
}

// DetailsFor returns a sale together with the loans recorded on its date.
func (service *Service) DetailsFor(ctx context.Context, tenantID string, saleID string) (Details, error) {
	row, err := service.find(ctx, tenantID, saleID)
	if err != nil {
		return Details{}, err
	}
	totals := totalsFor(row)
	var loans []gormstore.CustomerLoan
	err = service.db.WithContext(ctx).
		Preload("Customer").
		Preload("CylinderType").
		Where("tenant_id = ? AND loan_date = ?", tenantID, row.SalesDate).
		Find(&loans).Error
	if err != nil {
		return Details{}, err
	}
	return Details{
		Sale:           row,
		TotalRevenue:   totals.TotalRevenue,
		TotalCylinders: totals.TotalCylinders,
		CustomerLoans:  loans,
	}, nil
}

// Summarize aggregates the filtered sales overall and by staff.
func (service *Service) Summarize(ctx context.Context, tenantID string, filter ListFilter) (Summary, error) {
	var overall struct {
		Revenue   decimal.Decimal
		Cylinders int
	}
	err := service.itemsFiltered(ctx, tenantID, filter).
		Select("COALESCE(SUM(sale_items.quantity_sold * sale_items.selling_price_per_cylinder), 0) AS revenue, COALESCE(SUM(sale_items.quantity_sold), 0) AS cylinders").
		Scan(&overall).Error
	if err != nil {
		return Summary{}, err
	}
	var saleCount int64
	if err := service.filtered(ctx, tenantID, filter).Count(&saleCount).Error; err != nil {
		return Summary{}, err
	}
	var byStaff []StaffTotal
	err = service.itemsFiltered(ctx, tenantID, filter).
		Joins("JOIN staff ON staff.staff_id = daily_sales.staff_id").
		Select("daily_sales.staff_id AS staff_id, staff.name AS staff_name, COALESCE(SUM(sale_items.quantity_sold * sale_items.selling_price_per_cylinder), 0) AS total_revenue, COALESCE(SUM(sale_items.quantity_sold), 0) AS total_cylinders, COUNT(DISTINCT daily_sales.sale_id) AS sale_count").
		Group("daily_sales.staff_id, staff.name").
		Order("total_revenue DESC").
		Scan(&byStaff).Error
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		TotalRevenue:   overall.Revenue,
		TotalCylinders: overall.Cylinders,
		SaleCount:      saleCount,
		ByStaff:        byStaff,
	}, nil
}

// Analyze breaks the filtered sales down by cylinder type and company.
func (service *Service) Analyze(ctx context.Context, tenantID string, filter ListFilter) (Analytics, error) {
	type typeRow struct {
		CylinderTypeID string
		Company        string
		Category       string
		WeightKg       decimal.Decimal
		QuantitySold   int
		TotalRevenue   decimal.Decimal
	}
	var typeRows []typeRow
	err := service.itemsFiltered(ctx, tenantID, filter).
		Joins("JOIN cylinder_types ON cylinder_types.cylinder_type_id = sale_items.cylinder_type_id").
		Select("sale_items.cylinder_type_id AS cylinder_type_id, cylinder_types.company AS company, cylinder_types.category AS category, cylinder_types.weight_kg AS weight_kg, COALESCE(SUM(sale_items.quantity_sold), 0) AS quantity_sold, COALESCE(SUM(sale_items.quantity_sold * sale_items.selling_price_per_cylinder), 0) AS total_revenue").
		Group("sale_items.cylinder_type_id, cylinder_types.company, cylinder_types.category, cylinder_types.weight_kg").
		Order("total_revenue DESC").
		Scan(&typeRows).Error
	if err != nil {
		return Analytics{}, err
	}

	analytics := Analytics{}
	companyTotals := map[string]*CompanyAnalytics{}
	var companies []string
	for _, row := range typeRows {
		label := gormstore.CylinderType{
			Company:  row.Company,
			Category: row.Category,
			WeightKg: row.WeightKg,
		}.Display()
		averagePrice := decimal.Zero
		if row.QuantitySold > 0 {
			averagePrice = row.TotalRevenue.Div(decimal.NewFromInt(int64(row.QuantitySold)))
		}
		analytics.ByCylinderType = append(analytics.ByCylinderType, TypeAnalytics{
			CylinderTypeID: row.CylinderTypeID,
			Label:          label,
			QuantitySold:   row.QuantitySold,
			TotalRevenue:   row.TotalRevenue,
			AveragePrice:   averagePrice,
		})
		if _, seen := companyTotals[row.Company]; !seen {
			companyTotals[row.Company] = &CompanyAnalytics{Company: row.Company, TotalRevenue: decimal.Zero}
			companies = append(companies, row.Company)
		}
		companyTotals[row.Company].QuantitySold += row.QuantitySold
		companyTotals[row.Company].TotalRevenue = companyTotals[row.Company].TotalRevenue.Add(row.TotalRevenue)
	}
	for _, company := range companies {
		analytics.ByCompany = append(analytics.ByCompany, *companyTotals[company])
	}
	return analytics, nil
}

func (service *Service) find(ctx context.Context, tenantID string, saleID string) (gormstore.DailySale, error) {
	var row gormstore.DailySale
	err := service.db.WithContext(ctx).
		Preload("Staff").
		Preload("Items").
		Preload("Items.CylinderType").
		Preload("EmptiesReceived").
		Where("tenant_id = ? AND sale_id = ?", tenantID, saleID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gormstore.DailySale{}, fmt.Errorf("sale %s: %w", saleID, domain.ErrNotFound)
	}
	if err != nil {
		return gormstore.DailySale{}, err
	}
	return row, nil
}

func (service *Service) filtered(ctx context.Context, tenantID string, filter ListFilter) *gorm.DB {
	query := service.db.WithContext(ctx).Model(&gormstore.DailySale{}).Where("daily_sales.tenant_id = ?", tenantID)
	if filter.StaffID != "" {
		query = query.Where("daily_sales.staff_id = ?", filter.StaffID)
	}
	if filter.StartDate != nil {
		query = query.Where("daily_sales.sales_date >= ?", datatypes.Date(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("daily_sales.sales_date <= ?", datatypes.Date(*filter.EndDate))
	}
	return query
}

func (service *Service) itemsFiltered(ctx context.Context, tenantID string, filter ListFilter) *gorm.DB {
	return service.filtered(ctx, tenantID, filter).
		Joins("JOIN sale_items ON sale_items.sale_id = daily_sales.sale_id")
}

func totalsFor(row gormstore.DailySale) SaleWithTotals {
	totals := SaleWithTotals{Sale: row, TotalRevenue: decimal.Zero}
	for _, item := range row.Items {
		lineTotal := item.SellingPricePerCylinder.Mul(decimal.NewFromInt(int64(item.QuantitySold)))
		totals.TotalRevenue = totals.TotalRevenue.Add(lineTotal)
		totals.TotalCylinders += item.QuantitySold
	}
	return totals
}

func labelCylinderTypes(tx *gorm.DB, typeIDs []string) (map[string]string, error) {
	labels := make(map[string]string, len(typeIDs))
	if len(typeIDs) == 0 {
		return labels, nil
	}
	var rows []gormstore.CylinderType
	if err := tx.Where("cylinder_type_id IN ?", typeIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		labels[row.CylinderTypeID] = row.Display()
	}
	return labels, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var unique []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}
	return unique
}
