package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/cylinders/internal/sales"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type saleItemRequest struct {
	CylinderTypeID          string          `json:"cylinderTypeId" binding:"required"`
	QuantitySold            int             `json:"quantitySold" binding:"required"`
	SellingPricePerCylinder decimal.Decimal `json:"sellingPricePerCylinder"`
}

type saleEmptyRequest struct {
	CylinderTypeID   string `json:"cylinderTypeId" binding:"required"`
	QuantityReceived int    `json:"quantityReceived" binding:"required"`
}

type saleLoanRequest struct {
	CustomerID     string `json:"customerId" binding:"required"`
	CylinderTypeID string `json:"cylinderTypeId" binding:"required"`
	QuantityLoaned int    `json:"quantityLoaned" binding:"required"`
}

type createSaleRequest struct {
	StaffID         string             `json:"staffId" binding:"required"`
	SalesDate       string             `json:"salesDate" binding:"required"`
	Items           []saleItemRequest  `json:"items" binding:"required,min=1"`
	EmptiesReceived []saleEmptyRequest `json:"emptiesReceived"`
	CustomerLoans   []saleLoanRequest  `json:"customerLoans"`
}

func (server *Server) handleCreateSale(ctx *gin.Context) {
	var request createSaleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	salesDate, err := parseDateField("salesDate", request.SalesDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	input := sales.CreateInput{
		StaffID:   request.StaffID,
		SalesDate: salesDate,
	}
	for _, item := range request.Items {
		input.Items = append(input.Items, sales.ItemInput{
			CylinderTypeID:          item.CylinderTypeID,
			QuantitySold:            item.QuantitySold,
			SellingPricePerCylinder: item.SellingPricePerCylinder,
		})
	}
	for _, empty := range request.EmptiesReceived {
		input.EmptiesReceived = append(input.EmptiesReceived, sales.EmptyInput{
			CylinderTypeID:   empty.CylinderTypeID,
			QuantityReceived: empty.QuantityReceived,
		})
	}
	for _, loan := range request.CustomerLoans {
		input.CustomerLoans = append(input.CustomerLoans, sales.LoanInput{
			CustomerID:     loan.CustomerID,
			CylinderTypeID: loan.CylinderTypeID,
			QuantityLoaned: loan.QuantityLoaned,
		})
	}
	row, err := server.sales.Create(ctx.Request.Context(), tenantOf(ctx), input)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "sale recorded"))
}

func (server *Server) handleListSales(ctx *gin.Context) {
	filter, err := salesFilter(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	pageNumber, limit := pageParams(ctx)
	rows, page, err := server.sales.List(ctx.Request.Context(), tenantOf(ctx), filter, pageNumber, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "sales"))
}

func (server *Server) handleGetSale(ctx *gin.Context) {
	row, err := server.sales.Get(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "sale"))
}

func (server *Server) handleSaleDetails(ctx *gin.Context) {
	details, err := server.sales.DetailsFor(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(details, "sale details"))
}

func (server *Server) handleSalesByStaff(ctx *gin.Context) {
	pageNumber, limit := pageParams(ctx)
	rows, page, err := server.sales.ByStaff(ctx.Request.Context(), tenantOf(ctx), ctx.Param("staffId"), pageNumber, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "sales"))
}

func (server *Server) handleSalesByDate(ctx *gin.Context) {
	day, err := parseDateField("date", ctx.Param("date"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	rows, summary, err := server.sales.ByDate(ctx.Request.Context(), tenantOf(ctx), day)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(gin.H{"sales": rows, "summary": summary}, "sales by date"))
}

func (server *Server) handleSalesSummary(ctx *gin.Context) {
	filter, err := salesFilter(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	summary, err := server.sales.Summarize(ctx.Request.Context(), tenantOf(ctx), filter)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(summary, "sales summary"))
}

func (server *Server) handleSalesAnalytics(ctx *gin.Context) {
	filter, err := salesFilter(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	analytics, err := server.sales.Analyze(ctx.Request.Context(), tenantOf(ctx), filter)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(analytics, "sales analytics"))
}

func salesFilter(ctx *gin.Context) (sales.ListFilter, error) {
	startDate, err := dateQuery(ctx, "startDate")
	if err != nil {
		return sales.ListFilter{}, err
	}
	endDate, err := dateQuery(ctx, "endDate")
	if err != nil {
		return sales.ListFilter{}, err
	}
	return sales.ListFilter{
		StaffID:   ctx.Query("staffId"),
		StartDate: startDate,
		EndDate:   endDate,
	}, nil
}
