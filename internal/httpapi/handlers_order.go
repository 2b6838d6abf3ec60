package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/cylinders/internal/ordering"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	CylinderTypeID   string          `json:"cylinderTypeId" binding:"required"`
	Quantity         int             `json:"quantity" binding:"required"`
	PricePerCylinder decimal.Decimal `json:"pricePerCylinder"`
}

type orderReturnRequest struct {
	CylinderTypeID string `json:"cylinderTypeId" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	DistributorID  string               `json:"distributorId" binding:"required"`
	OrderDate      string               `json:"orderDate" binding:"required"`
	DeliveryPerson string               `json:"deliveryPerson"`
	Items          []orderItemRequest   `json:"items" binding:"required,min=1"`
	Returns        []orderReturnRequest `json:"returns"`
}

func (server *Server) handleCreateOrder(ctx *gin.Context) {
	var request createOrderRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	orderDate, err := parseDateField("orderDate", request.OrderDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	input := ordering.CreateInput{
		DistributorID:  request.DistributorID,
		OrderDate:      orderDate,
		DeliveryPerson: request.DeliveryPerson,
	}
	for _, item := range request.Items {
		input.Items = append(input.Items, ordering.ItemInput{
			CylinderTypeID:   item.CylinderTypeID,
			Quantity:         item.Quantity,
			PricePerCylinder: item.PricePerCylinder,
		})
	}
	for _, returnBatch := range request.Returns {
		input.Returns = append(input.Returns, ordering.ReturnInput{
			CylinderTypeID: returnBatch.CylinderTypeID,
			Quantity:       returnBatch.Quantity,
		})
	}
	row, err := server.ordering.Create(ctx.Request.Context(), tenantOf(ctx), input)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "order created"))
}

func (server *Server) handleListOrders(ctx *gin.Context) {
	startDate, err := dateQuery(ctx, "startDate")
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	endDate, err := dateQuery(ctx, "endDate")
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	filter := ordering.ListFilter{
		DistributorID: ctx.Query("distributorId"),
		StartDate:     startDate,
		EndDate:       endDate,
	}
	pageNumber, limit := pageParams(ctx)
	rows, page, err := server.ordering.List(ctx.Request.Context(), tenantOf(ctx), filter, pageNumber, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "orders"))
}

func (server *Server) handleGetOrder(ctx *gin.Context) {
	row, err := server.ordering.Get(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "order"))
}

func (server *Server) handleOrderItems(ctx *gin.Context) {
	items, err := server.ordering.Items(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(items, "order items"))
}

func (server *Server) handleOrderReturns(ctx *gin.Context) {
	returns, err := server.ordering.ReturnsFor(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(returns, "order returns"))
}

func (server *Server) handleOrderSummary(ctx *gin.Context) {
	summary, err := server.ordering.Summarize(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(summary, "order summary"))
}
