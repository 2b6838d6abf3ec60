package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/cylinders/internal/inventory"
	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	"github.com/gin-gonic/gin"
)

type adjustInventoryRequest struct {
	CylinderTypeID string `json:"cylinderTypeId" binding:"required"`
	FullChange     int    `json:"fullCylinderChange"`
	EmptyChange    int    `json:"emptyCylinderChange"`
	Reason         string `json:"reason" binding:"required"`
	AdjustmentDate string `json:"adjustmentDate" binding:"required"`
}

type openingStockItemRequest struct {
	CylinderTypeID string `json:"cylinderTypeId" binding:"required"`
	FullCylinders  int    `json:"fullCylinders"`
	EmptyCylinders int    `json:"emptyCylinders"`
}

type openingStockRequest struct {
	OpeningDate string                    `json:"openingDate" binding:"required"`
	Items       []openingStockItemRequest `json:"items" binding:"required,min=1"`
}

func (server *Server) handleListInventory(ctx *gin.Context) {
	filter := inventory.ListFilter{
		CylinderTypeID:    ctx.Query("cylinderTypeId"),
		Company:           ctx.Query("company"),
		LowStockOnly:      ctx.Query("lowStock") == "true",
		LowStockThreshold: intQuery(ctx, "threshold", 0),
	}
	rows, err := server.inventory.List(ctx.Request.Context(), tenantOf(ctx), filter)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(rows, "inventory"))
}

func (server *Server) handleInventorySummary(ctx *gin.Context) {
	summary, err := server.inventory.Summarize(ctx.Request.Context(), tenantOf(ctx))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(summary, "inventory summary"))
}

func (server *Server) handleLowStock(ctx *gin.Context) {
	threshold := intQuery(ctx, "threshold", inventory.DefaultLowStockThreshold)
	rows, err := server.inventory.LowStock(ctx.Request.Context(), tenantOf(ctx), threshold)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(rows, "low stock"))
}

func (server *Server) handleInventoryValuation(ctx *gin.Context) {
	valuation, err := server.inventory.Value(ctx.Request.Context(), tenantOf(ctx))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(valuation, "inventory valuation"))
}

func (server *Server) handleInventoryMovements(ctx *gin.Context) {
	startDate, err := requiredDateQuery(ctx, "startDate")
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	endDate, err := requiredDateQuery(ctx, "endDate")
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	movements, err := server.inventory.Movements(ctx.Request.Context(), tenantOf(ctx), startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(movements, "inventory movements"))
}

func (server *Server) handleListAdjustments(ctx *gin.Context) {
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
	pageNumber, limit := pageParams(ctx)
	rows, page, err := server.inventory.Adjustments(ctx.Request.Context(), tenantOf(ctx), startDate, endDate, pageNumber, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "adjustments"))
}

func (server *Server) handleAdjustInventory(ctx *gin.Context) {
	var request adjustInventoryRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	adjustmentDate, err := parseDateField("adjustmentDate", request.AdjustmentDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	adjustment, err := server.stock.Adjust(ctx.Request.Context(), tenantOf(ctx),
		request.CylinderTypeID, request.FullChange, request.EmptyChange,
		request.Reason, adjustmentDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(adjustment, "adjustment recorded"))
}

func (server *Server) handleOpeningStock(ctx *gin.Context) {
	var request openingStockRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	openingDate, err := parseDateField("openingDate", request.OpeningDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	items := make([]stockledger.OpeningStockItem, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, stockledger.OpeningStockItem{
			CylinderTypeID: item.CylinderTypeID,
			FullCylinders:  item.FullCylinders,
			EmptyCylinders: item.EmptyCylinders,
		})
	}
	rows, err := server.stock.OpeningStock(ctx.Request.Context(), tenantOf(ctx), items, openingDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(rows, "opening stock recorded"))
}

func (server *Server) handleInventoryBalance(ctx *gin.Context) {
	balance, err := server.stock.Balance(ctx.Request.Context(), tenantOf(ctx), ctx.Param("cylinderTypeId"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(balance, "balance"))
}
