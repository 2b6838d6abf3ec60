package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/cylinders/internal/distributor"
	"github.com/gin-gonic/gin"
)

type createDistributorRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactNumber string `json:"contactNumber" binding:"required"`
	Address       string `json:"address"`
}

type updateDistributorRequest struct {
	Name          *string `json:"name"`
	ContactNumber *string `json:"contactNumber"`
	Address       *string `json:"address"`
}

func (server *Server) handleCreateDistributor(ctx *gin.Context) {
	var request createDistributorRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	row, err := server.distributors.Create(ctx.Request.Context(), tenantOf(ctx), distributor.CreateInput{
		Name:          request.Name,
		ContactNumber: request.ContactNumber,
		Address:       request.Address,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "distributor created"))
}

func (server *Server) handleListDistributors(ctx *gin.Context) {
	pageNumber, limit := pageParams(ctx)
	includeInactive := ctx.Query("includeInactive") == "true"
	rows, page, err := server.distributors.List(ctx.Request.Context(), tenantOf(ctx), pageNumber, limit, includeInactive)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "distributors"))
}

func (server *Server) handleListAllDistributors(ctx *gin.Context) {
	pageNumber, limit := pageParams(ctx)
	rows, page, err := server.distributors.ListAll(ctx.Request.Context(), pageNumber, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "distributors"))
}

func (server *Server) handleGetDistributor(ctx *gin.Context) {
	row, err := server.distributors.Get(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "distributor"))
}

func (server *Server) handleUpdateDistributor(ctx *gin.Context) {
	var request updateDistributorRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	row, err := server.distributors.Update(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), distributor.UpdateInput{
		Name:          request.Name,
		ContactNumber: request.ContactNumber,
		Address:       request.Address,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "distributor updated"))
}

func (server *Server) handleActivateDistributor(ctx *gin.Context) {
	row, err := server.distributors.SetActive(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), true)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "distributor activated"))
}

func (server *Server) handleDeactivateDistributor(ctx *gin.Context) {
	row, err := server.distributors.SetActive(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), false)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "distributor deactivated"))
}

func (server *Server) handleDistributorFinancialBalance(ctx *gin.Context) {
	balance, err := server.distributors.FinancialBalance(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(balance, "financial balance"))
}

func (server *Server) handleDistributorCylinderBalance(ctx *gin.Context) {
	balance, err := server.distributors.CylinderBalance(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(balance, "cylinder balance"))
}

func (server *Server) handleDistributorSummary(ctx *gin.Context) {
	summary, err := server.distributors.Summary(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(summary, "distributor summary"))
}
