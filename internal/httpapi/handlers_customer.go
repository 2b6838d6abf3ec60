package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/cylinders/internal/customer"
	"github.com/gin-gonic/gin"
)

type createCustomerRequest struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Address     string `json:"address"`
}

type updateCustomerRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
}

type loanReturnRequest struct {
	CylinderTypeID string `json:"cylinderTypeId" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required"`
	ReturnDate     string `json:"returnDate" binding:"required"`
}

func (server *Server) handleCreateCustomer(ctx *gin.Context) {
	var request createCustomerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	row, err := server.customers.Create(ctx.Request.Context(), tenantOf(ctx), customer.CreateInput{
		Name:        request.Name,
		PhoneNumber: request.PhoneNumber,
		Address:     request.Address,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "customer created"))
}

func (server *Server) handleListCustomers(ctx *gin.Context) {
	pageNumber, limit := pageParams(ctx)
	includeInactive := ctx.Query("includeInactive") == "true"
	rows, page, err := server.customers.List(ctx.Request.Context(), tenantOf(ctx), pageNumber, limit, includeInactive)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "customers"))
}

func (server *Server) handleGetCustomer(ctx *gin.Context) {
	row, err := server.customers.Get(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "customer"))
}

func (server *Server) handleUpdateCustomer(ctx *gin.Context) {
	var request updateCustomerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	row, err := server.customers.Update(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), customer.UpdateInput{
		Name:        request.Name,
		PhoneNumber: request.PhoneNumber,
		Address:     request.Address,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "customer updated"))
}

func (server *Server) handleActivateCustomer(ctx *gin.Context) {
	row, err := server.customers.SetActive(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), true)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "customer activated"))
}

func (server *Server) handleDeactivateCustomer(ctx *gin.Context) {
	row, err := server.customers.SetActive(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), false)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "customer deactivated"))
}

func (server *Server) handleCustomerLoans(ctx *gin.Context) {
	rows, err := server.customers.Loans(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(rows, "customer loans"))
}

func (server *Server) handleCustomerPendingReturns(ctx *gin.Context) {
	rows, err := server.customers.PendingReturns(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(rows, "pending returns"))
}

func (server *Server) handleRecordLoanReturn(ctx *gin.Context) {
	var request loanReturnRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	returnDate, err := parseDateField("returnDate", request.ReturnDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	row, err := server.customers.RecordLoanReturn(ctx.Request.Context(), tenantOf(ctx),
		ctx.Param("id"), request.CylinderTypeID, request.Quantity, returnDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "loan return recorded"))
}
