package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/cylinders/internal/staff"
	"github.com/gin-gonic/gin"
)

type createStaffRequest struct {
	Name         string `json:"name" binding:"required"`
	MobileNumber string `json:"mobileNumber" binding:"required"`
	Address      string `json:"address"`
}

type updateStaffRequest struct {
	Name         *string `json:"name"`
	MobileNumber *string `json:"mobileNumber"`
	Address      *string `json:"address"`
}

func (server *Server) handleCreateStaff(ctx *gin.Context) {
	var request createStaffRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	row, err := server.staff.Create(ctx.Request.Context(), tenantOf(ctx), staff.CreateInput{
		Name:         request.Name,
		MobileNumber: request.MobileNumber,
		Address:      request.Address,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "staff created"))
}

func (server *Server) handleListStaff(ctx *gin.Context) {
	pageNumber, limit := pageParams(ctx)
	includeInactive := ctx.Query("includeInactive") == "true"
	rows, page, err := server.staff.List(ctx.Request.Context(), tenantOf(ctx), pageNumber, limit, includeInactive)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "staff"))
}

func (server *Server) handleGetStaff(ctx *gin.Context) {
	row, err := server.staff.Get(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "staff"))
}

func (server *Server) handleUpdateStaff(ctx *gin.Context) {
	var request updateStaffRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	row, err := server.staff.Update(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), staff.UpdateInput{
		Name:         request.Name,
		MobileNumber: request.MobileNumber,
		Address:      request.Address,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "staff updated"))
}

func (server *Server) handleStaffPerformance(ctx *gin.Context) {
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
	performance, err := server.staff.Performance(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(performance, "staff performance"))
}

func (server *Server) handleStaffSummary(ctx *gin.Context) {
	summary, err := server.staff.Summarize(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(summary, "staff summary"))
}

func (server *Server) handleTopPerformers(ctx *gin.Context) {
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
	limit := intQuery(ctx, "limit", 0)
	performers, err := server.staff.TopPerformers(ctx.Request.Context(), tenantOf(ctx), startDate, endDate, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(performers, "top performers"))
}

func (server *Server) handleActivateStaff(ctx *gin.Context) {
	row, err := server.staff.SetActive(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), true)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "staff activated"))
}

func (server *Server) handleDeactivateStaff(ctx *gin.Context) {
	row, err := server.staff.SetActive(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), false)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "staff deactivated"))
}
