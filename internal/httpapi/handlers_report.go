package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (server *Server) handleDashboard(ctx *gin.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dashboard, err := server.reports.DashboardFor(ctx.Request.Context(), tenantOf(ctx), today)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(dashboard, "dashboard"))
}

func (server *Server) handleProfitLoss(ctx *gin.Context) {
	startDate, endDate, err := reportRange(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	statement, err := server.reports.ProfitLossFor(ctx.Request.Context(), tenantOf(ctx), startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(statement, "profit and loss"))
}

func (server *Server) handleRevenue(ctx *gin.Context) {
	startDate, endDate, err := reportRange(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	analysis, err := server.reports.RevenueFor(ctx.Request.Context(), tenantOf(ctx), startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(analysis, "revenue analysis"))
}

func (server *Server) handleSalesOverview(ctx *gin.Context) {
	startDate, endDate, err := reportRange(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	overview, err := server.reports.OverviewFor(ctx.Request.Context(), tenantOf(ctx), startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(overview, "sales overview"))
}

func (server *Server) handleSalesTrends(ctx *gin.Context) {
	startDate, endDate, err := reportRange(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	period := ctx.DefaultQuery("period", "daily")
	buckets, err := server.reports.TrendsFor(ctx.Request.Context(), tenantOf(ctx), period, startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(buckets, "sales trends"))
}

func (server *Server) handleInventoryMovement(ctx *gin.Context) {
	startDate, endDate, err := reportRange(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	movements, err := server.reports.MovementsFor(ctx.Request.Context(), tenantOf(ctx), startDate, endDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(movements, "inventory movement"))
}

func (server *Server) handleMonthlyComparison(ctx *gin.Context) {
	year := intQuery(ctx, "year", time.Now().UTC().Year())
	rows, err := server.reports.MonthlyComparisonFor(ctx.Request.Context(), tenantOf(ctx), year)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(rows, "monthly comparison"))
}

func reportRange(ctx *gin.Context) (time.Time, time.Time, error) {
	startDate, err := requiredDateQuery(ctx, "startDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDate, err := requiredDateQuery(ctx, "endDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startDate, endDate, nil
}
