package httpapi

import (
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/payment"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createPaymentRequest struct {
	DistributorID        string          `json:"distributorId" binding:"required"`
	AmountPaid           decimal.Decimal `json:"amountPaid"`
	PaymentDate          string          `json:"paymentDate" binding:"required"`
	PaymentMethod        string          `json:"paymentMethod" binding:"required"`
	TransactionReference *string         `json:"transactionReference"`
}

type updatePaymentRequest struct {
	AmountPaid           *decimal.Decimal `json:"amountPaid"`
	PaymentDate          *string          `json:"paymentDate"`
	PaymentMethod        *string          `json:"paymentMethod"`
	TransactionReference *string          `json:"transactionReference"`
}

func (server *Server) handleCreatePayment(ctx *gin.Context) {
	var request createPaymentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	paymentDate, err := parseDateField("paymentDate", request.PaymentDate)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	row, err := server.payments.Create(ctx.Request.Context(), tenantOf(ctx), payment.CreateInput{
		DistributorID:        request.DistributorID,
		AmountPaid:           request.AmountPaid,
		PaymentDate:          paymentDate,
		PaymentMethod:        request.PaymentMethod,
		TransactionReference: request.TransactionReference,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, successEnvelope(row, "payment recorded"))
}

func (server *Server) handleListPayments(ctx *gin.Context) {
	filter, err := paymentFilter(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	pageNumber, limit := pageParams(ctx)
	rows, page, err := server.payments.List(ctx.Request.Context(), tenantOf(ctx), filter, pageNumber, limit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, listEnvelope(rows, page, "payments"))
}

func (server *Server) handleGetPayment(ctx *gin.Context) {
	row, err := server.payments.Get(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "payment"))
}

func (server *Server) handleUpdatePayment(ctx *gin.Context) {
	var request updatePaymentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorEnvelope("invalid payload", nil))
		return
	}
	input := payment.UpdateInput{
		AmountPaid:           request.AmountPaid,
		PaymentMethod:        request.PaymentMethod,
		TransactionReference: request.TransactionReference,
	}
	if request.PaymentDate != nil {
		paymentDate, err := parseDateField("paymentDate", *request.PaymentDate)
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		input.PaymentDate = &paymentDate
	}
	row, err := server.payments.Update(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id"), input)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(row, "payment updated"))
}

func (server *Server) handleDeletePayment(ctx *gin.Context) {
	if err := server.payments.Delete(ctx.Request.Context(), tenantOf(ctx), ctx.Param("id")); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(nil, "payment deleted"))
}

func (server *Server) handlePaymentSummary(ctx *gin.Context) {
	filter, err := paymentFilter(ctx)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	summary, err := server.payments.Summarize(ctx.Request.Context(), tenantOf(ctx), filter)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(summary, "payment summary"))
}

func paymentFilter(ctx *gin.Context) (payment.ListFilter, error) {
	var startDate, endDate *time.Time
	startDate, err := dateQuery(ctx, "startDate")
	if err != nil {
		return payment.ListFilter{}, err
	}
	endDate, err = dateQuery(ctx, "endDate")
	if err != nil {
		return payment.ListFilter{}, err
	}
	return payment.ListFilter{
		DistributorID: ctx.Query("distributorId"),
		PaymentMethod: ctx.Query("paymentMethod"),
		StartDate:     startDate,
		EndDate:       endDate,
	}, nil
}
