// Package httpapi is the HTTP facade over the back-office services. It
// owns routing, bearer-token auth, request parsing, and the response
// envelope; all business rules live in the service packages.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/cylinders/internal/config"
	"github.com/MarkoPoloResearchLab/cylinders/internal/customer"
	"github.com/MarkoPoloResearchLab/cylinders/internal/distributor"
	"github.com/MarkoPoloResearchLab/cylinders/internal/inventory"
	"github.com/MarkoPoloResearchLab/cylinders/internal/ordering"
	"github.com/MarkoPoloResearchLab/cylinders/internal/payment"
	"github.com/MarkoPoloResearchLab/cylinders/internal/report"
	"github.com/MarkoPoloResearchLab/cylinders/internal/sales"
	"github.com/MarkoPoloResearchLab/cylinders/internal/staff"
	"github.com/MarkoPoloResearchLab/cylinders/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cylinders/pkg/stockledger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server wires the service layer to gin handlers.
type Server struct {
	logger       *zap.Logger
	cfg          config.Config
	db           *gorm.DB
	stock        *stockledger.Service
	inventory    *inventory.Service
	ordering     *ordering.Service
	sales        *sales.Service
	distributors *distributor.Service
	payments     *payment.Service
	staff        *staff.Service
	customers    *customer.Service
	reports      *report.Service
}

// NewServer builds a server over the shared database handle.
func NewServer(logger *zap.Logger, cfg config.Config, db *gorm.DB) (*Server, error) {
	stockService, err := stockledger.NewService(gormstore.New(db), func() time.Time { return time.Now().UTC() })
	if err != nil {
		return nil, fmt.Errorf("stock ledger init: %w", err)
	}
	return &Server{
		logger:       logger,
		cfg:          cfg,
		db:           db,
		stock:        stockService,
		inventory:    inventory.NewService(db),
		ordering:     ordering.NewService(db),
		sales:        sales.NewService(db),
		distributors: distributor.NewService(db),
		payments:     payment.NewService(db),
		staff:        staff.NewService(db),
		customers:    customer.NewService(db),
		reports:      report.NewService(db),
	}, nil
}

// Router assembles the gin engine with middleware and every route.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(AuthMiddleware([]byte(server.cfg.JWTSigningKey), server.cfg.JWTIssuer))

	api.GET("/cylinder-types", server.handleListCylinderTypes)

	api.GET("/inventory", server.handleListInventory)
	api.GET("/inventory/summary", server.handleInventorySummary)
	api.GET("/inventory/low-stock", server.handleLowStock)
	api.GET("/inventory/valuation", server.handleInventoryValuation)
	api.GET("/inventory/movements", server.handleInventoryMovements)
	api.GET("/inventory/adjustments", server.handleListAdjustments)
	api.POST("/inventory/adjustments", server.handleAdjustInventory)
	api.POST("/inventory/opening-stock", server.handleOpeningStock)
	api.GET("/inventory/balance/:cylinderTypeId", server.handleInventoryBalance)

	api.POST("/distributors", server.handleCreateDistributor)
	api.GET("/distributors", server.handleListDistributors)
	api.GET("/distributors/all", RequireAdmin(), server.handleListAllDistributors)
	api.GET("/distributors/:id", server.handleGetDistributor)
	api.PUT("/distributors/:id", server.handleUpdateDistributor)
	api.PATCH("/distributors/:id/activate", server.handleActivateDistributor)
	api.PATCH("/distributors/:id/deactivate", server.handleDeactivateDistributor)
	api.GET("/distributors/:id/financial-balance", server.handleDistributorFinancialBalance)
	api.GET("/distributors/:id/cylinder-balance", server.handleDistributorCylinderBalance)
	api.GET("/distributors/:id/summary", server.handleDistributorSummary)

	api.POST("/staff", server.handleCreateStaff)
	api.GET("/staff", server.handleListStaff)
	api.GET("/staff/top-performers", server.handleTopPerformers)
	api.GET("/staff/:id", server.handleGetStaff)
	api.PUT("/staff/:id", server.handleUpdateStaff)
	api.PATCH("/staff/:id/activate", server.handleActivateStaff)
	api.PATCH("/staff/:id/deactivate", server.handleDeactivateStaff)
	api.GET("/staff/:id/performance", server.handleStaffPerformance)
	api.GET("/staff/:id/summary", server.handleStaffSummary)

	api.POST("/customers", server.handleCreateCustomer)
	api.GET("/customers", server.handleListCustomers)
	api.GET("/customers/:id", server.handleGetCustomer)
	api.PUT("/customers/:id", server.handleUpdateCustomer)
	api.PATCH("/customers/:id/activate", server.handleActivateCustomer)
	api.PATCH("/customers/:id/deactivate", server.handleDeactivateCustomer)
	api.GET("/customers/:id/loans", server.handleCustomerLoans)
	api.GET("/customers/:id/pending-returns", server.handleCustomerPendingReturns)
	api.POST("/customers/:id/loan-returns", server.handleRecordLoanReturn)

	api.POST("/orders", server.handleCreateOrder)
	api.GET("/orders", server.handleListOrders)
	api.GET("/orders/:id", server.handleGetOrder)
	api.GET("/orders/:id/items", server.handleOrderItems)
	api.GET("/orders/:id/returns", server.handleOrderReturns)
	api.GET("/orders/:id/summary", server.handleOrderSummary)

	api.POST("/sales", server.handleCreateSale)
	api.GET("/sales", server.handleListSales)
	api.GET("/sales/summary", server.handleSalesSummary)
	api.GET("/sales/analytics", server.handleSalesAnalytics)
	api.GET("/sales/staff/:staffId", server.handleSalesByStaff)
	api.GET("/sales/date/:date", server.handleSalesByDate)
	api.GET("/sales/:id", server.handleGetSale)
	api.GET("/sales/:id/details", server.handleSaleDetails)

	api.POST("/payments", server.handleCreatePayment)
	api.GET("/payments", server.handleListPayments)
	api.GET("/payments/summary", server.handlePaymentSummary)
	api.GET("/payments/:id", server.handleGetPayment)
	api.PUT("/payments/:id", server.handleUpdatePayment)
	api.DELETE("/payments/:id", server.handleDeletePayment)

	api.GET("/reports/dashboard", server.handleDashboard)
	api.GET("/reports/profit-loss", server.handleProfitLoss)
	api.GET("/reports/revenue", server.handleRevenue)
	api.GET("/reports/sales-overview", server.handleSalesOverview)
	api.GET("/reports/sales-trends", server.handleSalesTrends)
	api.GET("/reports/inventory-movement", server.handleInventoryMovement)
	api.GET("/reports/monthly-comparison", server.handleMonthlyComparison)

	return router
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("http server listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (server *Server) handleListCylinderTypes(ctx *gin.Context) {
	var rows []gormstore.CylinderType
	err := server.db.WithContext(ctx.Request.Context()).
		Order("company, category, weight_kg").
		Find(&rows).Error
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, successEnvelope(rows, "cylinder types"))
}
