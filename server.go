package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"bitbucket.org/shweretail/shop_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = "8080"

var tracer trace.Tracer = otel.Tracer("shweretail-shop")

// identityMiddleware attaches the acting user and branch to the request
// context. Authentication happens upstream; these headers arrive from
// the trusted gateway.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if v, err := strconv.Atoi(c.GetHeader("x-user-id")); err == nil {
			ctx = utils.SetUserIdInContext(ctx, v)
		} else {
			ctx = utils.SetUserIdInContext(ctx, 0)
		}
		userName := c.GetHeader("x-user-name")
		if userName == "" {
			userName = "System"
		}
		ctx = utils.SetUserNameInContext(ctx, userName)
		if v, err := strconv.Atoi(c.GetHeader("x-branch-id")); err == nil {
			ctx = utils.SetBranchIdInContext(ctx, v)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// Every operation answers HTTP 200 with the envelope; callers branch on
// the success flag, not the status code.
func respond(c *gin.Context, envelope models.Envelope) {
	c.JSON(http.StatusOK, envelope)
}

func bindOrFail(c *gin.Context, payload interface{}) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		respond(c, models.FailEnvelope(err))
		return false
	}
	return true
}

func addToCartHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "addToCart")
	defer span.End()
	var input models.NewSale
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.AddToCart(ctx, &input))
}

func removeFromCartHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "removeFromCart")
	defer span.End()
	var input struct {
		ID int `json:"id"`
	}
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.RemoveFromCart(ctx, input.ID))
}

func cartListHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "cartList")
	defer span.End()
	branchId, _ := strconv.Atoi(c.Query("branch_id"))
	respond(c, workflow.CartListEnvelope(ctx, branchId))
}

func createOrderHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createOrder")
	defer span.End()
	var input workflow.NewOrder
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreateOrder(ctx, &input))
}

func saveSaleHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "saveSale")
	defer span.End()
	var input workflow.NewOrder
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.SaveSale(ctx, &input))
}

func ordersListHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ordersList")
	defer span.End()
	branchId, _ := strconv.Atoi(c.Query("branch_id"))
	respond(c, workflow.GetOrdersList(ctx, models.OrderType(c.Query("type")), branchId))
}

func confirmProformaInvoiceHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "confirmProformaInvoice")
	defer span.End()
	var input workflow.ConfirmOrderInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.ConfirmProformaInvoice(ctx, &input))
}

func confirmInvoiceHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "confirmInvoice")
	defer span.End()
	var input workflow.ConfirmOrderInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.ConfirmInvoice(ctx, &input))
}

func deleteOrderHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "deleteOrder")
	defer span.End()
	var input workflow.DeleteOrderInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.DeleteOrder(ctx, &input))
}

func deleteSaleHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "deleteSale")
	defer span.End()
	var input workflow.DeleteSaleInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.DeleteSale(ctx, &input))
}

func createPurchaseHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createPurchase")
	defer span.End()
	var input models.NewPurchase
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreatePurchase(ctx, &input))
}

func updatePurchaseHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "updatePurchase")
	defer span.End()
	var input models.UpdatePurchaseInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.UpdatePurchase(ctx, &input))
}

func createDebtHistoryHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createDebtHistory")
	defer span.End()
	var input workflow.NewDebtHistory
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreateDebtHistory(ctx, &input))
}

func deleteDebtHistoryHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "deleteDebtHistory")
	defer span.End()
	var input workflow.DeleteDebtHistoryInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.DeleteDebtHistory(ctx, &input))
}

func createTransactionHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createTransaction")
	defer span.End()
	var input models.NewTransaction
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreateTransaction(ctx, &input))
}

func deleteTransactionHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "deleteTransaction")
	defer span.End()
	var input struct {
		ID int `json:"id"`
	}
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.DeleteTransaction(ctx, input.ID))
}

func createProductHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createProduct")
	defer span.End()
	var input models.NewProduct
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreateProduct(ctx, &input))
}

func updateProductHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "updateProduct")
	defer span.End()
	var input models.UpdateProductInput
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.UpdateProduct(ctx, &input))
}

func reorderAlertsHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "reorderAlerts")
	defer span.End()
	branchId, _ := strconv.Atoi(c.Query("branch_id"))
	respond(c, workflow.ReorderAlerts(ctx, branchId))
}

func createCustomerHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createCustomer")
	defer span.End()
	var input models.NewCustomer
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreateCustomer(ctx, &input))
}

func createSupplierHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createSupplier")
	defer span.End()
	var input models.NewSupplier
	if !bindOrFail(c, &input) {
		return
	}
	respond(c, workflow.CreateSupplier(ctx, &input))
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before the dependencies are up; app routes
	// answer 503 until the DB is ready.
	r := gin.New()
	r.Use(correlationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization",
		"x-user-id", "x-user-name", "x-branch-id", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(identityMiddleware())
	r.Use(gin.Recovery())

	r.POST("/cart/add", addToCartHandler)
	r.POST("/cart/remove", removeFromCartHandler)
	r.GET("/cart/list", cartListHandler)

	r.POST("/order/create", createOrderHandler)
	r.GET("/order/list", ordersListHandler)
	r.POST("/order/confirm-proforma", confirmProformaInvoiceHandler)
	r.POST("/order/confirm-invoice", confirmInvoiceHandler)
	r.POST("/order/delete", deleteOrderHandler)

	r.POST("/sale/save", saveSaleHandler)
	r.POST("/sale/delete", deleteSaleHandler)

	r.POST("/purchase/create", createPurchaseHandler)
	r.POST("/purchase/update", updatePurchaseHandler)

	r.POST("/debt-history/create", createDebtHistoryHandler)
	r.POST("/debt-history/delete", deleteDebtHistoryHandler)

	r.POST("/transaction/create", createTransactionHandler)
	r.POST("/transaction/delete", deleteTransactionHandler)

	r.POST("/product/create", createProductHandler)
	r.POST("/product/update", updateProductHandler)
	r.GET("/product/reorder-alerts", reorderAlertsHandler)

	r.POST("/customer/create", createCustomerHandler)
	r.POST("/supplier/create", createSupplierHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Drain the outbox in the background once the DB is up.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if config.PubSubConfigured() {
		go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)
	} else {
		logger.WithFields(logrus.Fields{"field": "outbox"}).Warn("pubsub not configured; outbox records stay pending")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
