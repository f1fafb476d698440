package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/config"
	consistencydomain "github.com/smallbiznis/salesengine/internal/consistency/domain"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	obslogger "github.com/smallbiznis/salesengine/internal/observability/logger"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	receivabledomain "github.com/smallbiznis/salesengine/internal/receivable/domain"
	revenuedomain "github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

type Params struct {
	fx.In

	Engine         *gin.Engine
	Log            *zap.Logger
	Sales          saledomain.Service
	Revenue        revenuedomain.Service
	Receivables    receivabledomain.Service
	Usage          usagedomain.Service
	Invoices       invoicedomain.Service
	Consistency    consistencydomain.Service
	Products       productdomain.Service
	Customers      customerdomain.Service
	PaymentMethods paymentmethoddomain.Service
	AuditSvc       auditdomain.Service
}

type Server struct {
	engine         *gin.Engine
	log            *zap.Logger
	saleSvc        saledomain.Service
	revenueSvc     revenuedomain.Service
	receivableSvc  receivabledomain.Service
	usageSvc       usagedomain.Service
	invoiceSvc     invoicedomain.Service
	consistencySvc consistencydomain.Service
	productSvc     productdomain.Service
	customerSvc    customerdomain.Service
	paymentMethods paymentmethoddomain.Service
	auditSvc       auditdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		engine:         p.Engine,
		log:            p.Log.Named("http.server"),
		saleSvc:        p.Sales,
		revenueSvc:     p.Revenue,
		receivableSvc:  p.Receivables,
		usageSvc:       p.Usage,
		invoiceSvc:     p.Invoices,
		consistencySvc: p.Consistency,
		productSvc:     p.Products,
		customerSvc:    p.Customers,
		paymentMethods: p.PaymentMethods,
		auditSvc:       p.AuditSvc,
	}
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")
	api.Use(OwnerContext())

	sales := api.Group("/sales")
	sales.POST("", s.ProcessSale)
	sales.GET("", s.ListSales)
	sales.GET("/:id", s.GetSale)
	sales.DELETE("/:id", s.ReverseSale)
	sales.PATCH("/:id/payment-status", s.UpdatePaymentStatus)
	sales.POST("/:id/payments", s.RecordPartialPayment)
	sales.GET("/:id/payments", s.ListSalePayments)

	receivables := api.Group("/receivables")
	receivables.GET("/aging", s.GetAccountsReceivableAging)
	receivables.GET("/customers", s.GetCustomerCreditSummary)

	api.GET("/revenue", s.RecognizedRevenue)
	api.GET("/revenue/integrity", s.IntegrityFlags)

	usage := api.Group("/usage")
	usage.POST("/prorata", s.CalculateProrataUpgrade)
	usage.GET("/:feature", s.CheckUsageLimit)
	usage.POST("/:feature/increment", s.IncrementUsage)

	invoices := api.Group("/invoices")
	invoices.POST("", s.CreateInvoice)
	invoices.GET("/overdue", s.GetOverdueSummary)
	invoices.GET("/:id", s.GetInvoice)
	invoices.GET("/:id/pdf", s.DownloadInvoicePDF)
	invoices.PATCH("/:id/status", s.UpdateInvoiceStatus)

	api.GET("/consistency", s.ConsistencyAudit)
	api.POST("/consistency/repair", s.ConsistencyRepair)

	api.GET("/products", s.ListProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/products/:id", s.GetProduct)
	api.POST("/products/:id/restock", s.RestockProduct)

	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomer)

	api.GET("/payment-methods", s.ListPaymentMethods)
	api.POST("/payment-methods", s.CreatePaymentMethod)
	api.PATCH("/payment-methods/:id", s.SetPaymentMethodActive)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	port := strings.TrimSpace(cfg.HTTPPort)
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http.server.start", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http.server.failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
