package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/claimflow/internal/claim"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/internal/claimlock"
	"github.com/smallbiznis/claimflow/internal/config"
	"github.com/smallbiznis/claimflow/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/claimflow/internal/dashboard/domain"
	"github.com/smallbiznis/claimflow/internal/history"
	"github.com/smallbiznis/claimflow/internal/invoice"
	invoicedomain "github.com/smallbiznis/claimflow/internal/invoice/domain"
	"github.com/smallbiznis/claimflow/internal/observability"
	obslogger "github.com/smallbiznis/claimflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/claimflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/claimflow/internal/observability/tracing"
	"github.com/smallbiznis/claimflow/internal/reference"
	"github.com/smallbiznis/claimflow/internal/stock"
	stockdomain "github.com/smallbiznis/claimflow/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	reference.Module,
	claimlock.Module,
	stock.Module,
	history.Module,
	invoice.Module,
	claim.Module,
	dashboard.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain and the
// operational endpoints.
func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	claimSvc     claimdomain.Service
	invoiceSvc   invoicedomain.Service
	stockSvc     stockdomain.Service
	dashboardSvc dashboarddomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	ClaimSvc     claimdomain.Service
	InvoiceSvc   invoicedomain.Service
	StockSvc     stockdomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		claimSvc:     p.ClaimSvc,
		invoiceSvc:   p.InvoiceSvc,
		stockSvc:     p.StockSvc,
		dashboardSvc: p.DashboardSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/claims", s.CreateClaim)
	api.GET("/claims", s.ListClaims)
	api.GET("/claims/:id", s.GetClaimByID)
	api.PUT("/claims/:id", s.UpdateDraftClaim)
	api.POST("/claims/:id/transition", s.TransitionClaim)
	api.GET("/claims/:id/history", s.ListClaimHistory)

	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/approve", s.ApproveInvoice)
	api.GET("/invoices/:id/pdf-data", s.GetInvoiceDocument)

	api.GET("/stock", s.ListStock)

	api.GET("/dashboard/metrics", s.GetDashboardMetrics)
}
