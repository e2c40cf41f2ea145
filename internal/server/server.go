// Package server wires the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/facture/internal/company"
	companydomain "github.com/smallbiznis/facture/internal/company/domain"
	"github.com/smallbiznis/facture/internal/config"
	"github.com/smallbiznis/facture/internal/invoice"
	invoicedomain "github.com/smallbiznis/facture/internal/invoice/domain"
	"github.com/smallbiznis/facture/internal/observability"
	obslogger "github.com/smallbiznis/facture/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/facture/internal/observability/metrics"
	obstracing "github.com/smallbiznis/facture/internal/observability/tracing"
	"github.com/smallbiznis/facture/internal/providers/pdf"
	"github.com/smallbiznis/facture/internal/quote"
	quotedomain "github.com/smallbiznis/facture/internal/quote/domain"
	"github.com/smallbiznis/facture/internal/ratelimit"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	company.Module,
	quote.Module,
	invoice.Module,
	pdf.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(m.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	companySvc companydomain.Service
	quoteSvc   quotedomain.Service
	invoiceSvc invoicedomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	CompanySvc companydomain.Service
	QuoteSvc   quotedomain.Service
	InvoiceSvc invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		companySvc: p.CompanySvc,
		quoteSvc:   p.QuoteSvc,
		invoiceSvc: p.InvoiceSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Companies --------
	v1.GET("/companies", s.ListCompanies)
	v1.POST("/companies", s.CreateCompany)
	v1.GET("/companies/:id", s.GetCompanyByID)
	v1.PATCH("/companies/:id", s.UpdateCompany)

	// -------- Quotes --------
	v1.GET("/quotes", s.ListQuotes)
	v1.POST("/quotes", s.CreateQuote)
	v1.GET("/quotes/:id", s.GetQuoteByID)
	v1.PATCH("/quotes/:id", s.UpdateQuote)
	v1.DELETE("/quotes/:id", s.DeleteQuote)
	v1.GET("/quotes/:id/lines", s.ListQuoteLines)
	v1.POST("/quotes/:id/lines", s.CreateQuoteLine)
	v1.PATCH("/quotes/:id/lines/:line_id", s.UpdateQuoteLine)
	v1.DELETE("/quotes/:id/lines/:line_id", s.DeleteQuoteLine)
	v1.POST("/quotes/expire", s.ExpireQuotes)

	// -------- Invoices --------
	v1.GET("/invoices", s.ListInvoices)
	v1.POST("/invoices", s.CreateInvoice)
	v1.GET("/invoices/:id", s.GetInvoiceByID)
	v1.PATCH("/invoices/:id", s.UpdateInvoice)
	v1.DELETE("/invoices/:id", s.DeleteInvoice)
	v1.GET("/invoices/:id/lines", s.ListInvoiceLines)
	v1.POST("/invoices/:id/lines", s.CreateInvoiceLine)
	v1.PATCH("/invoices/:id/lines/:line_id", s.UpdateInvoiceLine)
	v1.DELETE("/invoices/:id/lines/:line_id", s.DeleteInvoiceLine)
	v1.GET("/invoices/:id/versions", s.ListInvoiceVersions)
	v1.GET("/invoices/:id/pdf", s.RenderInvoicePDF)
}
