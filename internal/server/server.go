package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studiobill/studiobill/internal/billingentity"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	"github.com/studiobill/studiobill/internal/config"
	"github.com/studiobill/studiobill/internal/event"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	"github.com/studiobill/studiobill/internal/invoice"
	invoicedomain "github.com/studiobill/studiobill/internal/invoice/domain"
	"github.com/studiobill/studiobill/internal/lock"
	"github.com/studiobill/studiobill/internal/matcher"
	matcherdomain "github.com/studiobill/studiobill/internal/matcher/domain"
	"github.com/studiobill/studiobill/internal/observability/metrics"
	"github.com/studiobill/studiobill/internal/rematch"
	rematchdomain "github.com/studiobill/studiobill/internal/rematch/domain"
	"github.com/studiobill/studiobill/internal/tagrule"
	tagruledomain "github.com/studiobill/studiobill/internal/tagrule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	lock.Module,
	billingentity.Module,
	event.Module,
	tagrule.Module,
	matcher.Module,
	invoice.Module,
	rematch.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	entitySvc   entitydomain.Service
	eventSvc    eventdomain.Service
	matcherSvc  matcherdomain.Service
	invoiceSvc  invoicedomain.Service
	rematchSvc  rematchdomain.Service
	tagRuleRepo tagruledomain.Repository
	metrics     *metrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	EntitySvc   entitydomain.Service
	EventSvc    eventdomain.Service
	MatcherSvc  matcherdomain.Service
	InvoiceSvc  invoicedomain.Service
	RematchSvc  rematchdomain.Service
	TagRuleRepo tagruledomain.Repository
	Metrics     *metrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		entitySvc:   p.EntitySvc,
		eventSvc:    p.EventSvc,
		matcherSvc:  p.MatcherSvc,
		invoiceSvc:  p.InvoiceSvc,
		rematchSvc:  p.RematchSvc,
		tagRuleRepo: p.TagRuleRepo,
		metrics:     p.Metrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// Identity is established upstream; handlers trust X-Owner-ID.
	api.Use(s.OwnerContext())

	// -------- Billing Entities --------
	api.GET("/billing-entities", s.ListBillingEntities)
	api.POST("/billing-entities", s.CreateBillingEntity)
	api.GET("/billing-entities/:id", s.GetBillingEntityByID)
	api.PATCH("/billing-entities/:id", s.UpdateBillingEntity)
	api.DELETE("/billing-entities/:id", s.DeleteBillingEntity)

	// -------- Calendar Feeds --------
	api.GET("/calendar-feeds", s.ListCalendarFeeds)

	// -------- Events --------
	api.GET("/events", s.ListEvents)
	api.PUT("/events/:id/assignment", s.AssignEventManually)

	// -------- Matching --------
	api.POST("/matching/run", s.RunMatching)
	api.POST("/matching/rematch", s.RunRematch)

	// -------- Payouts --------
	api.POST("/payouts/preview", s.PreviewPayout)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)

	// -------- Tag Rules --------
	api.GET("/tag-rules", s.ListTagRules)
	api.POST("/tag-rules", s.CreateTagRule)
	api.DELETE("/tag-rules/:id", s.DeleteTagRule)
}
