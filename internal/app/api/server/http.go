package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/docs"
	"github.com/fatflowers/tgpass/internal/app/api/handlers"
	mw "github.com/fatflowers/tgpass/internal/app/api/middleware"
	"github.com/fatflowers/tgpass/internal/app/service/authz"
	"github.com/fatflowers/tgpass/internal/app/service/lifecycle"
	"github.com/fatflowers/tgpass/internal/app/service/order"
	"github.com/fatflowers/tgpass/internal/app/service/reconciler"
	"github.com/fatflowers/tgpass/internal/repository"
	cfgpkg "github.com/fatflowers/tgpass/pkg/config"
	metrics "github.com/fatflowers/tgpass/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Repo       repository.Repository
	Auth       *authz.Service
	Orders     *order.Service
	Lifecycle  *lifecycle.Service
	Reconciler *reconciler.Service
}

func registerRoutes(lc fx.Lifecycle, d routeDeps) {
	r, log, cfg := d.Engine, d.Log, d.Cfg

	// Prometheus metrics
	if cfg.MetricsAddr != "" {
		metrics.MustRegisterBusiness()
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			Subsystem: "tgpass",
			RouteLabel: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return "unmatched"
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)
		lc.Append(fx.Hook{OnStop: p.Shutdown})

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, d.Repo, log)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))

	// Gateway callbacks authenticate by signature
	handlers.RegisterWebhookRoutes(apiV1.Group("/webhooks"), cfg.Razorpay.WebhookSecret, d.Reconciler, log)

	authed := apiV1.Group("")
	authed.Use(mw.AuthMiddleware(d.Auth, log))
	handlers.RegisterUserRoutes(authed, d.Orders, d.Lifecycle, d.Orders, d.Auth, log)
	handlers.RegisterAdminRoutes(authed.Group("/admin"), d.Lifecycle, d.Reconciler, d.Auth, log)
}

func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "err", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
