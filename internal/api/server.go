package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redisclient "github.com/heimaolst/shortlink/db/redis"
	db "github.com/heimaolst/shortlink/db/store"
	"github.com/heimaolst/shortlink/internal/auth"
	"github.com/heimaolst/shortlink/internal/service"
	"github.com/heimaolst/shortlink/internal/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	config util.Config
	store  *db.Store
	rdb    *redis.Client
	logger *zap.Logger

	links    *service.LinkService
	resolver *service.Resolver
	stats    *service.StatsService
	accounts *service.AccountService

	router *gin.Engine
}

// NewServer 组装各个服务并注册路由。rdb 为 nil 时不使用缓存
func NewServer(config util.Config, store *db.Store, rdb *redis.Client, logger *zap.Logger) (*Server, error) {
	tokens, err := auth.NewTokenMaker(config.AccessSecret, config.RefreshSecret, config.AccessTokenTTL, config.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	var cache service.Cache = service.NopCache{}
	if rdb != nil {
		cache = redisclient.NewCache(rdb)
	}

	links := service.NewLinkService(store, cache, logger, service.LinkOptions{
		BaseURL:    config.BaseURL,
		CodeLength: config.ShortCodeLength,
		MaxRetries: config.ShortCodeRetry,
	})
	server := &Server{
		config:   config,
		store:    store,
		rdb:      rdb,
		logger:   logger,
		links:    links,
		resolver: service.NewResolver(store, cache, logger),
		stats:    service.NewStatsService(store, links),
		accounts: service.NewAccountService(store, cache, tokens, logger),
	}
	server.setupRouter()
	return server, nil
}

func (server *Server) setupRouter() {
	registerValidatorTagNames()

	if server.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		StructuredLogging(server.logger),
		PrometheusMetrics(),
	)
	if len(server.config.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(server.config.CORSOrigins)))
	}

	router.GET("/healthz", server.Healthz)
	router.GET("/readyz", server.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/r/:shortCode", server.RedirectLink)

	authRoutes := router.Group("/auth")
	authRoutes.POST("/register", server.RegisterUser)
	authRoutes.POST("/login", server.Login)
	authRoutes.POST("/refresh", server.RefreshToken)

	authed := router.Group("/")
	authed.Use(server.AuthMiddleware())

	authed.POST("/links", server.CreateLink)
	authed.GET("/links", server.ListLinks)
	authed.GET("/links/:id", server.GetLink)
	authed.PUT("/links/:id", server.UpdateLink)
	authed.DELETE("/links/:id", server.DeleteLink)

	authed.GET("/profile", server.GetProfile)
	authed.PUT("/profile", server.UpdateProfile)
	authed.DELETE("/profile", server.DeleteProfile)
	authed.PUT("/profile/password", server.ChangePassword)
	authed.GET("/profile/stats", server.ProfileStats)

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, errResponse(util.NotFound("route not found")))
	})

	server.router = router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Handler 供测试和自定义 http.Server 使用
func (server *Server) Handler() http.Handler {
	return server.router
}

// Start 阻塞运行，ctx 结束后在 ShutdownTimeout 内优雅关闭
func (server *Server) Start(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("HTTP 服务已启动", zap.String("addr", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	server.logger.Info("收到退出信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (server *Server) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz 检查数据库和 Redis 是否可用
func (server *Server) Readyz(ctx *gin.Context) {
	checks := gin.H{"database": "ok"}
	ready := true
	if err := server.store.Ping(ctx); err != nil {
		server.logger.Warn("database not ready", zap.Error(err))
		checks["database"] = err.Error()
		ready = false
	}
	if server.rdb != nil {
		checks["redis"] = "ok"
		if err := server.rdb.Ping(ctx).Err(); err != nil {
			server.logger.Warn("redis not ready", zap.Error(err))
			checks["redis"] = err.Error()
			ready = false
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, gin.H{"ready": ready, "checks": checks})
}
