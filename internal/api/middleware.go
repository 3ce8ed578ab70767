package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
	"go.uber.org/zap"
)

const principalKey = "principal"

func (server *Server) AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			server.abort(ctx, util.Unauthorized("missing authorization header"))
			return
		}

		// 令牌格式是 "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			server.abort(ctx, util.Unauthorized("authorization header must be a bearer token"))
			return
		}

		principal, err := server.accounts.Authenticate(ctx, parts[1])
		if err != nil {
			server.abort(ctx, err)
			return
		}

		ctx.Set(principalKey, *principal)
		ctx.Next()
	}
}

func (server *Server) abort(ctx *gin.Context, err error) {
	server.handleError(ctx, err)
	ctx.Abort()
}

// currentPrincipal 只能在 AuthMiddleware 之后调用
func currentPrincipal(ctx *gin.Context) model.Principal {
	if v, ok := ctx.Get(principalKey); ok {
		if p, ok := v.(model.Principal); ok {
			return p
		}
	}
	return model.Principal{}
}

// StructuredLogging 记录每个请求的方法、路径、状态码和耗时
func StructuredLogging(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery

		ctx.Next()

		status := ctx.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", ctx.ClientIP()),
			zap.String("user_agent", ctx.Request.UserAgent()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("body_size", ctx.Writer.Size()),
		}
		if p := currentPrincipal(ctx); p.ID != "" {
			fields = append(fields, zap.String("owner_id", p.ID))
		}
		if len(ctx.Errors) > 0 {
			fields = append(fields, zap.String("errors", ctx.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("server error", fields...)
		case status >= 400:
			logger.Warn("client error", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}
