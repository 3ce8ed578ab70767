package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heimaolst/shortlink/internal/model"
)

// RegisterUser POST /auth/register
func (server *Server) RegisterUser(ctx *gin.Context) {
	var req model.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	account, err := server.accounts.Register(ctx, req)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, account)
}

// Login 返回 Access Token 和 Refresh Token
func (server *Server) Login(ctx *gin.Context) {
	var req model.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	rsp, err := server.accounts.Login(ctx, req)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, rsp)
}

// RefreshToken 用于使用有效的 Refresh Token 获取新的 Access Token
func (server *Server) RefreshToken(ctx *gin.Context) {
	var req model.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	accessToken, err := server.accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}
