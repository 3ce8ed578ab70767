package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heimaolst/shortlink/internal/model"
)

func (server *Server) GetProfile(ctx *gin.Context) {
	account, err := server.accounts.Profile(ctx, currentPrincipal(ctx).ID)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, account)
}

func (server *Server) UpdateProfile(ctx *gin.Context) {
	var req model.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	account, err := server.accounts.UpdateProfile(ctx, currentPrincipal(ctx).ID, req)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, account)
}

func (server *Server) ChangePassword(ctx *gin.Context) {
	var req model.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	if err := server.accounts.ChangePassword(ctx, currentPrincipal(ctx).ID, req); err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// DeleteProfile 删除账号以及名下全部链接
func (server *Server) DeleteProfile(ctx *gin.Context) {
	if err := server.accounts.Delete(ctx, currentPrincipal(ctx).ID); err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// ProfileStats GET /profile/stats，每次请求实时聚合
func (server *Server) ProfileStats(ctx *gin.Context) {
	stats, err := server.stats.Stats(ctx, currentPrincipal(ctx).ID)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
