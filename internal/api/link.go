package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heimaolst/shortlink/internal/model"
)

// CreateLink POST /links
func (server *Server) CreateLink(ctx *gin.Context) {
	var req model.CreateLinkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	link, err := server.links.Create(ctx, currentPrincipal(ctx).ID, req)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	recordLinkCreated()
	ctx.JSON(http.StatusOK, link)
}

// ListLinks GET /links?search=&page=&limit=
func (server *Server) ListLinks(ctx *gin.Context) {
	var query model.ListLinksQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	page, err := server.links.List(ctx, currentPrincipal(ctx).ID, query)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

func (server *Server) GetLink(ctx *gin.Context) {
	link, err := server.links.Get(ctx, currentPrincipal(ctx).ID, ctx.Param("id"))
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, link)
}

func (server *Server) UpdateLink(ctx *gin.Context) {
	var req model.UpdateLinkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		server.handleError(ctx, bindError(err))
		return
	}

	link, err := server.links.Update(ctx, currentPrincipal(ctx).ID, ctx.Param("id"), req)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, link)
}

func (server *Server) DeleteLink(ctx *gin.Context) {
	if err := server.links.Delete(ctx, currentPrincipal(ctx).ID, ctx.Param("id")); err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "link removed"})
}

// RedirectLink GET /r/:shortCode，公开访问
func (server *Server) RedirectLink(ctx *gin.Context) {
	target, err := server.resolver.Resolve(ctx, ctx.Param("shortCode"))
	recordRedirect(err)
	if err != nil {
		server.handleError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, target)
}
