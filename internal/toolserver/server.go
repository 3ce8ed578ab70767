package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/service"
	"github.com/heimaolst/shortlink/internal/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server 通过 MCP 协议把某个用户的链接操作暴露给 Agent
type Server struct {
	links   *service.LinkService
	stats   *service.StatsService
	ownerID string
	logger  *zap.Logger
	mcp     *server.MCPServer
}

func New(links *service.LinkService, stats *service.StatsService, ownerID, version string, logger *zap.Logger) *Server {
	s := &Server{
		links:   links,
		stats:   stats,
		ownerID: ownerID,
		logger:  logger,
		mcp:     server.NewMCPServer("shortlink", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("create_link",
		mcp.WithDescription("Shorten a URL and return the created link as JSON"),
		mcp.WithString("original_url", mcp.Required(), mcp.Description("http or https URL to shorten")),
		mcp.WithString("title", mcp.Description("optional title, at most 100 characters")),
		mcp.WithString("description", mcp.Description("optional description, at most 500 characters")),
		mcp.WithString("tags", mcp.Description("comma separated tags")),
		mcp.WithString("expires_at", mcp.Description("optional RFC3339 expiry time")),
	), s.createLink)

	s.mcp.AddTool(mcp.NewTool("list_links",
		mcp.WithDescription("List links newest first, optionally filtered by a case-insensitive search"),
		mcp.WithString("search", mcp.Description("substring matched against title, description and URL")),
		mcp.WithNumber("page", mcp.Description("page number, starting at 1")),
		mcp.WithNumber("limit", mcp.Description("page size, 1 to 100")),
	), s.listLinks)

	s.mcp.AddTool(mcp.NewTool("set_link_active",
		mcp.WithDescription("Enable or disable redirects for a link"),
		mcp.WithString("id", mcp.Required(), mcp.Description("link id")),
		mcp.WithBoolean("active", mcp.Required(), mcp.Description("true to enable, false to disable")),
	), s.setLinkActive)

	s.mcp.AddTool(mcp.NewTool("link_stats",
		mcp.WithDescription("Totals, recent links and most clicked links"),
	), s.linkStats)

	return s
}

// ServeStdio 阻塞直到标准输入关闭
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) createLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	originalURL, err := request.RequireString("original_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := model.CreateLinkRequest{
		OriginalURL: originalURL,
		Title:       request.GetString("title", ""),
		Description: request.GetString("description", ""),
		Tags:        model.NormalizeTags(strings.Split(request.GetString("tags", ""), ",")),
	}
	if raw := request.GetString("expires_at", ""); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError("expires_at must be an RFC3339 timestamp"), nil
		}
		req.ExpiresAt = &expiresAt
	}

	link, err := s.links.Create(ctx, s.ownerID, req)
	if err != nil {
		return s.toolError(err), nil
	}
	return jsonResult(link)
}

func (s *Server) listLinks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.links.List(ctx, s.ownerID, model.ListLinksQuery{
		Search: request.GetString("search", ""),
		Page:   request.GetInt("page", 1),
		Limit:  request.GetInt("limit", 10),
	})
	if err != nil {
		return s.toolError(err), nil
	}
	return jsonResult(page)
}

func (s *Server) setLinkActive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	active, err := request.RequireBool("active")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	link, err := s.links.Update(ctx, s.ownerID, id, model.UpdateLinkRequest{IsActive: &active})
	if err != nil {
		return s.toolError(err), nil
	}
	return jsonResult(link)
}

func (s *Server) linkStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.stats.Stats(ctx, s.ownerID)
	if err != nil {
		return s.toolError(err), nil
	}
	return jsonResult(stats)
}

// toolError 业务错误作为工具结果返回给 Agent，内部错误只记日志
func (s *Server) toolError(err error) *mcp.CallToolResult {
	var ce *util.CustomError
	if errors.As(err, &ce) && ce.Code != util.CodeInternal {
		msg := ce.Message
		for _, f := range ce.Fields {
			msg += fmt.Sprintf("; %s %s", f.Field, f.Message)
		}
		return mcp.NewToolResultError(msg)
	}
	s.logger.Error("tool call failed", zap.Error(err))
	return mcp.NewToolResultError("internal error")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
