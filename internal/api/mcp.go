package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/huntd/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store        *storage.Store
	Sync         SyncRunner // optional; if nil, sync_now returns an error
	DefaultQuery string
}

// NewMCPServer creates an MCP server with all huntd tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"huntd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("huntd — local job application tracker built from recruiting email."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_applications",
			mcp.WithDescription("List tracked job applications, most recent activity first."),
			mcp.WithString("filter", mcp.Description("Optional filter: active, inactive, or all (default all)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListApplications(deps),
	)

	s.AddTool(
		mcp.NewTool("application_history",
			mcp.WithDescription("Return the full status event history for one application."),
			mcp.WithString("id", mcp.Description("Application id"), mcp.Required()),
		),
		mcpApplicationHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("sync_now",
			mcp.WithDescription("Fetch new recruiting email and fold it into the tracker."),
			mcp.WithString("query", mcp.Description("Optional mail provider query overriding the configured one")),
		),
		mcpSyncNow(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"huntd://active",
			"Active Applications",
			mcp.WithResourceDescription("All active application pipelines as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceActive(deps),
	)

	return s
}

func mcpListApplications(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		var (
			apps []storage.Application
			err  error
		)
		switch req.GetString("filter", "all") {
		case "active":
			apps, err = deps.Store.ActiveApplications()
		case "inactive":
			apps, err = deps.Store.InactiveApplications()
		default:
			apps, err = deps.Store.ListApplications(limit, 0)
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list applications: %v", err)), nil
		}
		if len(apps) > limit {
			apps = apps[:limit]
		}

		type appResult struct {
			ID           string `json:"id"`
			Company      string `json:"company"`
			Position     string `json:"position,omitempty"`
			Status       string `json:"status"`
			Active       bool   `json:"active"`
			LastActivity string `json:"last_activity"`
		}
		results := make([]appResult, len(apps))
		for i, a := range apps {
			results[i] = appResult{
				ID:           a.ID,
				Company:      a.CompanyName,
				Position:     a.Position,
				Status:       a.Status,
				Active:       a.Active,
				LastActivity: a.LastActivity.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpApplicationHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		events, err := deps.Store.EventsByApplication(id)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load history: %v", err)), nil
		}
		if len(events) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(events)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSyncNow(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Sync == nil {
			return mcpError("sync not available: no mail source configured"), nil
		}

		query := req.GetString("query", "")
		if query == "" {
			query = deps.DefaultQuery
		}

		sum, err := deps.Sync.Run(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("sync failed: %v", err)), nil
		}

		b, err := json.Marshal(sum)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceActive(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		apps, err := deps.Store.ActiveApplications()
		if err != nil {
			return nil, fmt.Errorf("failed to load active applications: %w", err)
		}

		b, err := json.Marshal(apps)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal applications: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
