package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App) *MCPServer {
	mcpServer := server.NewMCPServer(
		"ytcurate-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Fetch the transcript of a YouTube video from its existing captions (FREE). Fails if the video has no captions."),
		mcp.WithString("video",
			mcp.Description("YouTube video ID or URL"),
			mcp.Required(),
		),
	), s.handleGetTranscript)

	s.mcpServer.AddTool(mcp.NewTool("analyze_video",
		mcp.WithDescription("Analyze a YouTube video's transcript for learning value: content type, difficulty, key topics, quality scores, and relevance against the configured categories (PAID - uses the OpenAI API, subject to the daily cost limit). Results are cached, so repeating a call is free."),
		mcp.WithString("video",
			mcp.Description("YouTube video ID or URL"),
			mcp.Required(),
		),
		mcp.WithString("depth",
			mcp.Description("Analysis depth: quick, basic, standard, or deep (default standard)"),
		),
		mcp.WithString("categories",
			mcp.Description("Comma-separated category IDs to score against (default: all configured categories)"),
		),
	), s.handleAnalyzeVideo)

	s.mcpServer.AddTool(mcp.NewTool("search_videos",
		mcp.WithDescription("Search YouTube for videos matching a query, with optional duration and captions filters. Requires a YouTube Data API key; each call spends API quota."),
		mcp.WithString("query",
			mcp.Description("Search query"),
			mcp.Required(),
		),
		mcp.WithString("duration",
			mcp.Description("Duration preset: short, medium, or long"),
		),
		mcp.WithBoolean("captions_only",
			mcp.Description("Only return videos with closed captions"),
		),
	), s.handleSearchVideos)

	s.mcpServer.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the configured learning categories with their IDs, descriptions, and match criteria."),
	), s.handleListCategories)
}

func (s *MCPServer) resolveVideoID(arg string) (VideoID, error) {
	videoID, err := ParseVideoArg(arg)
	if err != nil {
		return "", fmt.Errorf("invalid video argument %q: %w", arg, err)
	}
	return videoID, nil
}

// handleGetTranscript implements the get_transcript tool
func (s *MCPServer) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg, err := request.RequireString("video")
	if err != nil {
		return mcp.NewToolResultError("video parameter is required and must be a string"), nil
	}

	videoID, err := s.resolveVideoID(arg)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid video", err), nil
	}

	MCPLogInfo("get_transcript %s", videoID)
	raw, err := s.app.GetTranscript(ctx, videoID)
	if err != nil {
		MCPLogError("get_transcript %s: %v", videoID, err)
		return mcp.NewToolResultErrorFromErr("no transcript available", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(raw.FullText)},
	}, nil
}

// handleAnalyzeVideo implements the analyze_video tool
func (s *MCPServer) handleAnalyzeVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg, err := request.RequireString("video")
	if err != nil {
		return mcp.NewToolResultError("video parameter is required and must be a string"), nil
	}

	videoID, err := s.resolveVideoID(arg)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid video", err), nil
	}

	depth := s.app.Config().AnalysisDepth
	if d := request.GetString("depth", ""); d != "" {
		depth = Depth(d)
		if !depth.IsValid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown depth %q (valid: quick, basic, standard, deep)", d)), nil
		}
	}

	categories := s.app.Categories().All()
	if list := request.GetString("categories", ""); list != "" {
		categories = categories[:0]
		for _, name := range strings.Split(list, ",") {
			c, ok := s.app.Categories().Resolve(strings.TrimSpace(name))
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", name)), nil
			}
			categories = append(categories, c)
		}
	}

	MCPLogInfo("analyze_video %s depth=%s categories=%d", videoID, depth, len(categories))
	result, err := s.app.AnalyzeVideo(ctx, videoID, categories, depth)
	if err != nil {
		MCPLogError("analyze_video %s: %v", videoID, err)
		return mcp.NewToolResultErrorFromErr("analysis failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(FormatAnalysisMarkdown(result, categories))},
	}, nil
}

// handleSearchVideos implements the search_videos tool
func (s *MCPServer) handleSearchVideos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required and must be a string"), nil
	}

	filters := VideoFilters{Query: query}
	if d := request.GetString("duration", ""); d != "" {
		filters.Duration = &DurationFilter{Preset: d}
	}
	if request.GetBool("captions_only", false) {
		yes := true
		filters.RequireCaptions = &yes
	}

	MCPLogInfo("search_videos %q", query)
	result, err := s.app.SearchVideos(ctx, filters, VideoSort{Field: SortRelevance, Order: "desc"})
	if err != nil {
		MCPLogError("search_videos %q: %v", query, err)
		return mcp.NewToolResultErrorFromErr("search failed", err), nil
	}

	payload, err := json.MarshalIndent(result.Videos, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding results", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(payload))},
	}, nil
}

// handleListCategories implements the list_categories tool
func (s *MCPServer) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var buf strings.Builder
	for _, c := range s.app.Categories().All() {
		buf.WriteString(fmt.Sprintf("%s (%s)\n", c.Name, c.ID))
		if c.Description != "" {
			buf.WriteString(fmt.Sprintf("  %s\n", c.Description))
		}
		if c.Criteria != "" {
			buf.WriteString(fmt.Sprintf("  Criteria: %s\n", c.Criteria))
		}
	}
	if buf.Len() == 0 {
		buf.WriteString("No categories configured.\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}
