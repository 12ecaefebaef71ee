package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jcdickinson/doclink/internal/filter"
	"github.com/jcdickinson/doclink/internal/rpc"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

//go:embed instructions.md
var instructions string

const pageURIPrefix = "doclink://page/"

// Daemon is the subset of the daemon client the MCP server uses.
type Daemon interface {
	List(ctx context.Context, req rpc.ListRequest) (*rpc.ListResponse, error)
	Link(ctx context.Context, req rpc.LinkRequest) (*rpc.LinkResponse, error)
}

type Server struct {
	mcpServer *server.MCPServer
	client    Daemon
}

// New creates an MCP server answering through client.
func New(client Daemon) *Server {
	s := &Server{client: client}

	mcpServer := server.NewMCPServer(
		"doclink",
		"0.1.0",
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("list_pages",
			mcp.WithDescription("List the documentation pages of a project, optionally filtered by kind, namespace, parent and name. Criteria are case-insensitive regular expression fragments."),
			mcp.WithString("project",
				mcp.Description("Documentation root URL containing index.txt (default: last loaded project)"),
			),
			mcp.WithString("type",
				mcp.Description("Kind: Class, Struct, Interface, Enumeration, Constructor, Delegate, Api, Method, Property, Field, Event, ..."),
			),
			mcp.WithString("namespace",
				mcp.Description("Text contained in the namespace"),
			),
			mcp.WithString("parent",
				mcp.Description("Text contained in the declaring type"),
			),
			mcp.WithString("name",
				mcp.Description("Text contained in the member or type name"),
			),
		),
		s.handleListPages,
	)

	mcpServer.AddTool(
		mcp.NewTool("link_page",
			mcp.WithDescription("Build the link to one documentation page of a project."),
			mcp.WithString("page",
				mcp.Description("Page url, as returned by list_pages"),
				mcp.Required(),
			),
			mcp.WithString("project",
				mcp.Description("Documentation root URL (default: last loaded project)"),
			),
			mcp.WithString("text",
				mcp.Description("Link text (default: the page definition)"),
			),
			mcp.WithString("format",
				mcp.Description("Output format: html (default) or markdown"),
			),
		),
		s.handleLinkPage,
	)
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{page}",
			"Documentation page link",
			mcp.WithTemplateDescription("Markdown link to a page of the last loaded project."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

// criteriaFromArgs keeps absent arguments nil, so only supplied criteria
// constrain the filter.
func criteriaFromArgs(args map[string]any) filter.Criteria {
	get := func(key string) *string {
		if v, ok := args[key].(string); ok {
			return &v
		}
		return nil
	}
	return filter.Criteria{
		Type:      get("type"),
		Namespace: get("namespace"),
		Parent:    get("parent"),
		Name:      get("name"),
	}
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	project, _ := args["project"].(string)

	resp, err := s.client.List(ctx, rpc.ListRequest{
		Project:  project,
		Criteria: criteriaFromArgs(args),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if len(resp.Entries) == 0 {
		return mcp.NewToolResultText("No file corresponds to your criteria."), nil
	}

	type page struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	pages := make([]page, len(resp.Entries))
	for i, e := range resp.Entries {
		pages[i] = page{URL: e.URL, Name: e.Name}
	}

	resultJSON, _ := json.MarshalIndent(pages, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleLinkPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	page, _ := args["page"].(string)
	if page == "" {
		return mcp.NewToolResultError("missing required parameter: page"), nil
	}

	var linkReq rpc.LinkRequest
	linkReq.Page = page
	linkReq.Project, _ = args["project"].(string)
	linkReq.Text, _ = args["text"].(string)
	linkReq.Format, _ = args["format"].(string)

	resp, err := s.client.Link(ctx, linkReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("link failed: %v", err)), nil
	}
	return mcp.NewToolResultText(resp.Output), nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	page := strings.TrimPrefix(uri, pageURIPrefix)
	if page == "" || page == uri {
		return nil, fmt.Errorf("invalid resource URI: %s", uri)
	}

	resp, err := s.client.Link(ctx, rpc.LinkRequest{Page: page, Format: "markdown"})
	if err != nil {
		return nil, fmt.Errorf("linking page: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     resp.Output,
		},
	}, nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) Shutdown(_ context.Context) error {
	return nil
}
