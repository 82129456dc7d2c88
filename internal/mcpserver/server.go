// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes kmdx tag queries for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kmdx/internal/noteservice"
)

const dialectURI = "kmdx://dialect"

// Server wraps the MCP server with kmdx tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all kmdx tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"kmdx",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("select_items",
		mcp.WithDescription("Select list items carrying every tag of a comma-separated filter. "+
			"Returns items as JSON with their composed tags, parent id and fragment names."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tags, e.g. todo,work")),
		mcp.WithString("path", mcp.Description("Optional document to restrict the query to")),
	), s.selectItems)

	s.mcp.AddTool(mcp.NewTool("extract",
		mcp.WithDescription("Render the annotated indexed-notes document for a tag filter, "+
			"including the fragments the selected items reference."),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tags")),
		mcp.WithString("path", mcp.Description("Optional document to restrict the query to")),
	), s.extract)

	s.mcp.AddTool(mcp.NewTool("read_fragment",
		mcp.WithDescription("Read a named local fragment reference of a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path relative to the notes root")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Fragment name as written after ## in the LFR section")),
	), s.readFragment)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List tagged-markdown documents, optionally in one folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("summary",
		mcp.WithDescription("Report file, item and fragment counts and the distinct tags in use."),
		mcp.WithString("path", mcp.Description("Optional document to summarise")),
	), s.summary)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Substring search over indexed item content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create a new tagged-markdown document and index it. "+
			"Content MUST follow the dialect described by get_dialect or the "+dialectURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .k.md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document content")),
	), s.createFile)

	s.mcp.AddTool(mcp.NewTool("get_dialect",
		mcp.WithDescription("Returns the tagged-markdown dialect reference. "+
			"Call this before creating documents."),
	), s.getDialect)

	s.mcp.AddResource(
		mcp.NewResource(dialectURI, "Tagged Markdown Dialect",
			mcp.WithResourceDescription("Syntax of .k.md documents: inline tags, headers, fragments and references."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDialectResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) selectItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.Select(ctx, tags, req.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items), nil
}

func (s *Server) extract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ext, err := s.svc.Extract(ctx, tags, req.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(ext.Document), nil
}

func (s *Server) readFragment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.svc.Fragment(ctx, path, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(f.Content), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")
	metas, err := s.svc.Files(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		if folder != "" && !strings.HasPrefix(m.Path, strings.TrimSuffix(folder, "/")+"/") {
			continue
		}
		paths = append(paths, m.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) summary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Summary(ctx, req.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sum.Markdown()), nil
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rows), nil
}

func (s *Server) createFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateFile(ctx, path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d items, %d fragments)", path, len(res.Items), len(res.Fragments))), nil
}

func (s *Server) getDialect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DialectReference), nil
}

func (s *Server) readDialectResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      dialectURI,
			MIMEType: "text/markdown",
			Text:     DialectReference,
		},
	}, nil
}
