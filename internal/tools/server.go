package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ServerName is the implementation name announced during the MCP
// initialize handshake.
const ServerName = "tabby-mcp"

// NewServer assembles the MCP server with the full tool surface
// registered. The caller owns the transport and the run loop.
func NewServer(conn Connector, version string, logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	RegisterTools(server, NewHandler(conn, logger))
	return server
}

// RegisterTools attaches every tool to server. Input schemas are
// inferred from the typed input structs.
func RegisterTools(server *mcp.Server, h *Handler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_targets",
		Description: "List available CDP targets (tabs) with their index, URL, and WebSocket URL",
	}, h.ListTargets)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execute_js",
		Description: "Execute JavaScript code in Tabby terminal context and return the result",
	}, h.ExecuteJS)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query",
		Description: "Query DOM elements by CSS selector, returns list of elements with info (tagName, id, className, textContent)",
	}, h.Query)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "click",
		Description: "Click a DOM element by CSS selector, optionally the index-th match",
	}, h.Click)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_text",
		Description: "Get the text content of the first element matching a CSS selector",
	}, h.GetText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wait_for",
		Description: "Wait for an element matching a CSS selector to appear, optionally requiring it to be visible",
	}, h.WaitFor)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "screenshot",
		Description: "Capture a screenshot of the target tab as png or jpeg image content",
	}, h.Screenshot)
}
