package releveler

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/relevel/kit"
)

// RegisterMCP registers the relevel tools on an MCP server, so agents
// can drive re-leveling sessions over the protocol.
func (r *Releveler) RegisterMCP(srv *mcp.Server) {
	r.registerRewriteTool(srv)
	r.registerSummarizeTool(srv)
	r.registerResetTool(srv)
	r.registerStatusTool(srv)
	r.registerHistoryTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var operationProperties = map[string]any{
	"url":   map[string]any{"type": "string", "description": "Page URL to process"},
	"level": map[string]any{"type": "string", "description": "Target CEFR level (A1-C2)"},
}

func decodeOperation(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var op OperationRequest
	if err := json.Unmarshal(req.Params.Arguments, &op); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &op}, nil
}

func decodeNothing(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{Request: nil}, nil
}

func (r *Releveler) registerRewriteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "relevel_rewrite",
		Description: "Rewrite the visible text of a web page at a target CEFR level, in place, preserving layout and typography.",
		InputSchema: inputSchema(operationProperties, []string{"url", "level"}),
	}
	kit.RegisterMCPTool(srv, tool, r.rewriteEndpoint(), decodeOperation)
}

func (r *Releveler) registerSummarizeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "relevel_summarize",
		Description: "Produce a summary of a web page written at a target CEFR level, delivered as a downloadable artifact.",
		InputSchema: inputSchema(operationProperties, []string{"url", "level"}),
	}
	kit.RegisterMCPTool(srv, tool, r.summarizeEndpoint(), decodeOperation)
}

func (r *Releveler) registerResetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "relevel_reset",
		Description: "Restore the current page to its original text and end the session.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, r.resetEndpoint(), decodeNothing)
}

func (r *Releveler) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "relevel_status",
		Description: "Report the orchestrator state and the active session, if any.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, r.statusEndpoint(), decodeNothing)
}

func (r *Releveler) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "relevel_history",
		Description: "List recently recorded operations, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum entries to return"},
		}, nil),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var hr HistoryRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &hr); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &hr}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.historyEndpoint(), decode)
}
