package mcp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"tag", "user", "usertags"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"tag_add": {
		def:     tagAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"tag_remove": {
		def:     tagRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemove },
	},
	"tag_move": {
		def:     tagMoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMove },
	},
	"tag_rename": {
		def:     tagRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRename },
	},
	"tag_delete": {
		def:     tagDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"tag_duplicate": {
		def:     tagDuplicateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDuplicate },
	},
	"tag_create": {
		def:     tagCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"tag_list": {
		def:     tagListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"user_fetch": {
		def:     userFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"user_set": {
		def:     userSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetProfile },
	},
	"user_search": {
		def:     userSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"usertags_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"usertags_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "tag_add" → "tag").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// Deps are the services the MCP tools operate on.
type Deps struct {
	Store     *tags.Store
	Directory *identity.Directory
	Config    *config.Config
	Logger    *slog.Logger
}

// NewServer creates a new MCP server with the usertags tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"usertags",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(h.cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range h.cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			h.log.Debug("tool disabled", "tool", name)
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
