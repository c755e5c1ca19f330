package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/logger"
	"github.com/jimmcbubbles/usertags/internal/ops"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *tags.Store
	dir   *identity.Directory
	cfg   *config.Config
	log   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	h := &Handlers{store: deps.Store, dir: deps.Directory, cfg: deps.Config, log: deps.Logger}
	if h.cfg == nil {
		h.cfg = config.DefaultConfig()
	}
	if h.log == nil {
		h.log = logger.Discard()
	}
	return h
}

// roster returns the directory as a Roster, or nil when none is configured.
func (h *Handlers) roster() identity.Roster {
	if h.dir == nil {
		return nil
	}
	return h.dir
}

// Handler implementations. Arguments decode straight into the ops inputs,
// whose json tags match the tool schemas.

// HandleAdd handles the tag_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.AddTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_add", func() (any, error) { return ops.AddTag(ctx, h.store, input) })
}

// HandleRemove handles the tag_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.RemoveTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_remove", func() (any, error) { return ops.RemoveTag(ctx, h.store, input) })
}

// HandleMove handles the tag_move tool call.
func (h *Handlers) HandleMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.MoveTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_move", func() (any, error) { return ops.MoveTag(ctx, h.store, input) })
}

// HandleRename handles the tag_rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.RenameTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_rename", func() (any, error) { return ops.RenameTag(ctx, h.store, input) })
}

// HandleDelete handles the tag_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.DeleteTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_delete", func() (any, error) { return ops.DeleteTag(ctx, h.store, input) })
}

// HandleDuplicate handles the tag_duplicate tool call.
func (h *Handlers) HandleDuplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.DuplicateTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_duplicate", func() (any, error) { return ops.DuplicateTag(ctx, h.store, input) })
}

// HandleCreate handles the tag_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.CreateTagInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_create", func() (any, error) { return ops.CreateTag(ctx, h.store, input) })
}

// HandleList handles the tag_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ListTagsInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("tag_list", func() (any, error) { return ops.ListTags(h.store, input) })
}

// HandleFetch handles the user_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.FetchUserInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("user_fetch", func() (any, error) { return ops.FetchUser(h.store, h.roster(), input) })
}

// HandleSetProfile handles the user_set tool call.
func (h *Handlers) HandleSetProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.SetProfileInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.dir == nil {
		return errorResult(errors.NewInvalidRequest("no user directory configured")), nil
	}
	return h.result("user_set", func() (any, error) { return ops.SetProfile(ctx, h.dir, input) })
}

// HandleSearch handles the user_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.SearchInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("user_search", func() (any, error) { return ops.Search(ctx, h.store, h.roster(), input) })
}

// HandleExport handles the usertags_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ExportInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("usertags_export", func() (any, error) { return ops.Export(ctx, h.store, h.cfg, input) })
}

// HandleImport handles the usertags_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ImportInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.result("usertags_import", func() (any, error) { return ops.Import(ctx, h.store, h.cfg, input) })
}

// result runs an operation and converts its outcome to a tool result.
func (h *Handlers) result(tool string, run func() (any, error)) (*mcp.CallToolResult, error) {
	out, err := run()
	if err != nil {
		h.log.Warn("tool failed", "tool", tool, "error", err)
		return errorResult(err), nil
	}
	h.log.Debug("tool ok", "tool", tool)
	return successResult(out)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tagErr *errors.TagError
	if errors.As(err, &tagErr) {
		errorObj := map[string]any{
			"code":    tagErr.Code,
			"message": tagErr.Message,
			"status":  tagErr.Status,
		}
		if tagErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if tagErr.Details != nil {
			errorObj["details"] = tagErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
