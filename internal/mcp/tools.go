package mcp

import "github.com/mark3labs/mcp-go/mcp"

var tagAddToolDef = mcp.NewTool("tag_add",
	mcp.WithDescription("Give a user a tag. The tag is sanitized to [A-Za-z0-9_]; adding a tag the user already holds is a no-op."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID")),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
)

var tagRemoveToolDef = mcp.NewTool("tag_remove",
	mcp.WithDescription("Remove one tag from a user. Removing the last tag deletes the user's record."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID")),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
)

var tagMoveToolDef = mcp.NewTool("tag_move",
	mcp.WithDescription("Reorder a user's tags by moving the tag at position from to position to (0-based)."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID")),
	mcp.WithNumber("from", mcp.Required(), mcp.Description("Current position")),
	mcp.WithNumber("to", mcp.Required(), mcp.Description("Target position")),
)

var tagRenameToolDef = mcp.NewTool("tag_rename",
	mcp.WithDescription("Rename a tag for every user that holds it. Users already holding the new name keep a single copy."),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Existing tag name")),
	mcp.WithString("new_tag", mcp.Required(), mcp.Description("New tag name")),
)

var tagDeleteToolDef = mcp.NewTool("tag_delete",
	mcp.WithDescription("Delete a tag from every user and from the global registry."),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
)

var tagDuplicateToolDef = mcp.NewTool("tag_duplicate",
	mcp.WithDescription("Copy a tag under a fresh name (<tag>_copy, <tag>_copy_2, ...) and give it to every holder of the original."),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
)

var tagCreateToolDef = mcp.NewTool("tag_create",
	mcp.WithDescription("Register a tag in the global registry without assigning it to anyone."),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
)

var tagListToolDef = mcp.NewTool("tag_list",
	mcp.WithDescription("List every known tag in collated order with its user count."),
	mcp.WithNumber("limit", mcp.Description("Max items (default 100, max 1000)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var userFetchToolDef = mcp.NewTool("user_fetch",
	mcp.WithDescription("Fetch a user's tags together with their directory profile."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID")),
)

var userSetToolDef = mcp.NewTool("user_set",
	mcp.WithDescription("Create or replace a user's directory profile (username, display name, groups)."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("User ID")),
	mcp.WithString("username", mcp.Description("Account name")),
	mcp.WithString("display_name", mcp.Description("Name shown in lists")),
	mcp.WithArray("groups", mcp.Description("Group memberships"), mcp.WithStringItems()),
)

var userSearchToolDef = mcp.NewTool("user_search",
	mcp.WithDescription("Filter users. The mode is detected from the filter text: '$group', '@name', '^$' for untagged users, "+
		"tag expressions such as '#A & !#B' or 'A AND NOT B', or a regex. Set mode to force one."),
	mcp.WithString("filter", mcp.Description("Filter text")),
	mcp.WithString("previous", mcp.Description("Last working filter, applied when filter is not a valid expression")),
	mcp.WithString("mode", mcp.Description("Force a mode"),
		mcp.Enum("auto", "none", "group", "name", "empty", "expression", "regex")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var exportToolDef = mcp.NewTool("usertags_export",
	mcp.WithDescription("Export all tag records and registered tags to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output path (default ~/.usertags/exports/usertags-<timestamp>.jsonl)")),
)

var importToolDef = mcp.NewTool("usertags_import",
	mcp.WithDescription("Import tag records from a JSONL export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input path")),
	mcp.WithString("mode", mcp.Description("merge (default) unions tags; replace overwrites each imported user's tags"),
		mcp.Enum("merge", "replace")),
	mcp.WithBoolean("strict", mcp.Description("Abort when any line fails to parse")),
)
