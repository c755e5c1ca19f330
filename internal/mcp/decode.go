package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode unmarshals MCP request arguments into an ops input struct.
// Missing arguments decode to the zero value; validation happens in ops.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var input T
	args := req.GetArguments()
	if len(args) == 0 {
		return input, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return input, fmt.Errorf("marshal arguments: %w", err)
	}
	if err := json.Unmarshal(b, &input); err != nil {
		return input, fmt.Errorf("invalid arguments: %w", err)
	}
	return input, nil
}
