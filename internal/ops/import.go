package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// ImportMode controls how imported tags combine with existing ones.
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"   // add imported tags to what each user has
	ImportModeReplace ImportMode = "replace" // imported list replaces the user's tags
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     `json:"path" validate:"notblank"`
	Mode ImportMode `json:"mode,omitempty" validate:"omitempty,oneof=merge replace"`
	// Strict aborts the whole import when any line fails to parse.
	Strict bool `json:"strict,omitempty"`
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Records    int           `json:"records"`
	GlobalTags int           `json:"global_tags"`
	Skipped    int           `json:"skipped"`
	Changed    bool          `json:"changed"`
	Revision   string        `json:"revision"`
	Errors     []ImportError `json:"errors"`
}

// ImportError describes a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import reads an export file into the store. All accepted lines land in a
// single save.
func Import(ctx context.Context, st *tags.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	if input.Mode == "" {
		input.Mode = ImportModeMerge
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.TagError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	lines, parseErrors := parseExportFile(file)
	out := &ImportOutput{Errors: parseErrors, Skipped: len(parseErrors)}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	if input.Strict && len(parseErrors) > 0 {
		out.Revision = st.Revision()
		return out, nil
	}

	res, err := st.Apply(ctx, "import", func(doc *tags.Document) (int, bool, error) {
		changed := false
		touched := 0
		for _, l := range lines {
			if err := ctx.Err(); err != nil {
				return 0, false, errors.NewCancelled("import")
			}
			if l.GlobalTag != "" {
				if doc.Global.Add(l.GlobalTag) {
					changed = true
				}
				out.GlobalTags++
				continue
			}

			var recChanged bool
			if input.Mode == ImportModeReplace {
				recChanged = doc.SetTags(l.UserID, l.Tags, st.Lookup())
			} else {
				r := doc.GetOrInitRecord(l.UserID, st.Lookup())
				for _, t := range l.Tags {
					if r.AddTag(t) {
						recChanged = true
					}
				}
			}
			if r := doc.Records[l.UserID]; r != nil && r.Username == nil && l.Username != nil {
				name := *l.Username
				r.Username = &name
				recChanged = true
			}
			if recChanged {
				touched++
				changed = true
			}
			out.Records++
		}
		return touched, changed, nil
	})
	if err != nil {
		return nil, err
	}

	out.Changed = res.Changed
	out.Revision = res.Revision
	return out, nil
}

// parseExportFile reads every line after the header. Malformed lines are
// reported and skipped.
func parseExportFile(r io.Reader) ([]ExportLine, []ImportError) {
	var lines []ExportLine
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var line ExportLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if line.UsertagsExport {
			continue
		}

		line.UserID = strings.TrimSpace(line.UserID)
		if line.UserID == "" && line.GlobalTag == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "line has neither user_id nor global_tag",
			})
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return lines, parseErrors
}
