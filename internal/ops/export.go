package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string `json:"path,omitempty"` // default: ~/.usertags/exports/usertags-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Records    int    `json:"records"`
	GlobalTags int    `json:"global_tags"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	UsertagsExport bool   `json:"_usertags_export"`
	SchemaVersion  string `json:"schema_version"`
	ID             string `json:"id"`
	Revision       string `json:"revision,omitempty"`
	ExportedAt     int64  `json:"exported_at"`
}

// ExportLine is one line after the header: either a user's record or a
// registered tag name.
type ExportLine struct {
	UsertagsExport bool     `json:"_usertags_export,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
	Username       *string  `json:"username,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	GlobalTag      string   `json:"global_tag,omitempty"`
}

// Export writes the tag document to a JSONL file: a header, one line per
// tagged user, then one line per registered tag.
func Export(ctx context.Context, st *tags.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to a temp file and rename so an existing export survives a failure.
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	view := st.View()
	doc := view.Doc
	header := ExportHeader{
		UsertagsExport: true,
		SchemaVersion:  ExportSchemaVersion,
		ID:             id,
		Revision:       view.Revision,
		ExportedAt:     now.Unix(),
	}
	if err := writeLine(file, header); err != nil {
		return nil, err
	}

	out := &ExportOutput{ID: id, Path: exportPath, ExportedAt: now.Unix()}
	for _, userID := range doc.UserIDs() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("export")
		}
		r := doc.Records[userID]
		if err := writeLine(file, ExportLine{UserID: userID, Username: r.Username, Tags: r.Tags}); err != nil {
			return nil, err
		}
		out.Records++
	}
	for _, name := range doc.Global.Names() {
		if err := writeLine(file, ExportLine{GlobalTag: name}); err != nil {
			return nil, err
		}
		out.GlobalTags++
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return out, nil
}

func writeLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternal(err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// defaultExportPath returns ~/.usertags/exports/usertags-<timestamp>.jsonl.
func defaultExportPath(now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("usertags-%s.jsonl", now.Format("2006-01-02T150405"))
	return filepath.Join(dir, name), nil
}
