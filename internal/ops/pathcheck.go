package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/errors"
)

// PathCheckMode says whether a path will be read (import) or written (export).
type PathCheckMode int

const (
	PathCheckRead PathCheckMode = iota
	PathCheckWrite
)

// ValidatePath checks an import or export path:
//   - no ".." components
//   - a .jsonl extension
//   - the file sits directly in ~/.usertags/exports or one of allowed_paths,
//     unless allow_unsafe_paths is set
//   - neither the file nor its parent directory is a symlink
//
// Requiring the file to be directly inside an allowed directory leaves no
// intermediate component to swap for a symlink after the check; the final
// component is opened with O_NOFOLLOW.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ".jsonl" {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowed, err := allowedDirs(cfg)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !slices.Contains(allowed, parent) {
			return errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
		}
		if isSymlink(parent) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(absPath) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// allowedDirs returns the exports directory plus every absolute entry of
// allowed_paths, cleaned, with symlinked entries resolved to their targets.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		out = append(out, abs)
	}
	return out, nil
}

// DefaultExportsDir returns ~/.usertags/exports.
func DefaultExportsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, config.DirName, "exports"), nil
}

// containsTraversal reports whether any component of path is "..", splitting
// on both the OS separator and '/'.
func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	return slices.Contains(strings.FieldsFunc(path, split), "..")
}
