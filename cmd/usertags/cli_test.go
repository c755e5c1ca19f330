package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/kv"
	"github.com/jimmcbubbles/usertags/internal/logger"
	"github.com/jimmcbubbles/usertags/internal/ops"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// setupTestEnv builds an env over in-memory storage.
func setupTestEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	storage := kv.NewMemory()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	dir, err := identity.OpenDirectory(ctx, storage, cfg.Namespace)
	require.NoError(t, err)
	st, err := tags.Open(ctx, storage, tags.Options{
		Namespace: cfg.Namespace,
		Lookup:    dir,
		Locale:    cfg.Locale,
		Logger:    logger.Discard(),
	})
	require.NoError(t, err)
	return &env{store: st, dir: dir, cfg: cfg, log: logger.Discard()}
}

// runCLI runs the app with args and decodes its JSON output into out.
func runCLI(t *testing.T, e *env, out any, args ...string) {
	t.Helper()
	var buf bytes.Buffer
	app := newCLIApp(e)
	app.Writer = &buf
	require.NoError(t, app.Run(append([]string{"usertags"}, args...)))
	if out != nil {
		require.NoError(t, json.Unmarshal(buf.Bytes(), out), "output: %s", buf.String())
	}
}

// runCLIErr runs the app and returns its error.
func runCLIErr(e *env, args ...string) error {
	app := newCLIApp(e)
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	return app.Run(append([]string{"usertags"}, args...))
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single", input: "ops", expected: []string{"ops"}},
		{name: "multiple", input: "ops,dev,qa", expected: []string{"ops", "dev", "qa"}},
		{name: "spaces trimmed", input: " ops , dev ", expected: []string{"ops", "dev"}},
		{name: "empty entries filtered", input: "ops,,dev,", expected: []string{"ops", "dev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTags(tt.input))
		})
	}
}

func TestCLITagAdd(t *testing.T) {
	e := setupTestEnv(t)

	var out ops.UserTagsOutput
	runCLI(t, e, &out, "tag", "add", "u1", "admin", "beta", "admin")
	assert.Equal(t, "u1", out.UserID)
	assert.Equal(t, []string{"admin", "beta"}, out.Tags)

	rec, ok := e.store.Record("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "beta"}, rec.Tags)
}

func TestCLITagRemoveAndMove(t *testing.T) {
	e := setupTestEnv(t)
	runCLI(t, e, nil, "tag", "add", "u1", "a", "b", "c")

	var moved ops.UserTagsOutput
	runCLI(t, e, &moved, "tag", "move", "--from", "2", "--to", "0", "u1")
	assert.Equal(t, []string{"c", "a", "b"}, moved.Tags)

	var removed ops.UserTagsOutput
	runCLI(t, e, &removed, "tag", "remove", "u1", "a")
	assert.Equal(t, []string{"c", "b"}, removed.Tags)
	assert.False(t, removed.Deleted)
}

func TestCLITagChanges(t *testing.T) {
	e := setupTestEnv(t)
	runCLI(t, e, nil, "tag", "add", "u1", "old")
	runCLI(t, e, nil, "tag", "add", "u2", "old", "keep")

	var renamed ops.TagChangeOutput
	runCLI(t, e, &renamed, "tag", "rename", "old", "new")
	assert.True(t, renamed.Changed)
	assert.Equal(t, 2, renamed.Touched)

	var dup ops.TagChangeOutput
	runCLI(t, e, &dup, "tag", "duplicate", "new")
	assert.Equal(t, "new_copy", dup.NewTag)

	runCLI(t, e, nil, "tag", "create", "spare")
	runCLI(t, e, nil, "tag", "delete", "keep")

	var list ops.ListTagsOutput
	runCLI(t, e, &list, "tag", "list")
	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"new", "new_copy", "spare"}, names)
}

func TestCLIUserSetAndShow(t *testing.T) {
	e := setupTestEnv(t)

	var set ops.SetProfileOutput
	runCLI(t, e, &set, "user", "set", "--username", "bob", "--display-name", "Bob", "--groups", "ops, dev", "u1")
	assert.Equal(t, []string{"ops", "dev"}, set.Profile.Groups)

	runCLI(t, e, nil, "tag", "add", "u1", "admin")

	var shown ops.UserOutput
	runCLI(t, e, &shown, "user", "show", "u1")
	assert.Equal(t, "Bob", shown.DisplayName)
	assert.Equal(t, []string{"admin"}, shown.Tags)
	assert.True(t, shown.Known)
	assert.True(t, shown.Tagged)

	var profile identity.Profile
	runCLI(t, e, &profile, "user", "profile", "u1")
	assert.Equal(t, "bob", profile.Username)

	err := runCLIErr(e, "user", "profile", "u9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[NOT_FOUND]")
}

func TestCLISearch(t *testing.T) {
	e := setupTestEnv(t)
	runCLI(t, e, nil, "tag", "add", "u1", "admin", "beta")
	runCLI(t, e, nil, "tag", "add", "u2", "beta")
	runCLI(t, e, nil, "user", "set", "--groups", "ops", "u3")

	ids := func(out ops.SearchOutput) []string {
		var got []string
		for _, item := range out.Items {
			got = append(got, item.UserID)
		}
		return got
	}

	t.Run("expression", func(t *testing.T) {
		var out ops.SearchOutput
		runCLI(t, e, &out, "search", "beta & !admin")
		assert.Equal(t, []string{"u2"}, ids(out))
		assert.Equal(t, "expression", string(out.Mode))
	})

	t.Run("args joined", func(t *testing.T) {
		var out ops.SearchOutput
		runCLI(t, e, &out, "search", "admin", "OR", "beta")
		assert.ElementsMatch(t, []string{"u1", "u2"}, ids(out))
	})

	t.Run("untagged", func(t *testing.T) {
		var out ops.SearchOutput
		runCLI(t, e, &out, "search", "^$")
		assert.Equal(t, []string{"u3"}, ids(out))
	})

	t.Run("group", func(t *testing.T) {
		var out ops.SearchOutput
		runCLI(t, e, &out, "search", "$ops")
		assert.Equal(t, []string{"u3"}, ids(out))
	})

	t.Run("parse error falls back to previous", func(t *testing.T) {
		var out ops.SearchOutput
		runCLI(t, e, &out, "search", "--previous", "admin", "(beta")
		assert.Equal(t, []string{"u1"}, ids(out))
		assert.Equal(t, "admin", out.Applied)
		assert.NotEmpty(t, out.Error)
	})
}

func TestCLIExportImport(t *testing.T) {
	e := setupTestEnv(t)
	runCLI(t, e, nil, "tag", "add", "u1", "admin")
	runCLI(t, e, nil, "tag", "create", "spare")

	path := filepath.Join(t.TempDir(), "tags.jsonl")
	var exported ops.ExportOutput
	runCLI(t, e, &exported, "export", "--path", path)
	assert.Equal(t, 1, exported.Records)

	fresh := setupTestEnv(t)
	var imported ops.ImportOutput
	runCLI(t, fresh, &imported, "import", "--path", path, "--strict")
	assert.Equal(t, 1, imported.Records)
	assert.True(t, imported.Changed)

	rec, ok := fresh.store.Record("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, rec.Tags)
}

func TestCLIErrorHandling(t *testing.T) {
	e := setupTestEnv(t)

	t.Run("show without user id", func(t *testing.T) {
		err := runCLIErr(e, "user", "show")
		require.Error(t, err)
		var exit cli.ExitCoder
		require.ErrorAs(t, err, &exit)
		assert.Equal(t, 1, exit.ExitCode())
		assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
	})

	t.Run("show unknown user is empty", func(t *testing.T) {
		var out ops.UserOutput
		runCLI(t, e, &out, "user", "show", "nobody")
		assert.False(t, out.Known)
		assert.False(t, out.Tagged)
		assert.Empty(t, out.Tags)
	})

	t.Run("add without tag", func(t *testing.T) {
		err := runCLIErr(e, "tag", "add", "u1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
	})

	t.Run("rename wrong arity", func(t *testing.T) {
		err := runCLIErr(e, "tag", "rename", "only")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "usage: tag rename")
	})

	t.Run("invalid filter without previous", func(t *testing.T) {
		err := runCLIErr(e, "search", "(a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[INVALID_FILTER]")
	})

	t.Run("bad import mode", func(t *testing.T) {
		err := runCLIErr(e, "import", "--path", filepath.Join(t.TempDir(), "x.jsonl"), "--mode", "sideways")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
	})
}

func TestOpenEnv(t *testing.T) {
	t.Run("memory backend from config", func(t *testing.T) {
		baseDir := t.TempDir()
		cfg := `{"backend": "memory", "namespace": "Test", "disabled_tools": ["nope"]}`
		require.NoError(t, os.WriteFile(filepath.Join(baseDir, "config.json"), []byte(cfg), 0600))

		e, closeFn, err := openEnv(context.Background(), baseDir, t.TempDir())
		require.NoError(t, err)
		defer func() { _ = closeFn() }()

		assert.Equal(t, config.BackendMemory, e.cfg.Backend)
		assert.Equal(t, "Test", e.cfg.Namespace)
		_, err = ops.AddTag(context.Background(), e.store, ops.AddTagInput{UserID: "u1", Tag: "x"})
		require.NoError(t, err)
	})

	t.Run("sqlite persists across opens", func(t *testing.T) {
		baseDir := t.TempDir()
		workDir := t.TempDir()

		e, closeFn, err := openEnv(context.Background(), baseDir, workDir)
		require.NoError(t, err)
		_, err = ops.AddTag(context.Background(), e.store, ops.AddTagInput{UserID: "u1", Tag: "kept"})
		require.NoError(t, err)
		require.NoError(t, closeFn())

		e2, closeFn2, err := openEnv(context.Background(), baseDir, workDir)
		require.NoError(t, err)
		defer func() { _ = closeFn2() }()
		rec, ok := e2.store.Record("u1")
		require.True(t, ok)
		assert.Equal(t, []string{"kept"}, rec.Tags)
	})

	t.Run("invalid config", func(t *testing.T) {
		baseDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(baseDir, "config.json"), []byte(`{"backend": "floppy"}`), 0600))

		_, _, err := openEnv(context.Background(), baseDir, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"usertags"}, expected: false},
		{name: "tag command", args: []string{"usertags", "tag"}, expected: true},
		{name: "search command", args: []string{"usertags", "search"}, expected: true},
		{name: "serve command", args: []string{"usertags", "serve"}, expected: true},
		{name: "help flag", args: []string{"usertags", "--help"}, expected: true},
		{name: "short version flag", args: []string{"usertags", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"usertags", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			assert.Equal(t, tt.expected, isCLIMode())
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"usertags"}, expected: false},
		{name: "help flag", args: []string{"usertags", "--help"}, expected: true},
		{name: "short help flag", args: []string{"usertags", "-h"}, expected: true},
		{name: "version flag", args: []string{"usertags", "--version"}, expected: true},
		{name: "help subcommand", args: []string{"usertags", "help"}, expected: true},
		{name: "tag command is not help", args: []string{"usertags", "tag"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			assert.Equal(t, tt.expected, isHelpOrVersion())
		})
	}
}

func TestHelpRunsWithoutEnv(t *testing.T) {
	var buf bytes.Buffer
	app := newCLIApp(nil)
	app.Writer = &buf
	require.NoError(t, app.Run([]string{"usertags", "--help"}))
	assert.Contains(t, buf.String(), "search")
}
