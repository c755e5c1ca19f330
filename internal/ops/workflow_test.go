package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/kv"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// TestFullWorkflow drives the tag lifecycle against SQLite:
// add → rename → duplicate → delete → remove → reopen.
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	storage, err := kv.OpenSQLite(tmpDir)
	require.NoError(t, err)

	dir, err := identity.OpenDirectory(ctx, storage, "UserTags")
	require.NoError(t, err)
	st, err := tags.Open(ctx, storage, tags.Options{Lookup: dir})
	require.NoError(t, err)

	// 1. Add
	_, err = AddTag(ctx, st, AddTagInput{UserID: "42", Tag: "vip"})
	require.NoError(t, err)
	require.Equal(t, []string{"vip"}, st.AllTags())

	// 2. Rename
	_, err = RenameTag(ctx, st, RenameTagInput{Tag: "vip", NewTag: "VIP_CLIENT"})
	require.NoError(t, err)
	user, err := FetchUser(st, dir, FetchUserInput{UserID: "42"})
	require.NoError(t, err)
	require.Equal(t, []string{"VIP_CLIENT"}, user.Tags)

	// 3. Duplicate
	dup, err := DuplicateTag(ctx, st, DuplicateTagInput{Tag: "VIP_CLIENT"})
	require.NoError(t, err)
	require.Equal(t, "VIP_CLIENT_copy", dup.NewTag)
	require.Equal(t, []string{"VIP_CLIENT", "VIP_CLIENT_copy"}, st.AllTags())

	// 4. Delete
	_, err = DeleteTag(ctx, st, DeleteTagInput{Tag: "VIP_CLIENT"})
	require.NoError(t, err)
	user, err = FetchUser(st, dir, FetchUserInput{UserID: "42"})
	require.NoError(t, err)
	require.Equal(t, []string{"VIP_CLIENT_copy"}, user.Tags)
	require.NotContains(t, st.AllTags(), "VIP_CLIENT")

	// 5. Remove the last tag: the record goes away
	removed, err := RemoveTag(ctx, st, RemoveTagInput{UserID: "42", Tag: "VIP_CLIENT_copy"})
	require.NoError(t, err)
	require.True(t, removed.Deleted)

	// 6. A fresh store over the same database agrees
	require.NoError(t, storage.Close())
	storage, err = kv.OpenSQLite(tmpDir)
	require.NoError(t, err)
	defer storage.Close()
	reopened, err := tags.Open(ctx, storage, tags.Options{})
	require.NoError(t, err)
	require.Empty(t, reopened.Records())
	require.Equal(t, st.Revision(), reopened.Revision())
	require.FileExists(t, filepath.Join(tmpDir, "usertags.db"))
}
