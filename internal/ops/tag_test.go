package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmcbubbles/usertags/internal/errors"
)

func TestAddTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := AddTag(ctx, f.store, AddTagInput{UserID: " 42 ", Tag: "v.i.p"})
	require.NoError(t, err)
	assert.Equal(t, "42", out.UserID)
	assert.Equal(t, []string{"vip"}, out.Tags)
	assert.True(t, out.Changed)
	assert.NotEmpty(t, out.Revision)

	again, err := AddTag(ctx, f.store, AddTagInput{UserID: "42", Tag: "vip"})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, out.Revision, again.Revision)

	// Sanitizes to nothing: not an error, just no change.
	noop, err := AddTag(ctx, f.store, AddTagInput{UserID: "42", Tag: "???"})
	require.NoError(t, err)
	assert.False(t, noop.Changed)
}

func TestAddTag_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := AddTag(ctx, f.store, AddTagInput{UserID: "", Tag: "a"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = AddTag(ctx, f.store, AddTagInput{UserID: "1", Tag: "  "})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRemoveTag_DeletesEmptyRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tag(t, "42", "a", "b")

	out, err := RemoveTag(ctx, f.store, RemoveTagInput{UserID: "42", Tag: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, out.Tags)
	assert.False(t, out.Deleted)

	out, err = RemoveTag(ctx, f.store, RemoveTagInput{UserID: "42", Tag: "b"})
	require.NoError(t, err)
	assert.Empty(t, out.Tags)
	assert.True(t, out.Deleted)

	_, tagged := f.store.Record("42")
	assert.False(t, tagged)
}

func TestMoveTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tag(t, "1", "a", "b", "c")

	out, err := MoveTag(ctx, f.store, MoveTagInput{UserID: "1", From: 2, To: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, out.Tags)

	_, err = MoveTag(ctx, f.store, MoveTagInput{UserID: "1", From: 0, To: 3})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = MoveTag(ctx, f.store, MoveTagInput{UserID: "1", From: -1, To: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = MoveTag(ctx, f.store, MoveTagInput{UserID: "2", From: 0, To: 0})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRenameDeleteDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tag(t, "1", "vip")
	f.tag(t, "2", "vip", "vip_client")

	ren, err := RenameTag(ctx, f.store, RenameTagInput{Tag: "vip", NewTag: "vip client"})
	require.NoError(t, err)
	assert.Equal(t, "vip", ren.Tag)
	assert.Equal(t, "vip_client", ren.NewTag)
	assert.Equal(t, 2, ren.Touched)

	dup, err := DuplicateTag(ctx, f.store, DuplicateTagInput{Tag: "vip_client"})
	require.NoError(t, err)
	assert.Equal(t, "vip_client_copy", dup.NewTag)
	assert.Equal(t, 2, dup.Touched)

	del, err := DeleteTag(ctx, f.store, DeleteTagInput{Tag: "vip_client"})
	require.NoError(t, err)
	assert.Equal(t, 2, del.Touched)
	assert.Empty(t, del.Pruned)

	del, err = DeleteTag(ctx, f.store, DeleteTagInput{Tag: "vip_client_copy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, del.Pruned)
	assert.Empty(t, f.store.AllTags())

	dup, err = DuplicateTag(ctx, f.store, DuplicateTagInput{Tag: "ghost"})
	require.NoError(t, err)
	assert.False(t, dup.Changed)
	assert.Empty(t, dup.NewTag)
	assert.Empty(t, f.store.AllTags())
}

func TestCreateTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := CreateTag(ctx, f.store, CreateTagInput{Tag: "#later"})
	require.NoError(t, err)
	assert.Equal(t, "later", out.Tag)
	assert.True(t, out.Changed)

	list, err := ListTags(f.store, ListTagsInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, TagSummary{Name: "later", Count: 0, Registered: true}, list.Items[0])
}
