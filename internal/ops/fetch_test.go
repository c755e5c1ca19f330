package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/identity"
)

func TestFetchUser(t *testing.T) {
	f := newFixture(t)
	f.profile(t, SetProfileInput{UserID: "1", Username: "alice", DisplayName: "Alice", Groups: []string{"g1", " g1 ", ""}})
	f.tag(t, "1", "friend")

	out, err := FetchUser(f.store, f.dir, FetchUserInput{UserID: "1"})
	require.NoError(t, err)
	assert.Equal(t, &UserOutput{
		UserID:      "1",
		Username:    "alice",
		DisplayName: "Alice",
		Tags:        []string{"friend"},
		Groups:      []string{"g1"},
		Tagged:      true,
		Known:       true,
	}, out)
}

func TestFetchUser_Unknown(t *testing.T) {
	f := newFixture(t)

	out, err := FetchUser(f.store, nil, FetchUserInput{UserID: "99"})
	require.NoError(t, err)
	assert.Equal(t, "99", out.DisplayName)
	assert.Empty(t, out.Tags)
	assert.NotNil(t, out.Tags)
	assert.False(t, out.Tagged)
	assert.False(t, out.Known)
}

func TestProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := GetProfile(f.dir, GetProfileInput{UserID: "5"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	set, err := SetProfile(ctx, f.dir, SetProfileInput{UserID: "5", Username: "eve"})
	require.NoError(t, err)
	assert.Equal(t, identity.Profile{UserID: "5", Username: "eve"}, set.Profile)

	got, err := GetProfile(f.dir, GetProfileInput{UserID: "5"})
	require.NoError(t, err)
	assert.Equal(t, "eve", got.Username)

	// A reopened directory sees the stored profile.
	reopened, err := identity.OpenDirectory(ctx, f.storage, "UserTags")
	require.NoError(t, err)
	p, ok := reopened.GetUser("5")
	require.True(t, ok)
	assert.Equal(t, "eve", p.Username)

	_, err = SetProfile(ctx, f.dir, SetProfileInput{UserID: " "})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestFetchUser_UsernameBackfilledOnTag(t *testing.T) {
	f := newFixture(t)
	f.profile(t, SetProfileInput{UserID: "7", Username: "seven"})
	f.tag(t, "7", "x")

	rec, ok := f.store.Record("7")
	require.True(t, ok)
	assert.Equal(t, "seven", rec.UsernameOr(""))
}
