package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmcbubbles/usertags/internal/kv"
)

func TestStatic(t *testing.T) {
	s := Static{"42": {UserID: "42", Username: "alice"}}

	p, ok := s.GetUser("42")
	require.True(t, ok)
	assert.Equal(t, "alice", p.Username)

	_, ok = s.GetUser("7")
	assert.False(t, ok)
}

func TestNone(t *testing.T) {
	_, ok := None.GetUser("42")
	assert.False(t, ok)
}

func TestMemo_CachesHitsAndMisses(t *testing.T) {
	calls := map[string]int{}
	next := LookupFunc(func(id string) (Profile, bool) {
		calls[id]++
		if id == "42" {
			return Profile{UserID: id, Username: "alice"}, true
		}
		return Profile{}, false
	})

	m := NewMemo(next)
	for range 3 {
		p, ok := m.GetUser("42")
		require.True(t, ok)
		assert.Equal(t, "alice", p.Username)

		_, ok = m.GetUser("missing")
		assert.False(t, ok)
	}
	assert.Equal(t, 1, calls["42"])
	assert.Equal(t, 1, calls["missing"])
}

func TestDirectory_PutPersists(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	d, err := OpenDirectory(ctx, store, "UserTags")
	require.NoError(t, err)

	err = d.Put(ctx, Profile{UserID: " 42 ", Username: "alice", Groups: []string{"Gophers", "", "Gophers", "Rust"}})
	require.NoError(t, err)

	reopened, err := OpenDirectory(ctx, store, "UserTags")
	require.NoError(t, err)

	p, ok := reopened.GetUser("42")
	require.True(t, ok)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, []string{"Gophers", "Rust"}, p.Groups)
	assert.Len(t, reopened.All(), 1)
}

func TestDirectory_PutRequiresID(t *testing.T) {
	d, err := OpenDirectory(context.Background(), kv.NewMemory(), "UserTags")
	require.NoError(t, err)
	assert.Error(t, d.Put(context.Background(), Profile{Username: "nobody"}))
}

func TestDirectory_CorruptBook(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Save(ctx, "UserTags", DirectoryKey, []byte("{not json")))

	_, err := OpenDirectory(ctx, store, "UserTags")
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Alice A.", DisplayName(Profile{DisplayName: "Alice A.", Username: "alice"}, "", "42"))
	assert.Equal(t, "alice", DisplayName(Profile{Username: "alice"}, "old", "42"))
	assert.Equal(t, "old", DisplayName(Profile{}, "old", "42"))
	assert.Equal(t, "42", DisplayName(Profile{}, "", "42"))
}
