// Package identity resolves user ids to the profile details the tag store
// and filter engine display and match against.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jimmcbubbles/usertags/internal/kv"
)

// Profile is what the host knows about a user.
type Profile struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

// Lookup resolves a user id. ok is false when the user is unknown.
type Lookup interface {
	GetUser(userID string) (Profile, bool)
}

// Roster is a Lookup that can also list every user it knows.
type Roster interface {
	Lookup
	All() []Profile
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(userID string) (Profile, bool)

// GetUser implements Lookup.
func (f LookupFunc) GetUser(userID string) (Profile, bool) {
	return f(userID)
}

// None is a Lookup that knows nobody.
var None Lookup = LookupFunc(func(string) (Profile, bool) { return Profile{}, false })

// Static is a fixed Lookup keyed by user id.
type Static map[string]Profile

// GetUser implements Lookup.
func (s Static) GetUser(userID string) (Profile, bool) {
	p, ok := s[userID]
	return p, ok
}

// Memo caches results of another Lookup, including misses.
type Memo struct {
	next Lookup

	mu    sync.Mutex
	cache map[string]memoEntry
}

type memoEntry struct {
	profile Profile
	ok      bool
}

// NewMemo wraps next with a cache.
func NewMemo(next Lookup) *Memo {
	return &Memo{next: next, cache: make(map[string]memoEntry)}
}

// GetUser implements Lookup.
func (m *Memo) GetUser(userID string) (Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.cache[userID]; ok {
		return e.profile, e.ok
	}
	p, ok := m.next.GetUser(userID)
	m.cache[userID] = memoEntry{profile: p, ok: ok}
	return p, ok
}

// DirectoryKey is the storage key holding the profile book.
const DirectoryKey = "Profiles"

// Directory is a Lookup persisted through kv.Storage. It stands in for the
// host's user store when usertags runs on its own.
type Directory struct {
	storage   kv.Storage
	namespace string

	mu       sync.RWMutex
	profiles map[string]Profile
}

// OpenDirectory loads the profile book from storage.
func OpenDirectory(ctx context.Context, storage kv.Storage, namespace string) (*Directory, error) {
	d := &Directory{
		storage:   storage,
		namespace: namespace,
		profiles:  make(map[string]Profile),
	}

	data, ok, err := storage.Load(ctx, namespace, DirectoryKey)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &d.profiles); err != nil {
			return nil, fmt.Errorf("decode profiles: %w", err)
		}
	}
	return d, nil
}

// GetUser implements Lookup.
func (d *Directory) GetUser(userID string) (Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[userID]
	if !ok {
		return Profile{}, false
	}
	p.Groups = append([]string(nil), p.Groups...)
	return p, true
}

// Put stores or replaces a profile and persists the book.
func (d *Directory) Put(ctx context.Context, p Profile) error {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	p.Groups = cleanGroups(p.Groups)

	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[string]Profile, len(d.profiles)+1)
	for k, v := range d.profiles {
		next[k] = v
	}
	next[p.UserID] = p

	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := d.storage.Save(ctx, d.namespace, DirectoryKey, data); err != nil {
		return err
	}
	d.profiles = next
	return nil
}

// All returns every profile ordered by user id.
func (d *Directory) All() []Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Profile, 0, len(d.profiles))
	for _, p := range d.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func cleanGroups(groups []string) []string {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g != "" && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DisplayName picks the best label for a user: display name, then username,
// then the raw id.
func DisplayName(p Profile, cachedUsername, userID string) string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Username != "":
		return p.Username
	case cachedUsername != "":
		return cachedUsername
	default:
		return userID
	}
}
