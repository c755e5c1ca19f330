package tags

import (
	"sort"
	"strings"

	"github.com/jimmcbubbles/usertags/internal/identity"
)

// IndexEntry is one holder of a tag.
type IndexEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Index maps each tag name to the users holding it. It is always derived
// from the records and never edited in place.
type Index map[string][]IndexEntry

// RebuildIndex derives the index from records. Records are visited in id
// order so the result is deterministic; records are not modified.
func RebuildIndex(records map[string]*Record, lookup identity.Lookup) Index {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := make(Index)
	for _, id := range ids {
		r := records[id]
		if r == nil {
			continue
		}
		username := r.UsernameOr("")
		if username == "" && lookup != nil {
			if p, ok := lookup.GetUser(id); ok {
				username = p.Username
			}
		}
		for _, t := range r.Tags {
			if strings.TrimSpace(t) == "" {
				continue
			}
			idx[t] = append(idx[t], IndexEntry{UserID: id, Username: username})
		}
	}
	return idx
}

// Names returns the indexed tag names in byte order.
func (ix Index) Names() []string {
	names := make([]string, 0, len(ix))
	for n := range ix {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns how many users hold name.
func (ix Index) Count(name string) int {
	return len(ix[name])
}

// Invert flattens the index back to user id → tags. Tag order within a user
// follows index name order, not the record's order.
func (ix Index) Invert() map[string][]string {
	out := make(map[string][]string)
	for _, name := range ix.Names() {
		for _, e := range ix[name] {
			out[e.UserID] = append(out[e.UserID], name)
		}
	}
	return out
}

func (ix Index) clone() Index {
	if ix == nil {
		return nil
	}
	c := make(Index, len(ix))
	for k, v := range ix {
		c[k] = append([]IndexEntry(nil), v...)
	}
	return c
}
