// Package tags holds the per-user tag records, the global tag registry, the
// derived tag index, and the Store that persists them as one document.
package tags

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

// disallowed matches every character a tag name may not contain.
var disallowed = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Sanitize strips every character outside [A-Za-z0-9_]. An empty result
// means the input carried no usable tag.
func Sanitize(name string) string {
	return disallowed.ReplaceAllString(name, "")
}

// Record is the tag list one user has been given.
type Record struct {
	UserID   string   `json:"-"`
	Username *string  `json:"username"`
	Tags     []string `json:"tags"`
}

// storedRecord is the canonical persisted shape.
type storedRecord struct {
	Username *string  `json:"username"`
	Tags     []string `json:"tags"`
}

// UnmarshalJSON accepts the canonical {"username","tags"} object as well as
// the legacy bare array of tag names. Anything else decodes to an empty
// record, which the store prunes on the next save.
func (r *Record) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	r.Username = nil
	r.Tags = nil

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '[':
		var legacy []string
		if err := json.Unmarshal(data, &legacy); err == nil {
			r.Tags = normalizeTags(legacy)
		}
		return nil
	case data[0] == '{':
		var s storedRecord
		if err := json.Unmarshal(data, &s); err == nil {
			r.Username = s.Username
			r.Tags = normalizeTags(s.Tags)
		}
		return nil
	default:
		return nil
	}
}

// MarshalJSON writes the canonical shape with tags always an array.
func (r Record) MarshalJSON() ([]byte, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(storedRecord{Username: r.Username, Tags: tags})
}

// normalizeTags sanitizes and dedupes a decoded tag list, keeping order.
func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = Sanitize(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether the record carries name exactly.
func (r *Record) HasTag(name string) bool {
	return slices.Contains(r.Tags, name)
}

// AddTag sanitizes name and appends it unless empty or already present.
func (r *Record) AddTag(name string) bool {
	name = Sanitize(name)
	if name == "" || r.HasTag(name) {
		return false
	}
	r.Tags = append(r.Tags, name)
	return true
}

// RemoveTag removes the first occurrence of name.
func (r *Record) RemoveTag(name string) bool {
	i := slices.Index(r.Tags, name)
	if i < 0 {
		return false
	}
	r.Tags = slices.Delete(r.Tags, i, i+1)
	return true
}

// MoveTag moves the tag at from so it ends up at index to.
func (r *Record) MoveTag(from, to int) error {
	n := len(r.Tags)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("tag index out of range: from=%d to=%d len=%d", from, to, n)
	}
	if from == to {
		return nil
	}
	t := r.Tags[from]
	r.Tags = slices.Delete(r.Tags, from, from+1)
	r.Tags = slices.Insert(r.Tags, to, t)
	return nil
}

// UsernameOr returns the cached username or fallback.
func (r *Record) UsernameOr(fallback string) string {
	if r.Username != nil && *r.Username != "" {
		return *r.Username
	}
	return fallback
}

func (r *Record) clone() *Record {
	c := &Record{
		UserID: r.UserID,
		Tags:   slices.Clone(r.Tags),
	}
	if r.Username != nil {
		u := *r.Username
		c.Username = &u
	}
	return c
}
