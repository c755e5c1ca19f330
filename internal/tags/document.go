package tags

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jimmcbubbles/usertags/internal/identity"
)

// Document is the whole tag store in memory: every user record plus the
// global registry. A Store persists it as a unit.
type Document struct {
	Records map[string]*Record
	Global  *Registry
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Records: make(map[string]*Record),
		Global:  NewRegistry(),
	}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{
		Records: make(map[string]*Record, len(d.Records)),
		Global:  d.Global.clone(),
	}
	for id, r := range d.Records {
		c.Records[id] = r.clone()
	}
	return c
}

// GetOrInitRecord returns the record for userID, creating and inserting an
// empty one if none exists. A missing username is backfilled from lookup.
func (d *Document) GetOrInitRecord(userID string, lookup identity.Lookup) *Record {
	r, ok := d.Records[userID]
	if !ok || r == nil {
		r = &Record{UserID: userID}
		d.Records[userID] = r
	}
	r.UserID = userID

	if (r.Username == nil || *r.Username == "") && lookup != nil {
		if p, found := lookup.GetUser(userID); found && p.Username != "" {
			name := p.Username
			r.Username = &name
		}
	}
	return r
}

// SetTags replaces userID's tag list with the sanitized, deduplicated tags.
// It reports whether the list changed.
func (d *Document) SetTags(userID string, tags []string, lookup identity.Lookup) bool {
	r := d.GetOrInitRecord(userID, lookup)
	next := normalizeTags(tags)
	if slices.Equal(r.Tags, next) {
		return false
	}
	r.Tags = next
	return true
}

// Prune deletes records that hold no tags and returns their ids.
func (d *Document) Prune() []string {
	var removed []string
	for id, r := range d.Records {
		if r == nil || len(r.Tags) == 0 {
			delete(d.Records, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// UserIDs returns record ids in ascending order.
func (d *Document) UserIDs() []string {
	ids := make([]string, 0, len(d.Records))
	for id := range d.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TagSet is the union of every tag held by a record and every registered name.
func (d *Document) TagSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range d.Records {
		for _, t := range r.Tags {
			set[t] = struct{}{}
		}
	}
	for _, n := range d.Global.names {
		set[n] = struct{}{}
	}
	return set
}

// RenameTag relabels oldName to newName on every record. A record that
// already holds newName just loses oldName. The registry swaps the names.
// Returns the number of records touched.
func (d *Document) RenameTag(oldName, newName string) (int, bool) {
	oldName, newName = Sanitize(oldName), Sanitize(newName)
	if oldName == "" || newName == "" || oldName == newName {
		return 0, false
	}

	touched := 0
	for _, r := range d.Records {
		i := slices.Index(r.Tags, oldName)
		if i < 0 {
			continue
		}
		if r.HasTag(newName) {
			r.Tags = slices.Delete(r.Tags, i, i+1)
		} else {
			r.Tags[i] = newName
		}
		touched++
	}

	removed := d.Global.Remove(oldName)
	added := d.Global.Add(newName)
	return touched, touched > 0 || removed || added
}

// DeleteTag removes name from every record and from the registry.
// Returns the number of records touched.
func (d *Document) DeleteTag(name string) (int, bool) {
	name = Sanitize(name)
	if name == "" {
		return 0, false
	}

	touched := 0
	for _, r := range d.Records {
		if r.RemoveTag(name) {
			touched++
		}
	}
	removed := d.Global.Remove(name)
	return touched, touched > 0 || removed
}

// DuplicateTag picks a free name (name_copy, name_copy_2, ...), adds it to
// every record holding name and registers it. Returns the new name and the
// number of records that gained it. A name nobody holds and the registry
// does not list is left alone.
func (d *Document) DuplicateTag(name string) (string, int, bool) {
	name = Sanitize(name)
	if name == "" {
		return "", 0, false
	}
	if _, known := d.TagSet()[name]; !known {
		return "", 0, false
	}

	copyName := d.freeCopyName(name)

	touched := 0
	for _, r := range d.Records {
		if r.HasTag(name) && r.AddTag(copyName) {
			touched++
		}
	}
	d.Global.Add(copyName)
	return copyName, touched, true
}

// freeCopyName returns the first of name_copy, name_copy_2, name_copy_3, ...
// not already known to the document.
func (d *Document) freeCopyName(name string) string {
	known := d.TagSet()
	candidate := name + "_copy"
	for n := 2; ; n++ {
		if _, taken := known[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_copy_%d", name, n)
	}
}
